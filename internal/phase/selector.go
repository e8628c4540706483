package phase

import (
	"strings"
	"time"

	"storyhub/internal/domain"
)

// testMarkers are the title substrings that mark a staging/QA contest.
// Matching is case-insensitive.
var testMarkers = []string{"[test]", "demo"}

// IsTestContest reports whether the contest is a staging/QA contest.
func IsTestContest(c domain.Contest) bool {
	title := strings.ToLower(c.Title)
	for _, m := range testMarkers {
		if strings.Contains(title, m) {
			return true
		}
	}
	return false
}

// FindCurrent picks the single "current" contest. Test contests always
// preempt production ones: staging data coexists with production data and
// must never be hidden behind production scheduling. Never returns a
// finalized contest.
//
// Priority: open test contest with the latest submission deadline; else the
// open production contest whose submission deadline is earliest among those
// still active by date; else the most recent open production contest by
// submission deadline (best effort when the data is inconsistent); else nil.
// When every contest is finalized there is no current contest; finalized
// ones are served through the finished-entity cache instead.
func FindCurrent(contests []domain.Contest, now time.Time) *domain.Contest {
	var testOpen, prodOpen []domain.Contest
	for _, c := range contests {
		if c.Finalized() {
			continue
		}
		if IsTestContest(c) {
			testOpen = append(testOpen, c)
		} else {
			prodOpen = append(prodOpen, c)
		}
	}

	if len(testOpen) > 0 {
		best := testOpen[0]
		for _, c := range testOpen[1:] {
			if deadlineAfter(c, best) {
				best = c
			}
		}
		return &best
	}

	if len(prodOpen) > 0 {
		// Earliest submission deadline among contests still active by date.
		var active *domain.Contest
		for i := range prodOpen {
			switch Resolve(prodOpen[i], now) {
			case PhaseSubmission, PhaseVoting, PhaseCounting:
			default:
				continue
			}
			if active == nil || deadlineBefore(prodOpen[i], *active) {
				active = &prodOpen[i]
			}
		}
		if active != nil {
			c := *active
			return &c
		}

		// No contest qualifies by date; fall back to the most recent one.
		best := prodOpen[0]
		for _, c := range prodOpen[1:] {
			if deadlineAfter(c, best) {
				best = c
			}
		}
		return &best
	}

	return nil
}

// FindNext picks the contest that follows current: same test/production
// track preferred, earliest submission deadline strictly after current's,
// excluding current itself and anything finalized. Falls back across tracks
// when the preferred track has no candidate.
func FindNext(contests []domain.Contest, current *domain.Contest, now time.Time) *domain.Contest {
	if current == nil {
		return nil
	}
	currentIsTest := IsTestContest(*current)
	currentDeadline, okCur := parseDeadline(current.SubmissionDeadline)

	var sameTrack, otherTrack []domain.Contest
	for _, c := range contests {
		if c.ID == current.ID || c.Finalized() {
			continue
		}
		if okCur {
			d, ok := parseDeadline(c.SubmissionDeadline)
			if !ok || !d.After(currentDeadline) {
				continue
			}
		}
		if IsTestContest(c) == currentIsTest {
			sameTrack = append(sameTrack, c)
		} else {
			otherTrack = append(otherTrack, c)
		}
	}

	pick := func(cs []domain.Contest) *domain.Contest {
		if len(cs) == 0 {
			return nil
		}
		best := cs[0]
		for _, c := range cs[1:] {
			if deadlineBefore(c, best) {
				best = c
			}
		}
		return &best
	}

	if next := pick(sameTrack); next != nil {
		return next
	}
	return pick(otherTrack)
}

func deadlineAfter(a, b domain.Contest) bool {
	da, okA := parseDeadline(a.SubmissionDeadline)
	db, okB := parseDeadline(b.SubmissionDeadline)
	if !okA {
		return false
	}
	if !okB {
		return true
	}
	return da.After(db)
}

func deadlineBefore(a, b domain.Contest) bool {
	da, okA := parseDeadline(a.SubmissionDeadline)
	db, okB := parseDeadline(b.SubmissionDeadline)
	if !okA {
		return false
	}
	if !okB {
		return true
	}
	return da.Before(db)
}

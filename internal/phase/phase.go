// Package phase derives contest lifecycle phases and picks the current and
// next contest out of the full contest list. Everything here is pure: phase
// is a function of the clock and the contest record, never stored state.
package phase

import (
	"time"

	"storyhub/internal/domain"
)

// Phase is a contest's lifecycle phase at a given instant.
type Phase string

const (
	PhaseSubmission Phase = "submission"
	PhaseVoting     Phase = "voting"
	PhaseCounting   Phase = "counting"
	PhaseResults    Phase = "results"
	PhaseUnknown    Phase = "unknown"
)

// Resolve derives the phase of a contest at the given instant. Callers must
// re-evaluate on every read; caching the result desyncs it from the clock.
//
// The counting phase covers the window where voting has elapsed but nobody
// has finalized the contest yet: deadline passage alone does not
// retroactively publish results.
func Resolve(c domain.Contest, now time.Time) Phase {
	submission, okSub := parseDeadline(c.SubmissionDeadline)
	voting, okVote := parseDeadline(c.VotingDeadline)
	if !okSub || !okVote {
		return PhaseUnknown
	}

	if !now.After(submission) {
		return PhaseSubmission
	}
	if !now.After(voting) {
		return PhaseVoting
	}
	if c.Status == domain.StatusResults || c.FinalizedAt != nil {
		return PhaseResults
	}
	return PhaseCounting
}

// parseDeadline parses a wire deadline. Accepts RFC 3339 with or without a
// sub-second part, plus the bare date form some older records carry.
func parseDeadline(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyhub/internal/domain"
)

func openContest(id, title string, submissionIn, votingIn time.Duration) domain.Contest {
	return domain.Contest{
		ID:                 id,
		Title:              title,
		SubmissionDeadline: ts(testNow.Add(submissionIn)),
		VotingDeadline:     ts(testNow.Add(votingIn)),
	}
}

func TestFindCurrentPrefersTestContests(t *testing.T) {
	contests := []domain.Contest{
		openContest("prod-1", "March Flash Fiction", 24*time.Hour, 72*time.Hour),
		openContest("test-1", "[TEST] staging run", 12*time.Hour, 48*time.Hour),
		openContest("test-2", "Demo contest", 36*time.Hour, 96*time.Hour),
	}

	current := FindCurrent(contests, testNow)
	require.NotNil(t, current)
	// Latest submission deadline among open test contests wins.
	assert.Equal(t, "test-2", current.ID)
}

func TestFindCurrentEarliestActiveProduction(t *testing.T) {
	contests := []domain.Contest{
		openContest("prod-late", "May Stories", 30*24*time.Hour, 40*24*time.Hour),
		openContest("prod-soon", "March Stories", 24*time.Hour, 72*time.Hour),
	}

	current := FindCurrent(contests, testNow)
	require.NotNil(t, current)
	assert.Equal(t, "prod-soon", current.ID)
}

func TestFindCurrentSkipsFinalized(t *testing.T) {
	finalized := testNow.Add(-time.Hour)
	contests := []domain.Contest{
		{
			ID:                 "done",
			Title:              "February Stories",
			SubmissionDeadline: ts(testNow.Add(-48 * time.Hour)),
			VotingDeadline:     ts(testNow.Add(-24 * time.Hour)),
			FinalizedAt:        &finalized,
		},
		openContest("live", "March Stories", 24*time.Hour, 72*time.Hour),
	}

	current := FindCurrent(contests, testNow)
	require.NotNil(t, current)
	assert.Equal(t, "live", current.ID)
	assert.Nil(t, current.FinalizedAt)
}

func TestFindCurrentNeverReturnsFinalized(t *testing.T) {
	finalized := testNow
	contests := []domain.Contest{
		{ID: "a", SubmissionDeadline: ts(testNow.Add(time.Hour)), VotingDeadline: ts(testNow.Add(2 * time.Hour)), FinalizedAt: &finalized},
		{ID: "b", Status: "results", SubmissionDeadline: ts(testNow.Add(time.Hour)), VotingDeadline: ts(testNow.Add(2 * time.Hour))},
		{ID: "c", Title: "[test] staging", SubmissionDeadline: ts(testNow.Add(time.Hour)), VotingDeadline: ts(testNow.Add(2 * time.Hour)), FinalizedAt: &finalized},
	}
	for _, c := range contests {
		assert.True(t, c.Finalized())
	}
	// Even with open-looking deadlines, finalized contests never come back.
	assert.Nil(t, FindCurrent(contests, testNow))
	assert.Nil(t, FindCurrent(nil, testNow))
}

func TestFindCurrentFallbacks(t *testing.T) {
	t.Run("open contest with unparsable deadlines still wins", func(t *testing.T) {
		contests := []domain.Contest{
			{ID: "x", Title: "Old", Status: "archived", FinalizedAt: ptrTime(testNow)},
			{ID: "y", Title: "Current", Status: "voting"},
		}
		current := FindCurrent(contests, testNow)
		require.NotNil(t, current)
		assert.Equal(t, "y", current.ID)
	})

	t.Run("all contests finalized means no current contest", func(t *testing.T) {
		contests := []domain.Contest{
			{ID: "only", Title: "Whatever", Status: "archived", FinalizedAt: ptrTime(testNow)},
		}
		assert.Nil(t, FindCurrent(contests, testNow))
	})

	t.Run("empty list", func(t *testing.T) {
		assert.Nil(t, FindCurrent([]domain.Contest{}, testNow))
	})
}

func TestFindCurrentBestEffortWhenDatesStale(t *testing.T) {
	// Open (not finalized) production contests whose dates have all fully
	// elapsed into counting still qualify by date; if even that fails the
	// most recent one is returned.
	contests := []domain.Contest{
		{ID: "older", Title: "Jan", SubmissionDeadline: "junk", VotingDeadline: "junk"},
		{ID: "newer", Title: "Feb", SubmissionDeadline: ts(testNow.Add(-10 * 24 * time.Hour)), VotingDeadline: ts(testNow.Add(-5 * 24 * time.Hour))},
	}
	current := FindCurrent(contests, testNow)
	require.NotNil(t, current)
	assert.Equal(t, "newer", current.ID)
}

func TestFindNext(t *testing.T) {
	current := openContest("cur", "March Stories", 24*time.Hour, 72*time.Hour)
	contests := []domain.Contest{
		current,
		openContest("apr", "April Stories", 30*24*time.Hour, 35*24*time.Hour),
		openContest("may", "May Stories", 60*24*time.Hour, 65*24*time.Hour),
		openContest("test", "[test] staging", 10*24*time.Hour, 15*24*time.Hour),
	}

	next := FindNext(contests, &current, testNow)
	require.NotNil(t, next)
	// Same production track, earliest deadline strictly after current's.
	assert.Equal(t, "apr", next.ID)
}

func TestFindNextExcludesFinalizedAndCurrent(t *testing.T) {
	current := openContest("cur", "March Stories", 24*time.Hour, 72*time.Hour)
	contests := []domain.Contest{
		current,
		{ID: "res", Title: "April Stories", Status: "results",
			SubmissionDeadline: ts(testNow.Add(30 * 24 * time.Hour)),
			VotingDeadline:     ts(testNow.Add(35 * 24 * time.Hour))},
	}
	assert.Nil(t, FindNext(contests, &current, testNow))
}

func TestFindNextCrossTrackFallback(t *testing.T) {
	current := openContest("cur", "March Stories", 24*time.Hour, 72*time.Hour)
	contests := []domain.Contest{
		current,
		openContest("test", "[TEST] April staging", 30*24*time.Hour, 35*24*time.Hour),
	}
	next := FindNext(contests, &current, testNow)
	require.NotNil(t, next)
	assert.Equal(t, "test", next.ID)
}

func TestFindNextNilCurrent(t *testing.T) {
	assert.Nil(t, FindNext([]domain.Contest{openContest("a", "A", time.Hour, 2*time.Hour)}, nil, testNow))
}

func TestIsTestContest(t *testing.T) {
	assert.True(t, IsTestContest(domain.Contest{Title: "[TEST] run"}))
	assert.True(t, IsTestContest(domain.Contest{Title: "Platform Demo March"}))
	assert.False(t, IsTestContest(domain.Contest{Title: "March Flash Fiction"}))
}

func ptrTime(t time.Time) *time.Time { return &t }

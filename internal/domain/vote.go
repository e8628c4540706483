package domain

import "time"

// Vote is a (user, story) pair. Existence is binary; a user either holds a
// vote on a story or does not.
type Vote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StoryID   string    `json:"story_id"`
	ContestID string    `json:"contest_id"`
	CreatedAt time.Time `json:"created_at"`
}

// VotedStory links a standing vote to its story and contest for display.
type VotedStory struct {
	StoryID   string `json:"story_id"`
	ContestID string `json:"contest_id"`
	Title     string `json:"title"`
}

// VotingStats is a derived aggregate, recomputed whenever the identity or
// the current contest changes (CurrentContestVotes depends on which contest
// is current). It is never persisted.
type VotingStats struct {
	TotalVotes          int          `json:"total_votes"`
	VotedStories        []VotedStory `json:"voted_stories"`
	CurrentContestVotes int          `json:"current_contest_votes"`
}

// VoteDecision is the answer to "may this user vote on this story right
// now". Denials are ordinary values, not errors.
type VoteDecision struct {
	Allowed        bool   `json:"allowed"`
	Reason         string `json:"reason,omitempty"`
	Phase          string `json:"phase"`
	HasVoted       bool   `json:"has_voted"`
	VotesUsed      int    `json:"votes_used"`
	MaxVotes       int    `json:"max_votes"`
	VotesRemaining int    `json:"votes_remaining"`
}

// ToggleVoteResult reports the outcome of an idempotent vote flip. Voted is
// the standing state after the call. A budget-exceeded decline carries
// VotesUsed/MaxVotes so the view can explain itself.
type ToggleVoteResult struct {
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
	Voted     bool   `json:"voted"`
	VotesUsed int    `json:"votes_used"`
	MaxVotes  int    `json:"max_votes"`
}

// Decline reasons shared between CanVote and ToggleVote.
const (
	ReasonContestNotFound = "contest not found"
	ReasonSelfVote        = "no self-voting"
	ReasonVotingNotOpen   = "voting not open yet"
	ReasonVotingClosed    = "voting closed"
	ReasonCounting        = "closed automatically, awaiting finalization"
	ReasonBudgetExceeded  = "vote limit reached for the current contest"
	ReasonPhaseUnknown    = "contest schedule unknown"
	ReasonNotSignedIn     = "sign in to vote"
)

package store

import (
	"time"

	"storyhub/internal/domain"
)

// Action is the sealed vocabulary of state transitions. Each action is a
// plain value; anything asynchronous happens before the dispatch.
type Action interface {
	isAction()
}

// AuthSettled records the outcome of an identity settle. It always marks
// the auth subsystem as initialized, even when the settle failed.
type AuthSettled struct {
	User          *domain.UserProfile
	Authenticated bool
}

// SignedOut clears identity and all user-scoped slices. AuthInitialized is
// deliberately left true.
type SignedOut struct{}

// UserScopedCleared wipes user-scoped slices without touching identity
// flags. Used by the ghost-session guard before the forced sign-out lands.
type UserScopedCleared struct{}

// ResetPendingSet flags an in-progress password-reset flow.
type ResetPendingSet struct {
	Pending bool
}

// ContestsLoaded replaces the contest list and the selector's output.
type ContestsLoaded struct {
	Contests []domain.Contest
	Current  *domain.Contest
	Next     *domain.Contest
	At       time.Time
}

// UserStoriesLoaded replaces the user's own stories.
type UserStoriesLoaded struct {
	Stories []domain.Story
	At      time.Time
}

// StorySubmitted appends a freshly created story to the user's stories.
type StorySubmitted struct {
	Story domain.Story
}

// StoriesRemoved drops stories from every local projection (own stories,
// galleries). Server-side deletion has already happened.
type StoriesRemoved struct {
	StoryIDs []string
}

// VotesLoaded replaces the user's standing votes and the derived stats.
type VotesLoaded struct {
	Votes []domain.Vote
	Stats *domain.VotingStats
	At    time.Time
}

// GalleryLoaded replaces one contest's gallery projection.
type GalleryLoaded struct {
	ContestID string
	Stories   []domain.GalleryStory
	At        time.Time
}

// StoryVotePatched is the optimistic local patch applied immediately on a
// vote toggle: ±1 like count and the flipped IsLiked flag, plus the vote
// row itself. The delayed authoritative reload corrects any drift.
type StoryVotePatched struct {
	ContestID string
	StoryID   string
	Vote      *domain.Vote // set when adding, nil when removing
	Liked     bool
}

// StoryViewCounted bumps a story's view counter locally.
type StoryViewCounted struct {
	ContestID string
	StoryID   string
}

// FinishedContestCached writes a finalized contest's assembled story list
// into the finished-entity cache.
type FinishedContestCached struct {
	ContestID string
	Stories   []domain.GalleryStory
}

// FinishedStoryCached writes a finalized story into the cache.
type FinishedStoryCached struct {
	StoryID string
	Story   domain.GalleryStory
}

// FinishedCacheCleared is the explicit administrative cache clear. Nothing
// else ever evicts finished entries.
type FinishedCacheCleared struct{}

// SliceLoadingSet toggles a slice's loading flag.
type SliceLoadingSet struct {
	Slice   Slice
	Loading bool
}

func (AuthSettled) isAction()           {}
func (SignedOut) isAction()             {}
func (UserScopedCleared) isAction()     {}
func (ResetPendingSet) isAction()       {}
func (ContestsLoaded) isAction()        {}
func (UserStoriesLoaded) isAction()     {}
func (StorySubmitted) isAction()        {}
func (StoriesRemoved) isAction()        {}
func (VotesLoaded) isAction()           {}
func (GalleryLoaded) isAction()         {}
func (StoryVotePatched) isAction()      {}
func (StoryViewCounted) isAction()      {}
func (FinishedContestCached) isAction() {}
func (FinishedStoryCached) isAction()   {}
func (FinishedCacheCleared) isAction()  {}
func (SliceLoadingSet) isAction()       {}

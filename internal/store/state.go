// Package store implements the global reactive state tree. All mutation
// goes through a single reducer dispatch path; asynchronous work lives in
// the services, which dispatch plain synchronous actions before and after
// their network calls. The reducer itself performs no I/O, so every state
// transition is replayable in isolation.
package store

import (
	"time"

	"storyhub/internal/domain"
)

// Slice names a state slice tracked by the data-freshness ledger.
type Slice string

const (
	SliceContests    Slice = "contests"
	SliceUserStories Slice = "userStories"
	SliceVotingStats Slice = "votingStats"
	SliceGallery     Slice = "gallery"
)

// State is the full client state tree. Treat snapshots as immutable: the
// reducer copies every map and slice it touches, so a snapshot taken before
// a dispatch never changes underneath its holder.
type State struct {
	// Identity. AuthInitialized stays true after the first settle even
	// through sign-outs, so the view never re-enters an indefinite loading
	// state just because the user logged out.
	User            *domain.UserProfile
	IsAuthenticated bool
	AuthInitialized bool
	ResetPending    bool

	Contests       []domain.Contest
	CurrentContest *domain.Contest
	NextContest    *domain.Contest

	UserStories []domain.Story
	UserVotes   []domain.Vote
	VotingStats *domain.VotingStats

	// Gallery holds the per-contest story projections currently on screen.
	Gallery map[string][]domain.GalleryStory

	// Finished-entity cache, first tier. Written only for contests whose
	// status is "results"; no TTL, cleared only by FinishedCacheCleared.
	FinishedContests map[string][]domain.GalleryStory
	FinishedStories  map[string]domain.GalleryStory

	Loading   map[Slice]bool
	Freshness map[Slice]time.Time
}

// NewState returns the initial state tree.
func NewState() State {
	return State{
		Gallery:          map[string][]domain.GalleryStory{},
		FinishedContests: map[string][]domain.GalleryStory{},
		FinishedStories:  map[string]domain.GalleryStory{},
		Loading:          map[Slice]bool{},
		Freshness:        map[Slice]time.Time{},
	}
}

// Stale reports whether a slice has not been refreshed within maxAge. The
// ledger is advisory: consumers decide whether to reload, the store never
// reloads by itself.
func (s State) Stale(slice Slice, maxAge time.Duration, now time.Time) bool {
	at, ok := s.Freshness[slice]
	if !ok {
		return true
	}
	return now.Sub(at) > maxAge
}

// CountVotesIn counts the user's standing votes within the given contest.
func (s State) CountVotesIn(contestID string) int {
	n := 0
	for _, v := range s.UserVotes {
		if v.ContestID == contestID {
			n++
		}
	}
	return n
}

// HasVoteOn reports whether the user holds a standing vote on the story.
func (s State) HasVoteOn(storyID string) bool {
	for _, v := range s.UserVotes {
		if v.StoryID == storyID {
			return true
		}
	}
	return false
}

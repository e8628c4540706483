package store

import (
	"time"

	"storyhub/internal/domain"
)

// reduce applies one action to the state and returns the next state. It is
// pure: no I/O, no clock reads, no mutation of the incoming state. Every
// map or slice it changes is copied first.
func reduce(state State, action Action) State {
	switch a := action.(type) {

	case AuthSettled:
		state.User = a.User
		state.IsAuthenticated = a.Authenticated
		state.AuthInitialized = true
		return state

	case SignedOut:
		state = clearUserScoped(state)
		state.User = nil
		state.IsAuthenticated = false
		// AuthInitialized stays true: the subsystem finished initializing
		// even though nobody is signed in.
		state.AuthInitialized = true
		state.ResetPending = false
		return state

	case UserScopedCleared:
		return clearUserScoped(state)

	case ResetPendingSet:
		state.ResetPending = a.Pending
		return state

	case ContestsLoaded:
		state.Contests = a.Contests
		state.CurrentContest = a.Current
		state.NextContest = a.Next
		state.Freshness = stampFreshness(state.Freshness, SliceContests, a)
		// CurrentContestVotes depends on which contest is current, so the
		// derived stats must follow a selector change.
		if state.VotingStats != nil {
			stats := *state.VotingStats
			stats.CurrentContestVotes = 0
			if a.Current != nil {
				stats.CurrentContestVotes = state.CountVotesIn(a.Current.ID)
			}
			state.VotingStats = &stats
		}
		return state

	case UserStoriesLoaded:
		state.UserStories = a.Stories
		state.Freshness = stampFreshness(state.Freshness, SliceUserStories, a)
		return state

	case StorySubmitted:
		stories := make([]domain.Story, 0, len(state.UserStories)+1)
		stories = append(stories, state.UserStories...)
		state.UserStories = append(stories, a.Story)
		return state

	case StoriesRemoved:
		removed := map[string]bool{}
		for _, id := range a.StoryIDs {
			removed[id] = true
		}
		state.UserStories = filterStories(state.UserStories, removed)
		state.UserVotes = filterVotes(state.UserVotes, removed)
		gallery := make(map[string][]domain.GalleryStory, len(state.Gallery))
		for contestID, stories := range state.Gallery {
			kept := make([]domain.GalleryStory, 0, len(stories))
			for _, s := range stories {
				if !removed[s.ID] {
					kept = append(kept, s)
				}
			}
			gallery[contestID] = kept
		}
		state.Gallery = gallery
		return state

	case VotesLoaded:
		state.UserVotes = a.Votes
		state.VotingStats = a.Stats
		state.Freshness = stampFreshness(state.Freshness, SliceVotingStats, a)
		return state

	case GalleryLoaded:
		gallery := copyGallery(state.Gallery)
		gallery[a.ContestID] = a.Stories
		state.Gallery = gallery
		state.Freshness = stampFreshness(state.Freshness, SliceGallery, a)
		return state

	case StoryVotePatched:
		state = patchGalleryVote(state, a)
		if a.Vote != nil {
			votes := make([]domain.Vote, 0, len(state.UserVotes)+1)
			votes = append(votes, state.UserVotes...)
			state.UserVotes = append(votes, *a.Vote)
		} else {
			state.UserVotes = removeVoteFor(state.UserVotes, a.StoryID)
		}
		state.VotingStats = patchStats(state, a)
		return state

	case StoryViewCounted:
		gallery := copyGallery(state.Gallery)
		gallery[a.ContestID] = patchStory(gallery[a.ContestID], a.StoryID, func(s *domain.GalleryStory) {
			s.ViewsCount++
		})
		state.Gallery = gallery
		return state

	case FinishedContestCached:
		cached := make(map[string][]domain.GalleryStory, len(state.FinishedContests)+1)
		for k, v := range state.FinishedContests {
			cached[k] = v
		}
		cached[a.ContestID] = a.Stories
		state.FinishedContests = cached
		return state

	case FinishedStoryCached:
		cached := make(map[string]domain.GalleryStory, len(state.FinishedStories)+1)
		for k, v := range state.FinishedStories {
			cached[k] = v
		}
		cached[a.StoryID] = a.Story
		state.FinishedStories = cached
		return state

	case FinishedCacheCleared:
		state.FinishedContests = map[string][]domain.GalleryStory{}
		state.FinishedStories = map[string]domain.GalleryStory{}
		return state

	case SliceLoadingSet:
		loading := make(map[Slice]bool, len(state.Loading)+1)
		for k, v := range state.Loading {
			loading[k] = v
		}
		loading[a.Slice] = a.Loading
		state.Loading = loading
		return state

	default:
		return state
	}
}

// clearUserScoped wipes everything tied to the signed-in user. Finished
// caches survive (finalized data is immutable) but their viewer-specific
// IsLiked flags are reset.
func clearUserScoped(state State) State {
	state.UserStories = nil
	state.UserVotes = nil
	state.VotingStats = nil
	state.Gallery = map[string][]domain.GalleryStory{}
	state.Loading = map[Slice]bool{}

	freshness := make(map[Slice]time.Time, 1)
	if at, ok := state.Freshness[SliceContests]; ok {
		freshness[SliceContests] = at
	}
	state.Freshness = freshness

	finished := make(map[string][]domain.GalleryStory, len(state.FinishedContests))
	for contestID, stories := range state.FinishedContests {
		cleared := make([]domain.GalleryStory, len(stories))
		for i, s := range stories {
			s.IsLiked = false
			cleared[i] = s
		}
		finished[contestID] = cleared
	}
	state.FinishedContests = finished

	finishedStories := make(map[string]domain.GalleryStory, len(state.FinishedStories))
	for id, s := range state.FinishedStories {
		s.IsLiked = false
		finishedStories[id] = s
	}
	state.FinishedStories = finishedStories

	return state
}

func patchGalleryVote(state State, a StoryVotePatched) State {
	gallery := copyGallery(state.Gallery)
	delta := -1
	if a.Liked {
		delta = 1
	}
	gallery[a.ContestID] = patchStory(gallery[a.ContestID], a.StoryID, func(s *domain.GalleryStory) {
		s.LikesCount += delta
		if s.LikesCount < 0 {
			s.LikesCount = 0
		}
		s.IsLiked = a.Liked
	})
	state.Gallery = gallery
	return state
}

func patchStats(state State, a StoryVotePatched) *domain.VotingStats {
	if state.VotingStats == nil {
		return nil
	}
	stats := *state.VotingStats
	inCurrent := state.CurrentContest != nil && state.CurrentContest.ID == a.ContestID
	if a.Liked {
		stats.TotalVotes++
		if inCurrent {
			stats.CurrentContestVotes++
		}
		voted := make([]domain.VotedStory, 0, len(stats.VotedStories)+1)
		voted = append(voted, stats.VotedStories...)
		stats.VotedStories = append(voted, domain.VotedStory{StoryID: a.StoryID, ContestID: a.ContestID})
	} else {
		if stats.TotalVotes > 0 {
			stats.TotalVotes--
		}
		if inCurrent && stats.CurrentContestVotes > 0 {
			stats.CurrentContestVotes--
		}
		voted := make([]domain.VotedStory, 0, len(stats.VotedStories))
		for _, v := range stats.VotedStories {
			if v.StoryID != a.StoryID {
				voted = append(voted, v)
			}
		}
		stats.VotedStories = voted
	}
	return &stats
}

func patchStory(stories []domain.GalleryStory, storyID string, patch func(*domain.GalleryStory)) []domain.GalleryStory {
	out := make([]domain.GalleryStory, len(stories))
	copy(out, stories)
	for i := range out {
		if out[i].ID == storyID {
			patch(&out[i])
		}
	}
	return out
}

func copyGallery(gallery map[string][]domain.GalleryStory) map[string][]domain.GalleryStory {
	out := make(map[string][]domain.GalleryStory, len(gallery))
	for k, v := range gallery {
		out[k] = v
	}
	return out
}

func filterStories(stories []domain.Story, removed map[string]bool) []domain.Story {
	out := make([]domain.Story, 0, len(stories))
	for _, s := range stories {
		if !removed[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

func filterVotes(votes []domain.Vote, removed map[string]bool) []domain.Vote {
	out := make([]domain.Vote, 0, len(votes))
	for _, v := range votes {
		if !removed[v.StoryID] {
			out = append(out, v)
		}
	}
	return out
}

func removeVoteFor(votes []domain.Vote, storyID string) []domain.Vote {
	out := make([]domain.Vote, 0, len(votes))
	for _, v := range votes {
		if v.StoryID != storyID {
			out = append(out, v)
		}
	}
	return out
}

// stampFreshness records a slice load in the ledger. The timestamp comes
// from the action so the reducer stays clock-free.
func stampFreshness(freshness map[Slice]time.Time, slice Slice, action Action) map[Slice]time.Time {
	var at time.Time
	switch a := action.(type) {
	case ContestsLoaded:
		at = a.At
	case UserStoriesLoaded:
		at = a.At
	case VotesLoaded:
		at = a.At
	case GalleryLoaded:
		at = a.At
	}
	out := make(map[Slice]time.Time, len(freshness)+1)
	for k, v := range freshness {
		out[k] = v
	}
	out[slice] = at
	return out
}

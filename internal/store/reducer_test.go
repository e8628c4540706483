package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyhub/internal/domain"
)

var reducerNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestReduceAuthSettled(t *testing.T) {
	state := NewState()
	user := &domain.UserProfile{ID: "u-1", Email: "a@b.c"}

	state = reduce(state, AuthSettled{User: user, Authenticated: true})

	assert.Equal(t, user, state.User)
	assert.True(t, state.IsAuthenticated)
	assert.True(t, state.AuthInitialized)
}

func TestReduceSignedOutKeepsAuthInitialized(t *testing.T) {
	state := NewState()
	state = reduce(state, AuthSettled{User: &domain.UserProfile{ID: "u-1"}, Authenticated: true})
	state = reduce(state, VotesLoaded{Votes: []domain.Vote{{ID: "v-1", StoryID: "s-1", ContestID: "c-1"}}, Stats: &domain.VotingStats{TotalVotes: 1}, At: reducerNow})

	state = reduce(state, SignedOut{})

	assert.Nil(t, state.User)
	assert.False(t, state.IsAuthenticated)
	assert.True(t, state.AuthInitialized, "sign-out must not re-enter the uninitialized state")
	assert.Empty(t, state.UserVotes)
	assert.Nil(t, state.VotingStats)
	assert.False(t, state.ResetPending)
}

func TestReduceUserScopedClearedKeepsFinishedCacheWithoutLikes(t *testing.T) {
	state := NewState()
	state = reduce(state, FinishedContestCached{
		ContestID: "c-1",
		Stories: []domain.GalleryStory{
			{Story: domain.Story{ID: "s-1", LikesCount: 4}, IsLiked: true},
		},
	})

	state = reduce(state, UserScopedCleared{})

	require.Len(t, state.FinishedContests["c-1"], 1)
	cached := state.FinishedContests["c-1"][0]
	assert.False(t, cached.IsLiked, "viewer-specific flags do not survive an identity reset")
	assert.Equal(t, 4, cached.LikesCount)
}

func TestReduceContestsLoadedRecomputesCurrentContestVotes(t *testing.T) {
	state := NewState()
	state = reduce(state, VotesLoaded{
		Votes: []domain.Vote{
			{ID: "v-1", StoryID: "s-1", ContestID: "c-1"},
			{ID: "v-2", StoryID: "s-2", ContestID: "c-2"},
		},
		Stats: &domain.VotingStats{TotalVotes: 2, CurrentContestVotes: 1},
		At:    reducerNow,
	})

	current := &domain.Contest{ID: "c-2", Title: "April"}
	state = reduce(state, ContestsLoaded{Contests: []domain.Contest{*current}, Current: current, At: reducerNow})

	require.NotNil(t, state.VotingStats)
	assert.Equal(t, 1, state.VotingStats.CurrentContestVotes)
	assert.Equal(t, 2, state.VotingStats.TotalVotes)
}

func TestReduceVotePatchRoundTrip(t *testing.T) {
	state := NewState()
	state = reduce(state, GalleryLoaded{
		ContestID: "c-1",
		Stories: []domain.GalleryStory{
			{Story: domain.Story{ID: "s-1", ContestID: "c-1", LikesCount: 5}},
		},
		At: reducerNow,
	})
	state = reduce(state, ContestsLoaded{Current: &domain.Contest{ID: "c-1"}, At: reducerNow})
	state = reduce(state, VotesLoaded{Stats: &domain.VotingStats{}, At: reducerNow})

	before := state

	vote := &domain.Vote{ID: "v-1", UserID: "u-1", StoryID: "s-1", ContestID: "c-1"}
	state = reduce(state, StoryVotePatched{ContestID: "c-1", StoryID: "s-1", Vote: vote, Liked: true})

	assert.Equal(t, 6, state.Gallery["c-1"][0].LikesCount)
	assert.True(t, state.Gallery["c-1"][0].IsLiked)
	assert.True(t, state.HasVoteOn("s-1"))
	assert.Equal(t, 1, state.VotingStats.TotalVotes)
	assert.Equal(t, 1, state.VotingStats.CurrentContestVotes)

	state = reduce(state, StoryVotePatched{ContestID: "c-1", StoryID: "s-1", Vote: nil, Liked: false})

	// Add then remove returns both the vote state and the optimistic
	// counters to their original values.
	assert.Equal(t, before.Gallery["c-1"][0].LikesCount, state.Gallery["c-1"][0].LikesCount)
	assert.False(t, state.Gallery["c-1"][0].IsLiked)
	assert.False(t, state.HasVoteOn("s-1"))
	assert.Equal(t, before.VotingStats.TotalVotes, state.VotingStats.TotalVotes)
	assert.Equal(t, before.VotingStats.CurrentContestVotes, state.VotingStats.CurrentContestVotes)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	state := NewState()
	state = reduce(state, GalleryLoaded{
		ContestID: "c-1",
		Stories:   []domain.GalleryStory{{Story: domain.Story{ID: "s-1", LikesCount: 2}}},
		At:        reducerNow,
	})

	before := state
	_ = reduce(state, StoryVotePatched{ContestID: "c-1", StoryID: "s-1", Vote: &domain.Vote{StoryID: "s-1"}, Liked: true})

	assert.Equal(t, 2, before.Gallery["c-1"][0].LikesCount, "snapshots must not change underneath their holders")
	assert.False(t, before.Gallery["c-1"][0].IsLiked)
}

func TestReduceStoriesRemoved(t *testing.T) {
	state := NewState()
	state = reduce(state, UserStoriesLoaded{
		Stories: []domain.Story{{ID: "s-1"}, {ID: "s-2"}},
		At:      reducerNow,
	})
	state = reduce(state, GalleryLoaded{
		ContestID: "c-1",
		Stories:   []domain.GalleryStory{{Story: domain.Story{ID: "s-1"}}, {Story: domain.Story{ID: "s-3"}}},
		At:        reducerNow,
	})
	state = reduce(state, VotesLoaded{Votes: []domain.Vote{{ID: "v-1", StoryID: "s-1"}}, At: reducerNow})

	state = reduce(state, StoriesRemoved{StoryIDs: []string{"s-1"}})

	require.Len(t, state.UserStories, 1)
	assert.Equal(t, "s-2", state.UserStories[0].ID)
	require.Len(t, state.Gallery["c-1"], 1)
	assert.Equal(t, "s-3", state.Gallery["c-1"][0].ID)
	assert.Empty(t, state.UserVotes)
}

func TestReduceFinishedCacheClear(t *testing.T) {
	state := NewState()
	state = reduce(state, FinishedContestCached{ContestID: "c-1", Stories: []domain.GalleryStory{{}}})
	state = reduce(state, FinishedStoryCached{StoryID: "s-1", Story: domain.GalleryStory{}})

	require.Len(t, state.FinishedContests, 1)
	require.Len(t, state.FinishedStories, 1)

	state = reduce(state, FinishedCacheCleared{})

	assert.Empty(t, state.FinishedContests)
	assert.Empty(t, state.FinishedStories)
}

func TestReduceFreshnessLedger(t *testing.T) {
	state := NewState()
	assert.True(t, state.Stale(SliceContests, time.Minute, reducerNow))

	state = reduce(state, ContestsLoaded{At: reducerNow})

	assert.False(t, state.Stale(SliceContests, time.Minute, reducerNow.Add(30*time.Second)))
	assert.True(t, state.Stale(SliceContests, time.Minute, reducerNow.Add(2*time.Minute)))
	assert.True(t, state.Stale(SliceGallery, time.Minute, reducerNow))
}

func TestReduceSliceLoading(t *testing.T) {
	state := NewState()
	state = reduce(state, SliceLoadingSet{Slice: SliceUserStories, Loading: true})
	assert.True(t, state.Loading[SliceUserStories])

	state = reduce(state, SliceLoadingSet{Slice: SliceUserStories, Loading: false})
	assert.False(t, state.Loading[SliceUserStories])
}

func TestReduceViewCounted(t *testing.T) {
	state := NewState()
	state = reduce(state, GalleryLoaded{
		ContestID: "c-1",
		Stories:   []domain.GalleryStory{{Story: domain.Story{ID: "s-1", ViewsCount: 7}}},
		At:        reducerNow,
	})

	state = reduce(state, StoryViewCounted{ContestID: "c-1", StoryID: "s-1"})

	assert.Equal(t, 8, state.Gallery["c-1"][0].ViewsCount)
}

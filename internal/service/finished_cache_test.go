package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyhub/internal/domain"
	"storyhub/internal/store"
	"storyhub/pkg/logger"
	"storyhub/pkg/redis"
)

type cacheFixture struct {
	store   *store.Store
	records *fakeRecordStore
	cache   *FinishedCacheService
}

func newCacheFixture(t *testing.T, redisClient *redis.Client) *cacheFixture {
	t.Helper()
	st := store.New(3, logger.NewNop())
	records := newFakeRecordStore()
	return &cacheFixture{
		store:   st,
		records: records,
		cache:   NewFinishedCacheService(st, records, redisClient, logger.NewNop()),
	}
}

func (f *cacheFixture) seedContest(id, status string) {
	f.records.contests[id] = domain.Contest{
		ID:                 id,
		Title:              "Contest " + id,
		SubmissionDeadline: time.Now().Add(-96 * time.Hour).Format(time.RFC3339),
		VotingDeadline:     time.Now().Add(-48 * time.Hour).Format(time.RFC3339),
		Status:             status,
	}
	f.records.stories["story-"+id] = domain.Story{
		ID:        "story-" + id,
		UserID:    "author-1",
		ContestID: id,
		Title:     "Winner of " + id,
	}
	f.records.profiles["author-1"] = domain.UserProfile{ID: "author-1", Name: "Author One"}
}

func (f *cacheFixture) listCalls() int {
	f.records.mu.Lock()
	defer f.records.mu.Unlock()
	return f.records.storyListCalls
}

func TestFinishedContestServedFromCache(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.seedContest("contest-done", domain.StatusResults)

	first, err := f.cache.GetStoriesByContest(context.Background(), "contest-done", false)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "Author One", first[0].AuthorName)
	assert.Equal(t, 1, f.listCalls())

	second, err := f.cache.GetStoriesByContest(context.Background(), "contest-done", false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.listCalls(), "a finalized contest must not be refetched")

	_, err = f.cache.GetStoriesByContest(context.Background(), "contest-done", true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.listCalls(), "forceRefresh must bypass the cache")
}

func TestActiveContestNeverCached(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.seedContest("contest-live", "active")

	for i := 1; i <= 3; i++ {
		_, err := f.cache.GetStoriesByContest(context.Background(), "contest-live", false)
		require.NoError(t, err)
		assert.Equal(t, i, f.listCalls(), "non-finalized contests are always fetched live")
	}
	assert.Empty(t, f.store.Snapshot().FinishedContests)
}

func TestFinishedStoryCachedOnlyWhenFinalized(t *testing.T) {
	f := newCacheFixture(t, nil)
	f.seedContest("contest-done", domain.StatusResults)
	f.seedContest("contest-live", "active")

	story, err := f.cache.GetStoryByID(context.Background(), "story-contest-done", false)
	require.NoError(t, err)
	assert.Equal(t, "Author One", story.AuthorName)
	assert.Contains(t, f.store.Snapshot().FinishedStories, "story-contest-done")

	_, err = f.cache.GetStoryByID(context.Background(), "story-contest-live", false)
	require.NoError(t, err)
	assert.NotContains(t, f.store.Snapshot().FinishedStories, "story-contest-live")
}

func TestRedisTierWarmsAndClears(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(fmt.Sprintf("redis://%s", mr.Addr()), "staging", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	f := newCacheFixture(t, client)
	f.seedContest("contest-done", domain.StatusResults)

	_, err = f.cache.GetStoriesByContest(context.Background(), "contest-done", false)
	require.NoError(t, err)

	key := client.KeyBuilder.KeyFinishedContest("contest-done")
	exists, err := client.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "finalized contest must be written through to redis")
	assert.Equal(t, time.Duration(0), mr.TTL(key), "finished entries carry no TTL")

	// A fresh process (empty tier 1) is served from the redis tier.
	st2 := store.New(3, logger.NewNop())
	fresh := NewFinishedCacheService(st2, f.records, client, logger.NewNop())
	before := f.listCalls()
	stories, err := fresh.GetStoriesByContest(context.Background(), "contest-done", false)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, before, f.listCalls(), "redis hit must not refetch")
	assert.Contains(t, st2.Snapshot().FinishedContests, "contest-done", "redis hit must warm tier 1")

	require.NoError(t, f.cache.ClearCache(context.Background()))
	exists, err = client.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.Zero(t, exists, "administrative clear must evict the redis tier")
	assert.Empty(t, f.store.Snapshot().FinishedContests)
}

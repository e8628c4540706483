package service

import (
	"context"
	"encoding/json"
	"time"

	"storyhub/internal/domain"
	"storyhub/internal/repository"
	"storyhub/internal/store"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
	"storyhub/pkg/redis"
)

// FinishedCacheService serves finalized contests and stories from cache.
// Tier 1 is the cache map inside store state, written only through
// dispatched actions; tier 2 is an optional Redis layer with no expiry.
// Only entities whose contest status is "results" are ever cached; anything
// still changing is fetched live.
type FinishedCacheService struct {
	store   *store.Store
	records repository.RecordStore
	cache   *redis.Client // nil disables the second tier
	logger  *logger.Logger
}

// NewFinishedCacheService creates the cache service. cacheClient may be nil.
func NewFinishedCacheService(st *store.Store, records repository.RecordStore, cacheClient *redis.Client, log *logger.Logger) *FinishedCacheService {
	return &FinishedCacheService{
		store:   st,
		records: records,
		cache:   cacheClient,
		logger:  log.Named("finished-cache"),
	}
}

// GetStoriesByContest returns a contest's assembled story list, served from
// cache when the contest is finalized and forceRefresh is false.
func (s *FinishedCacheService) GetStoriesByContest(ctx context.Context, contestID string, forceRefresh bool) ([]domain.GalleryStory, error) {
	if !forceRefresh {
		if stories, ok := s.store.Snapshot().FinishedContests[contestID]; ok {
			return stories, nil
		}
		if stories, ok := s.contestFromRedis(ctx, contestID); ok {
			s.store.Dispatch(store.FinishedContestCached{ContestID: contestID, Stories: stories})
			return stories, nil
		}
	}

	contest, err := s.records.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	snapshot := s.store.Snapshot()
	stories, err := assembleGallery(ctx, s.records, snapshot, contestID, s.logger)
	if err != nil {
		return nil, err
	}

	if contest.Status == domain.StatusResults {
		s.store.Dispatch(store.FinishedContestCached{ContestID: contestID, Stories: stories})
		s.writeContestToRedis(ctx, contestID, stories)
	}
	return stories, nil
}

// GetStoryByID returns one assembled story, cached only when its contest is
// finalized.
func (s *FinishedCacheService) GetStoryByID(ctx context.Context, storyID string, forceRefresh bool) (*domain.GalleryStory, error) {
	if !forceRefresh {
		if story, ok := s.store.Snapshot().FinishedStories[storyID]; ok {
			return &story, nil
		}
		if story, ok := s.storyFromRedis(ctx, storyID); ok {
			s.store.Dispatch(store.FinishedStoryCached{StoryID: storyID, Story: *story})
			return story, nil
		}
	}

	raw, err := s.records.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	assembled := domain.GalleryStory{Story: *raw}
	assembled.IsLiked = s.store.Snapshot().HasVoteOn(storyID)

	var finalized bool
	contest, err := s.records.GetContest(ctx, raw.ContestID)
	if err == nil {
		assembled.ContestTitle = contest.Title
		finalized = contest.Status == domain.StatusResults
	} else if !apperrors.IsNotFound(err) {
		s.logger.WithError(err).WithField("story_id", storyID).Warn("Contest enrichment failed")
	}
	if profile, err := s.records.GetProfile(ctx, raw.UserID); err == nil {
		assembled.AuthorName = profile.Name
	} else {
		s.logger.WithError(err).WithField("story_id", storyID).Warn("Author enrichment failed")
	}

	if finalized {
		s.store.Dispatch(store.FinishedStoryCached{StoryID: storyID, Story: assembled})
		s.writeStoryToRedis(ctx, storyID, assembled)
	}
	return &assembled, nil
}

// ClearCache is the explicit administrative clear of both tiers. Nothing
// else ever evicts finished entries.
func (s *FinishedCacheService) ClearCache(ctx context.Context) error {
	s.store.Dispatch(store.FinishedCacheCleared{})
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidatePattern(ctx, s.cache.KeyBuilder.PatternFinishedAll()); err != nil {
		return apperrors.NewTransientError("finished-entity cache clear failed", err)
	}
	return nil
}

func (s *FinishedCacheService) contestFromRedis(ctx context.Context, contestID string) ([]domain.GalleryStory, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.KeyBuilder.KeyFinishedContest(contestID))
	if err != nil {
		if !redis.IsMiss(err) {
			s.logger.WithError(err).Warn("Finished-contest cache read failed")
		}
		return nil, false
	}
	var stories []domain.GalleryStory
	if err := json.Unmarshal([]byte(raw), &stories); err != nil {
		s.logger.WithError(err).Warn("Corrupt finished-contest cache entry")
		return nil, false
	}
	return stories, true
}

func (s *FinishedCacheService) storyFromRedis(ctx context.Context, storyID string) (*domain.GalleryStory, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.KeyBuilder.KeyFinishedStory(storyID))
	if err != nil {
		if !redis.IsMiss(err) {
			s.logger.WithError(err).Warn("Finished-story cache read failed")
		}
		return nil, false
	}
	var story domain.GalleryStory
	if err := json.Unmarshal([]byte(raw), &story); err != nil {
		s.logger.WithError(err).Warn("Corrupt finished-story cache entry")
		return nil, false
	}
	return &story, true
}

func (s *FinishedCacheService) writeContestToRedis(ctx context.Context, contestID string, stories []domain.GalleryStory) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(stories)
	if err != nil {
		return
	}
	// Detached from the request context: the data was already served, the
	// cache write should not die with the request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.cache.Set(writeCtx, s.cache.KeyBuilder.KeyFinishedContest(contestID), data, redis.TTLNone); err != nil {
		s.logger.WithError(err).Warn("Finished-contest cache write failed")
	}
}

func (s *FinishedCacheService) writeStoryToRedis(ctx context.Context, storyID string, story domain.GalleryStory) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(story)
	if err != nil {
		return
	}
	// Detached from the request context: the data was already served, the
	// cache write should not die with the request.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.cache.Set(writeCtx, s.cache.KeyBuilder.KeyFinishedStory(storyID), data, redis.TTLNone); err != nil {
		s.logger.WithError(err).Warn("Finished-story cache write failed")
	}
}

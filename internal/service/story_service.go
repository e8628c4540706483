package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyhub/internal/domain"
	"storyhub/internal/localstate"
	"storyhub/internal/phase"
	"storyhub/internal/repository"
	"storyhub/internal/store"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

// Submission decline reasons.
const (
	ReasonAlreadySubmitted  = "you already submitted a story for this contest"
	ReasonSubmissionsClosed = "submissions are closed"
)

// StoryService covers the content surface: contest loading and selection,
// story submission and deletion, gallery assembly, view recording, comments,
// reports and the admin bulk operations.
type StoryService struct {
	store   *store.Store
	records repository.RecordStore
	local   *localstate.Store
	logger  *logger.Logger
}

// NewStoryService creates a new story service.
func NewStoryService(st *store.Store, records repository.RecordStore, local *localstate.Store, log *logger.Logger) *StoryService {
	return &StoryService{
		store:   st,
		records: records,
		local:   local,
		logger:  log.Named("stories"),
	}
}

// LoadContests fetches the contest list and runs the selector, replacing the
// contests slice and the current/next picks in one dispatch.
func (s *StoryService) LoadContests(ctx context.Context, scope *store.Scope) error {
	scope.Dispatch(s.store, store.SliceLoadingSet{Slice: store.SliceContests, Loading: true})
	defer scope.Dispatch(s.store, store.SliceLoadingSet{Slice: store.SliceContests, Loading: false})

	contests, err := s.records.ListContests(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	current := phase.FindCurrent(contests, now)
	next := phase.FindNext(contests, current, now)
	scope.Dispatch(s.store, store.ContestsLoaded{
		Contests: contests,
		Current:  current,
		Next:     next,
		At:       now,
	})
	return nil
}

// SubmitStory creates a new submission after the pre-checks: the contest
// must exist and be in its submission phase, and the user must not already
// have a story in it. Both refusals are declines, not errors.
func (s *StoryService) SubmitStory(ctx context.Context, scope *store.Scope, req domain.SubmitStoryRequest) (*domain.SubmitStoryResult, error) {
	snapshot := s.store.Snapshot()
	if snapshot.User == nil {
		return nil, apperrors.NewSecurityError("sign in to submit a story", nil)
	}

	contest, err := s.records.GetContest(ctx, req.ContestID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return &domain.SubmitStoryResult{Reason: domain.ReasonContestNotFound}, nil
		}
		return nil, err
	}
	if phase.Resolve(*contest, time.Now()) != phase.PhaseSubmission {
		return &domain.SubmitStoryResult{Reason: ReasonSubmissionsClosed}, nil
	}

	existing, err := s.records.ListStoriesByUser(ctx, snapshot.User.ID)
	if err != nil {
		return nil, err
	}
	for _, st := range existing {
		if st.ContestID == req.ContestID {
			return &domain.SubmitStoryResult{Reason: ReasonAlreadySubmitted}, nil
		}
	}

	story := &domain.Story{
		ID:        uuid.NewString(),
		UserID:    snapshot.User.ID,
		ContestID: req.ContestID,
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		WordCount: len(strings.Fields(req.Content)),
		CreatedAt: time.Now(),
	}
	if story.Title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if err := s.records.InsertStory(ctx, story); err != nil {
		return nil, err
	}

	scope.Dispatch(s.store, store.StorySubmitted{Story: *story})
	return &domain.SubmitStoryResult{Success: true, Story: story}, nil
}

// DeleteStory removes a story. Owners may delete only while the contest is
// still in its submission phase; admins may delete at any time.
func (s *StoryService) DeleteStory(ctx context.Context, scope *store.Scope, storyID string) error {
	snapshot := s.store.Snapshot()
	if snapshot.User == nil {
		return apperrors.NewSecurityError("sign in to delete a story", nil)
	}

	story, err := s.records.GetStory(ctx, storyID)
	if err != nil {
		return err
	}

	admin := snapshot.User.IsAdmin()
	if !admin {
		if story.UserID != snapshot.User.ID {
			return apperrors.NewValidationError("only the author can delete this story", nil)
		}
		contest, err := s.records.GetContest(ctx, story.ContestID)
		if err != nil {
			return err
		}
		if phase.Resolve(*contest, time.Now()) != phase.PhaseSubmission {
			return apperrors.NewDeclineError("stories can no longer be withdrawn from this contest")
		}
	}

	if err := s.records.DeleteStory(ctx, storyID); err != nil {
		return err
	}
	scope.Dispatch(s.store, store.StoriesRemoved{StoryIDs: []string{storyID}})
	return nil
}

// LoadUserStories reloads the signed-in user's own submissions.
func (s *StoryService) LoadUserStories(ctx context.Context, scope *store.Scope) error {
	snapshot := s.store.Snapshot()
	if snapshot.User == nil {
		return nil
	}

	scope.Dispatch(s.store, store.SliceLoadingSet{Slice: store.SliceUserStories, Loading: true})
	defer scope.Dispatch(s.store, store.SliceLoadingSet{Slice: store.SliceUserStories, Loading: false})

	stories, err := s.records.ListStoriesByUser(ctx, snapshot.User.ID)
	if err != nil {
		return err
	}
	scope.Dispatch(s.store, store.UserStoriesLoaded{Stories: stories, At: time.Now()})
	return nil
}

// LoadGalleryStories assembles and stores one contest's gallery projection.
func (s *StoryService) LoadGalleryStories(ctx context.Context, scope *store.Scope, contestID string) ([]domain.GalleryStory, error) {
	scope.Dispatch(s.store, store.SliceLoadingSet{Slice: store.SliceGallery, Loading: true})
	defer scope.Dispatch(s.store, store.SliceLoadingSet{Slice: store.SliceGallery, Loading: false})

	snapshot := s.store.Snapshot()
	stories, err := assembleGallery(ctx, s.records, snapshot, contestID, s.logger)
	if err != nil {
		return nil, err
	}
	scope.Dispatch(s.store, store.GalleryLoaded{ContestID: contestID, Stories: stories, At: time.Now()})
	return stories, nil
}

// RecordView counts a story view at most once per user per day. The dedup
// marker lives in local state, not the reducer.
func (s *StoryService) RecordView(ctx context.Context, scope *store.Scope, contestID, storyID string) error {
	snapshot := s.store.Snapshot()
	viewer := "anonymous"
	if snapshot.User != nil {
		viewer = snapshot.User.ID
	}
	if !s.local.MarkViewed(viewer, storyID, time.Now()) {
		return nil
	}

	if err := s.records.IncrementStoryViews(ctx, storyID); err != nil {
		return err
	}
	scope.Dispatch(s.store, store.StoryViewCounted{ContestID: contestID, StoryID: storyID})
	return nil
}

// ListComments returns a story's comments.
func (s *StoryService) ListComments(ctx context.Context, storyID string) ([]domain.Comment, error) {
	return s.records.ListComments(ctx, storyID)
}

// AddComment creates a comment by the signed-in user.
func (s *StoryService) AddComment(ctx context.Context, storyID, content string) (*domain.Comment, error) {
	snapshot := s.store.Snapshot()
	if snapshot.User == nil {
		return nil, apperrors.NewSecurityError("sign in to comment", nil)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment is empty", nil)
	}

	comment := &domain.Comment{
		ID:         uuid.NewString(),
		StoryID:    storyID,
		UserID:     snapshot.User.ID,
		AuthorName: snapshot.User.Name,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	if err := s.records.InsertComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment. Owner or admin only.
func (s *StoryService) DeleteComment(ctx context.Context, commentID string) error {
	snapshot := s.store.Snapshot()
	if snapshot.User == nil {
		return apperrors.NewSecurityError("sign in to delete a comment", nil)
	}

	comment, err := s.records.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != snapshot.User.ID && !snapshot.User.IsAdmin() {
		return apperrors.NewValidationError("only the author can delete this comment", nil)
	}
	return s.records.DeleteComment(ctx, commentID)
}

// ReportStory files a moderation report. Best effort: a failed insert is
// logged and swallowed so the reporting flow never surfaces an error.
func (s *StoryService) ReportStory(ctx context.Context, storyID, reason string) {
	snapshot := s.store.Snapshot()
	reporter := ""
	if snapshot.User != nil {
		reporter = snapshot.User.ID
	}

	report := &domain.Report{
		ID:         uuid.NewString(),
		StoryID:    storyID,
		ReporterID: reporter,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}
	if err := s.records.InsertReport(ctx, report); err != nil {
		s.logger.WithError(err).WithField("story_id", storyID).Warn("Story report failed")
	}
}

// AdminBulkDeleteStories removes a batch of stories. Admin only.
func (s *StoryService) AdminBulkDeleteStories(ctx context.Context, scope *store.Scope, storyIDs []string) error {
	snapshot := s.store.Snapshot()
	if snapshot.User == nil || !snapshot.User.IsAdmin() {
		return apperrors.NewSecurityError("admin role required", nil)
	}
	if len(storyIDs) == 0 {
		return nil
	}

	if err := s.records.DeleteStories(ctx, storyIDs); err != nil {
		return err
	}
	scope.Dispatch(s.store, store.StoriesRemoved{StoryIDs: storyIDs})
	return nil
}

// ContestStats fetches the server-side aggregate for a contest. Row-level
// security may zero parts of it; that is data, not an error.
func (s *StoryService) ContestStats(ctx context.Context, contestID string) (*domain.ContestStats, error) {
	return s.records.GetContestStats(ctx, contestID)
}

// assembleGallery builds one contest's gallery projection: stories joined
// with author names and the contest title, flagged with the viewer's own
// votes. Enrichment failures degrade to bare display data.
func assembleGallery(ctx context.Context, records repository.RecordStore, snapshot store.State, contestID string, log *logger.Logger) ([]domain.GalleryStory, error) {
	stories, err := records.ListStoriesByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	contestTitle := ""
	if contest, err := records.GetContest(ctx, contestID); err == nil {
		contestTitle = contest.Title
	} else if !apperrors.IsNotFound(err) {
		log.WithError(err).WithField("contest_id", contestID).Warn("Contest title enrichment failed")
	}

	authorIDs := make([]string, 0, len(stories))
	seen := map[string]bool{}
	for _, st := range stories {
		if !seen[st.UserID] {
			seen[st.UserID] = true
			authorIDs = append(authorIDs, st.UserID)
		}
	}
	authors := map[string]string{}
	if len(authorIDs) > 0 {
		profiles, err := records.ListProfiles(ctx, authorIDs)
		if err != nil {
			log.WithError(err).WithField("contest_id", contestID).Warn("Author enrichment failed")
		}
		for _, p := range profiles {
			authors[p.ID] = p.Name
		}
	}

	liked := map[string]bool{}
	for _, v := range snapshot.UserVotes {
		liked[v.StoryID] = true
	}

	out := make([]domain.GalleryStory, 0, len(stories))
	for _, st := range stories {
		out = append(out, domain.GalleryStory{
			Story:        st,
			AuthorName:   authors[st.UserID],
			ContestTitle: contestTitle,
			IsLiked:      liked[st.ID],
		})
	}
	return out, nil
}

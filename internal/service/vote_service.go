package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"storyhub/internal/domain"
	"storyhub/internal/phase"
	"storyhub/internal/repository"
	"storyhub/internal/store"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

// VoteService implements vote accounting: the per-story vote decision and
// the idempotent toggle. The standing-vote budget applies only to the
// current contest; historical contests are unlimited.
type VoteService struct {
	store          *store.Store
	records        repository.RecordStore
	reconcileDelay time.Duration
	logger         *logger.Logger
}

// NewVoteService creates a new vote service. reconcileDelay is the pause
// before the authoritative gallery reload that corrects optimistic drift.
func NewVoteService(st *store.Store, records repository.RecordStore, reconcileDelay time.Duration, log *logger.Logger) *VoteService {
	return &VoteService{
		store:          st,
		records:        records,
		reconcileDelay: reconcileDelay,
		logger:         log.Named("votes"),
	}
}

// CanVote answers whether the signed-in user may vote on the story right
// now. Denials are ordinary decision values; the error return is for
// service failures only.
func (s *VoteService) CanVote(ctx context.Context, storyID string) (*domain.VoteDecision, error) {
	snapshot := s.store.Snapshot()
	maxVotes := s.store.MaxVotes()

	if snapshot.User == nil {
		return &domain.VoteDecision{Reason: domain.ReasonNotSignedIn, Phase: string(phase.PhaseUnknown), MaxVotes: maxVotes}, nil
	}

	story, contest, err := s.resolveStory(ctx, snapshot, storyID)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return &domain.VoteDecision{Reason: domain.ReasonContestNotFound, Phase: string(phase.PhaseUnknown), MaxVotes: maxVotes}, nil
	}

	p := phase.Resolve(*contest, time.Now())
	decision := domain.VoteDecision{Phase: string(p), MaxVotes: maxVotes}

	if story.UserID == snapshot.User.ID {
		decision.Reason = domain.ReasonSelfVote
		return &decision, nil
	}

	switch p {
	case phase.PhaseSubmission:
		decision.Reason = domain.ReasonVotingNotOpen
		return &decision, nil
	case phase.PhaseResults:
		decision.Reason = domain.ReasonVotingClosed
		return &decision, nil
	case phase.PhaseCounting:
		decision.Reason = domain.ReasonCounting
		return &decision, nil
	case phase.PhaseUnknown:
		decision.Reason = domain.ReasonPhaseUnknown
		return &decision, nil
	}

	existing, err := s.records.GetVote(ctx, snapshot.User.ID, storyID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// A standing vote may always be removed, budget or not.
		decision.Allowed = true
		decision.HasVoted = true
	}

	if !isCurrentContest(snapshot, contest.ID) {
		// Historical contest: no budget.
		decision.Allowed = true
		decision.VotesRemaining = maxVotes
		return &decision, nil
	}

	used, err := s.records.CountVotesInContest(ctx, snapshot.User.ID, contest.ID)
	if err != nil {
		return nil, err
	}
	decision.VotesUsed = used
	decision.VotesRemaining = maxVotes - used
	if decision.VotesRemaining < 0 {
		decision.VotesRemaining = 0
	}
	if decision.HasVoted {
		return &decision, nil
	}
	if used >= maxVotes {
		decision.Reason = domain.ReasonBudgetExceeded
		return &decision, nil
	}
	decision.Allowed = true
	return &decision, nil
}

// ToggleVote flips the user's vote on the story: delete if standing, insert
// otherwise. The local gallery is patched optimistically right away; the
// authoritative gallery reload runs after reconcileDelay, routed through
// scope so a torn-down view cannot receive it. Persistence failures abort
// before any local mutation.
func (s *VoteService) ToggleVote(ctx context.Context, scope *store.Scope, storyID string) (*domain.ToggleVoteResult, error) {
	snapshot := s.store.Snapshot()
	maxVotes := s.store.MaxVotes()

	if snapshot.User == nil {
		return &domain.ToggleVoteResult{Reason: domain.ReasonNotSignedIn, MaxVotes: maxVotes}, nil
	}
	userID := snapshot.User.ID

	story, contest, err := s.resolveStory(ctx, snapshot, storyID)
	if err != nil {
		return nil, err
	}
	if contest == nil {
		return &domain.ToggleVoteResult{Reason: domain.ReasonContestNotFound, MaxVotes: maxVotes}, nil
	}
	if story.UserID == userID {
		return &domain.ToggleVoteResult{Reason: domain.ReasonSelfVote, MaxVotes: maxVotes}, nil
	}

	p := phase.Resolve(*contest, time.Now())
	if reason := voteClosedReason(p); reason != "" {
		return &domain.ToggleVoteResult{Reason: reason, MaxVotes: maxVotes}, nil
	}

	existing, err := s.records.GetVote(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if err := s.records.DeleteVote(ctx, userID, storyID); err != nil {
			return nil, err
		}
		scope.Dispatch(s.store, store.StoryVotePatched{
			ContestID: contest.ID,
			StoryID:   storyID,
			Liked:     false,
		})
		s.afterToggle(ctx, scope, userID, contest.ID, storyID, false)
		used, err := s.records.CountVotesInContest(ctx, userID, contest.ID)
		if err != nil {
			s.logger.WithError(err).Warn("Post-toggle vote recount failed")
		}
		return &domain.ToggleVoteResult{Success: true, Voted: false, VotesUsed: used, MaxVotes: maxVotes}, nil
	}

	// Re-check the budget immediately before the insert: the CanVote check
	// and this insert are not atomic against concurrent toggles.
	if isCurrentContest(snapshot, contest.ID) {
		used, err := s.records.CountVotesInContest(ctx, userID, contest.ID)
		if err != nil {
			return nil, err
		}
		if used >= maxVotes {
			return &domain.ToggleVoteResult{
				Reason:    domain.ReasonBudgetExceeded,
				VotesUsed: used,
				MaxVotes:  maxVotes,
			}, nil
		}
	}

	vote := &domain.Vote{
		ID:        uuid.NewString(),
		UserID:    userID,
		StoryID:   storyID,
		ContestID: contest.ID,
		CreatedAt: time.Now(),
	}
	if err := s.records.InsertVote(ctx, vote); err != nil {
		return nil, err
	}

	scope.Dispatch(s.store, store.StoryVotePatched{
		ContestID: contest.ID,
		StoryID:   storyID,
		Vote:      vote,
		Liked:     true,
	})
	s.afterToggle(ctx, scope, userID, contest.ID, storyID, true)
	used, err := s.records.CountVotesInContest(ctx, userID, contest.ID)
	if err != nil {
		s.logger.WithError(err).Warn("Post-toggle vote recount failed")
	}
	return &domain.ToggleVoteResult{Success: true, Voted: true, VotesUsed: used, MaxVotes: maxVotes}, nil
}

// afterToggle runs the shared post-toggle side effects: best-effort
// vote-changed notification, votes/stats refresh, and the delayed
// authoritative gallery reload.
func (s *VoteService) afterToggle(ctx context.Context, scope *store.Scope, userID, contestID, storyID string, voted bool) {
	payload, _ := json.Marshal(map[string]interface{}{
		"story_id":   storyID,
		"contest_id": contestID,
		"voted":      voted,
	})
	if err := s.records.InsertNotification(ctx, userID, "vote-changed", string(payload)); err != nil {
		s.logger.WithError(err).Warn("Vote-changed notification failed")
	}

	if err := s.RefreshVotes(ctx, scope); err != nil {
		s.logger.WithError(err).Warn("Vote refresh after toggle failed")
	}

	s.scheduleReconcile(scope, contestID)
}

// RefreshVotes reloads the user's standing votes and recomputes the derived
// stats from them.
func (s *VoteService) RefreshVotes(ctx context.Context, scope *store.Scope) error {
	snapshot := s.store.Snapshot()
	if snapshot.User == nil {
		return nil
	}

	votes, err := s.records.ListVotesByUser(ctx, snapshot.User.ID)
	if err != nil {
		return err
	}

	stats := &domain.VotingStats{TotalVotes: len(votes)}
	for _, v := range votes {
		stats.VotedStories = append(stats.VotedStories, domain.VotedStory{
			StoryID:   v.StoryID,
			ContestID: v.ContestID,
			Title:     storyTitleFromSnapshot(snapshot, v.StoryID),
		})
		if isCurrentContest(snapshot, v.ContestID) {
			stats.CurrentContestVotes++
		}
	}

	scope.Dispatch(s.store, store.VotesLoaded{Votes: votes, Stats: stats, At: time.Now()})
	return nil
}

// scheduleReconcile arranges the delayed authoritative gallery reload. The
// optimistic patch can drift from concurrent votes by other users; this
// reload is the correction. Scope-guarded on both the fetch and the
// dispatch, so a closed scope drops the whole thing.
func (s *VoteService) scheduleReconcile(scope *store.Scope, contestID string) {
	time.AfterFunc(s.reconcileDelay, func() {
		if !scope.Alive() {
			return
		}
		snapshot := s.store.Snapshot()
		stories, err := assembleGallery(scope.Context(), s.records, snapshot, contestID, s.logger)
		if err != nil {
			s.logger.WithError(err).WithField("contest_id", contestID).Warn("Gallery reconcile failed")
			return
		}
		scope.Dispatch(s.store, store.GalleryLoaded{ContestID: contestID, Stories: stories, At: time.Now()})
	})
}

// resolveStory fetches the story and its contest, preferring records already
// held in the snapshot.
func (s *VoteService) resolveStory(ctx context.Context, snapshot store.State, storyID string) (*domain.Story, *domain.Contest, error) {
	story, err := s.records.GetStory(ctx, storyID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.NewNotFoundError("story not found")
		}
		return nil, nil, err
	}

	for i := range snapshot.Contests {
		if snapshot.Contests[i].ID == story.ContestID {
			return story, &snapshot.Contests[i], nil
		}
	}

	contest, err := s.records.GetContest(ctx, story.ContestID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return story, nil, nil
		}
		return nil, nil, err
	}
	return story, contest, nil
}

func voteClosedReason(p phase.Phase) string {
	switch p {
	case phase.PhaseSubmission:
		return domain.ReasonVotingNotOpen
	case phase.PhaseResults:
		return domain.ReasonVotingClosed
	case phase.PhaseCounting:
		return domain.ReasonCounting
	case phase.PhaseUnknown:
		return domain.ReasonPhaseUnknown
	}
	return ""
}

func isCurrentContest(snapshot store.State, contestID string) bool {
	return snapshot.CurrentContest != nil && snapshot.CurrentContest.ID == contestID
}

// storyTitleFromSnapshot looks a title up in the locally-held projections.
// Best effort; an empty title just means the view shows the id.
func storyTitleFromSnapshot(snapshot store.State, storyID string) string {
	for _, s := range snapshot.UserStories {
		if s.ID == storyID {
			return s.Title
		}
	}
	for _, stories := range snapshot.Gallery {
		for _, s := range stories {
			if s.ID == storyID {
				return s.Title
			}
		}
	}
	if s, ok := snapshot.FinishedStories[storyID]; ok {
		return s.Title
	}
	return ""
}

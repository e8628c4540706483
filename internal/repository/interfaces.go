package repository

import (
	"context"

	"storyhub/internal/domain"
)

// RecordStore is the persistence/query service boundary. The remote side
// applies row-level security, so list operations may legitimately return
// partial or zero data for a given caller; implementations must surface
// that as an empty result, not an error. Single-record lookups return
// domain.ErrNotFound when nothing is visible, and domain.ErrUnauthorized
// when the caller's identity itself was rejected.
type RecordStore interface {
	// Contests
	ListContests(ctx context.Context) ([]domain.Contest, error)
	GetContest(ctx context.Context, id string) (*domain.Contest, error)
	GetContestStats(ctx context.Context, contestID string) (*domain.ContestStats, error)

	// Stories
	ListStoriesByContest(ctx context.Context, contestID string) ([]domain.Story, error)
	ListStoriesByUser(ctx context.Context, userID string) ([]domain.Story, error)
	GetStory(ctx context.Context, id string) (*domain.Story, error)
	InsertStory(ctx context.Context, story *domain.Story) error
	DeleteStory(ctx context.Context, id string) error
	DeleteStories(ctx context.Context, ids []string) error
	IncrementStoryViews(ctx context.Context, id string) error

	// Votes
	ListVotesByUser(ctx context.Context, userID string) ([]domain.Vote, error)
	CountVotesInContest(ctx context.Context, userID, contestID string) (int, error)
	GetVote(ctx context.Context, userID, storyID string) (*domain.Vote, error)
	InsertVote(ctx context.Context, vote *domain.Vote) error
	DeleteVote(ctx context.Context, userID, storyID string) error

	// Profiles
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	ListProfiles(ctx context.Context, userIDs []string) ([]domain.UserProfile, error)

	// Comments
	ListComments(ctx context.Context, storyID string) ([]domain.Comment, error)
	InsertComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, id string) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)

	// Reports and notifications
	InsertReport(ctx context.Context, report *domain.Report) error
	InsertNotification(ctx context.Context, userID, kind, payload string) error
}

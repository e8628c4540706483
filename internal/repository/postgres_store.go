package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storyhub/internal/domain"
	"storyhub/pkg/database"
	apperrors "storyhub/pkg/errors"
)

// PostgresStore is the direct-Postgres RecordStore for self-hosted
// deployments, where the engine talks to the database instead of the
// hosted REST service. Row-level security does not apply here; visibility
// is the database's problem.
type PostgresStore struct {
	db *database.PostgresDB
}

// NewPostgresStore creates a RecordStore backed by pgx.
func NewPostgresStore(db *database.PostgresDB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ RecordStore = (*PostgresStore)(nil)

// ListContests retrieves all contests ordered by submission deadline.
func (s *PostgresStore) ListContests(ctx context.Context) ([]domain.Contest, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, title, month, submission_deadline, voting_deadline, finalized_at, status, participants_count
		FROM contests
		ORDER BY submission_deadline ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}
	defer rows.Close()

	var contests []domain.Contest
	for rows.Next() {
		var c domain.Contest
		if err := rows.Scan(&c.ID, &c.Title, &c.Month, &c.SubmissionDeadline, &c.VotingDeadline, &c.FinalizedAt, &c.Status, &c.ParticipantsCount); err != nil {
			return nil, fmt.Errorf("failed to scan contest: %w", err)
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// GetContest retrieves one contest by id.
func (s *PostgresStore) GetContest(ctx context.Context, id string) (*domain.Contest, error) {
	var c domain.Contest
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, title, month, submission_deadline, voting_deadline, finalized_at, status, participants_count
		FROM contests WHERE id = $1
	`, id).Scan(&c.ID, &c.Title, &c.Month, &c.SubmissionDeadline, &c.VotingDeadline, &c.FinalizedAt, &c.Status, &c.ParticipantsCount)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError("contest not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return &c, nil
}

// GetContestStats runs the aggregate directly.
func (s *PostgresStore) GetContestStats(ctx context.Context, contestID string) (*domain.ContestStats, error) {
	stats := domain.ContestStats{ContestID: contestID}
	err := s.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stories WHERE contest_id = $1),
			(SELECT COUNT(*) FROM votes WHERE contest_id = $1),
			(SELECT COUNT(*) FROM comments c JOIN stories st ON st.id = c.story_id WHERE st.contest_id = $1),
			(SELECT COUNT(DISTINCT user_id) FROM stories WHERE contest_id = $1)
	`, contestID).Scan(&stats.Stories, &stats.Votes, &stats.Comments, &stats.Participants)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest stats: %w", err)
	}
	return &stats, nil
}

// ListStoriesByContest retrieves a contest's stories.
func (s *PostgresStore) ListStoriesByContest(ctx context.Context, contestID string) ([]domain.Story, error) {
	return s.listStories(ctx, `WHERE contest_id = $1 ORDER BY created_at ASC`, contestID)
}

// ListStoriesByUser retrieves a user's own stories.
func (s *PostgresStore) ListStoriesByUser(ctx context.Context, userID string) ([]domain.Story, error) {
	return s.listStories(ctx, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (s *PostgresStore) listStories(ctx context.Context, where string, arg interface{}) ([]domain.Story, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, user_id, contest_id, title, content, word_count, likes_count, views_count, created_at
		FROM stories `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []domain.Story
	for rows.Next() {
		var st domain.Story
		if err := rows.Scan(&st.ID, &st.UserID, &st.ContestID, &st.Title, &st.Content, &st.WordCount, &st.LikesCount, &st.ViewsCount, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

// GetStory retrieves one story by id.
func (s *PostgresStore) GetStory(ctx context.Context, id string) (*domain.Story, error) {
	var st domain.Story
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, contest_id, title, content, word_count, likes_count, views_count, created_at
		FROM stories WHERE id = $1
	`, id).Scan(&st.ID, &st.UserID, &st.ContestID, &st.Title, &st.Content, &st.WordCount, &st.LikesCount, &st.ViewsCount, &st.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError("story not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return &st, nil
}

// InsertStory creates a story row.
func (s *PostgresStore) InsertStory(ctx context.Context, story *domain.Story) error {
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO stories (id, user_id, contest_id, title, content, word_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, story.ID, story.UserID, story.ContestID, story.Title, story.Content, story.WordCount).Scan(&story.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

// DeleteStory removes one story.
func (s *PostgresStore) DeleteStory(ctx context.Context, id string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

// DeleteStories removes a batch of stories.
func (s *PostgresStore) DeleteStories(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM stories WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to delete stories: %w", err)
	}
	return nil
}

// IncrementStoryViews bumps a story's view counter.
func (s *PostgresStore) IncrementStoryViews(ctx context.Context, id string) error {
	_, err := s.db.Pool.Exec(ctx, `UPDATE stories SET views_count = views_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// ListVotesByUser retrieves the user's standing votes.
func (s *PostgresStore) ListVotesByUser(ctx context.Context, userID string) ([]domain.Vote, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, user_id, story_id, contest_id, created_at
		FROM votes WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.ID, &v.UserID, &v.StoryID, &v.ContestID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// CountVotesInContest counts the user's standing votes within one contest.
func (s *PostgresStore) CountVotesInContest(ctx context.Context, userID, contestID string) (int, error) {
	var n int
	err := s.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM votes WHERE user_id = $1 AND contest_id = $2
	`, userID, contestID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

// GetVote retrieves the user's vote on a story; (nil, nil) when none exists.
func (s *PostgresStore) GetVote(ctx context.Context, userID, storyID string) (*domain.Vote, error) {
	var v domain.Vote
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, story_id, contest_id, created_at
		FROM votes WHERE user_id = $1 AND story_id = $2
	`, userID, storyID).Scan(&v.ID, &v.UserID, &v.StoryID, &v.ContestID, &v.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &v, nil
}

// InsertVote creates a vote row.
func (s *PostgresStore) InsertVote(ctx context.Context, vote *domain.Vote) error {
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO votes (id, user_id, story_id, contest_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, vote.ID, vote.UserID, vote.StoryID, vote.ContestID).Scan(&vote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vote: %w", err)
	}
	return nil
}

// DeleteVote removes the user's vote on a story.
func (s *PostgresStore) DeleteVote(ctx context.Context, userID, storyID string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM votes WHERE user_id = $1 AND story_id = $2`, userID, storyID)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

// GetProfile retrieves a user profile record.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, email, name, role, created_at
		FROM user_profiles WHERE id = $1
	`, userID).Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError("profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// ListProfiles retrieves a batch of profiles for display joins.
func (s *PostgresStore) ListProfiles(ctx context.Context, userIDs []string) ([]domain.UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, email, name, role, created_at
		FROM user_profiles WHERE id = ANY($1)
	`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []domain.UserProfile
	for rows.Next() {
		var p domain.UserProfile
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ListComments retrieves a story's comments.
func (s *PostgresStore) ListComments(ctx context.Context, storyID string) ([]domain.Comment, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, story_id, user_id, author_name, content, created_at
		FROM comments WHERE story_id = $1 ORDER BY created_at ASC
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.StoryID, &c.UserID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// InsertComment creates a comment row.
func (s *PostgresStore) InsertComment(ctx context.Context, comment *domain.Comment) error {
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO comments (id, story_id, user_id, author_name, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, comment.ID, comment.StoryID, comment.UserID, comment.AuthorName, comment.Content).Scan(&comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// GetComment retrieves one comment by id.
func (s *PostgresStore) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, story_id, user_id, author_name, content, created_at
		FROM comments WHERE id = $1
	`, id).Scan(&c.ID, &c.StoryID, &c.UserID, &c.AuthorName, &c.Content, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NewNotFoundError("comment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

// DeleteComment removes a comment.
func (s *PostgresStore) DeleteComment(ctx context.Context, id string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// InsertReport files a moderation report.
func (s *PostgresStore) InsertReport(ctx context.Context, report *domain.Report) error {
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO reports (id, story_id, reporter_id, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, report.ID, report.StoryID, report.ReporterID, report.Reason).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// InsertNotification writes a notification row.
func (s *PostgresStore) InsertNotification(ctx context.Context, userID, kind, payload string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO notifications (user_id, kind, payload) VALUES ($1, $2, $3)
	`, userID, kind, payload)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Package supabase implements the remote persistence/query service and the
// authentication provider over Supabase's REST surfaces (PostgREST and
// GoTrue). The rest of the engine only sees the repository.RecordStore and
// AuthProvider boundaries.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"storyhub/internal/config"
	"storyhub/internal/domain"
	"storyhub/internal/repository"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

// Client talks to the PostgREST data API. It satisfies
// repository.RecordStore. The caller's access token (when signed in) rides
// along so row-level security applies; without one the anon key is used and
// the server may return partial or zero data, which is valid.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *logger.Logger

	mu          sync.RWMutex
	accessToken string
}

var _ repository.RecordStore = (*Client)(nil)

// NewClient creates a new PostgREST client.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.SupabaseURL, "/"),
		anonKey: cfg.SupabaseAnonKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log.Named("supabase"),
	}
}

// SetAccessToken installs the signed-in user's token for subsequent
// requests. Pass the empty string on sign-out to fall back to the anon key.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.accessToken != "" {
		return c.accessToken
	}
	return c.anonKey
}

// rest performs one PostgREST request. out may be nil for writes.
func (c *Client) rest(ctx context.Context, method, table string, query url.Values, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransientError("persistence service unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewTransientError("failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WithFields(map[string]interface{}{
			"table":       table,
			"status_code": resp.StatusCode,
		}).Warn("Persistence service rejected caller identity")
		return apperrors.NewSecurityError("authorization rejected", domain.ErrUnauthorized)
	case resp.StatusCode >= 400:
		return apperrors.NewTransientError(
			fmt.Sprintf("persistence service returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)), nil)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.logger.WithFields(map[string]interface{}{
				"table":         table,
				"response_body": truncate(string(respBody), 200),
			}).Error("Failed to parse persistence response")
			return apperrors.NewTransientError("failed to parse persistence response", err)
		}
	}
	return nil
}

// one fetches a single record; domain.ErrNotFound when nothing is visible.
func one[T any](ctx context.Context, c *Client, table string, query url.Values) (*T, error) {
	query.Set("limit", "1")
	var rows []T
	if err := c.rest(ctx, http.MethodGet, table, query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewNotFoundError(table + ": " + domain.ErrNotFound.Error())
	}
	return &rows[0], nil
}

// ListContests retrieves all contests ordered by submission deadline.
func (c *Client) ListContests(ctx context.Context) ([]domain.Contest, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "submission_deadline.asc")
	var contests []domain.Contest
	if err := c.rest(ctx, http.MethodGet, "contests", q, nil, &contests); err != nil {
		return nil, err
	}
	return contests, nil
}

// GetContest retrieves one contest by id.
func (c *Client) GetContest(ctx context.Context, id string) (*domain.Contest, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	return one[domain.Contest](ctx, c, "contests", q)
}

// GetContestStats calls the server-side aggregate function.
func (c *Client) GetContestStats(ctx context.Context, contestID string) (*domain.ContestStats, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/rpc/contest_stats", c.baseURL)
	payload, _ := json.Marshal(map[string]string{"p_contest_id": contestID})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransientError("stats function unreachable", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		// RLS may deny the aggregate entirely; zero stats are valid data.
		c.logger.WithField("status_code", resp.StatusCode).Debug("Contest stats unavailable")
		return &domain.ContestStats{ContestID: contestID}, nil
	}

	var stats domain.ContestStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, apperrors.NewTransientError("failed to parse contest stats", err)
	}
	stats.ContestID = contestID
	return &stats, nil
}

// ListStoriesByContest retrieves a contest's stories.
func (c *Client) ListStoriesByContest(ctx context.Context, contestID string) ([]domain.Story, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("contest_id", "eq."+contestID)
	q.Set("order", "created_at.asc")
	var stories []domain.Story
	if err := c.rest(ctx, http.MethodGet, "stories", q, nil, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// ListStoriesByUser retrieves a user's own stories.
func (c *Client) ListStoriesByUser(ctx context.Context, userID string) ([]domain.Story, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")
	var stories []domain.Story
	if err := c.rest(ctx, http.MethodGet, "stories", q, nil, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

// GetStory retrieves one story by id.
func (c *Client) GetStory(ctx context.Context, id string) (*domain.Story, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	return one[domain.Story](ctx, c, "stories", q)
}

// InsertStory creates a story; the server echo fills in generated fields.
func (c *Client) InsertStory(ctx context.Context, story *domain.Story) error {
	var rows []domain.Story
	if err := c.rest(ctx, http.MethodPost, "stories", nil, story, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		*story = rows[0]
	}
	return nil
}

// DeleteStory removes one story.
func (c *Client) DeleteStory(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return c.rest(ctx, http.MethodDelete, "stories", q, nil, nil)
}

// DeleteStories removes a batch of stories.
func (c *Client) DeleteStories(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q := url.Values{}
	q.Set("id", "in.("+strings.Join(ids, ",")+")")
	return c.rest(ctx, http.MethodDelete, "stories", q, nil, nil)
}

// IncrementStoryViews bumps a story's view counter server-side.
func (c *Client) IncrementStoryViews(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/rpc/increment_story_views", c.baseURL)
	payload, _ := json.Marshal(map[string]string{"p_story_id": id})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransientError("view counter unreachable", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ListVotesByUser retrieves the user's standing votes.
func (c *Client) ListVotesByUser(ctx context.Context, userID string) ([]domain.Vote, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	var votes []domain.Vote
	if err := c.rest(ctx, http.MethodGet, "votes", q, nil, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}

// CountVotesInContest counts the user's standing votes within one contest.
func (c *Client) CountVotesInContest(ctx context.Context, userID, contestID string) (int, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("user_id", "eq."+userID)
	q.Set("contest_id", "eq."+contestID)
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.rest(ctx, http.MethodGet, "votes", q, nil, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// GetVote retrieves the user's vote on a story; (nil, nil) when none exists.
func (c *Client) GetVote(ctx context.Context, userID, storyID string) (*domain.Vote, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("story_id", "eq."+storyID)
	q.Set("limit", "1")
	var votes []domain.Vote
	if err := c.rest(ctx, http.MethodGet, "votes", q, nil, &votes); err != nil {
		return nil, err
	}
	if len(votes) == 0 {
		return nil, nil
	}
	return &votes[0], nil
}

// InsertVote creates a vote row.
func (c *Client) InsertVote(ctx context.Context, vote *domain.Vote) error {
	var rows []domain.Vote
	if err := c.rest(ctx, http.MethodPost, "votes", nil, vote, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		*vote = rows[0]
	}
	return nil
}

// DeleteVote removes the user's vote on a story.
func (c *Client) DeleteVote(ctx context.Context, userID, storyID string) error {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	q.Set("story_id", "eq."+storyID)
	return c.rest(ctx, http.MethodDelete, "votes", q, nil, nil)
}

// GetProfile retrieves a user profile record.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+userID)
	return one[domain.UserProfile](ctx, c, "user_profiles", q)
}

// ListProfiles retrieves a batch of profiles for display joins.
func (c *Client) ListProfiles(ctx context.Context, userIDs []string) ([]domain.UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("select", "id,email,name,role,created_at")
	q.Set("id", "in.("+strings.Join(userIDs, ",")+")")
	var profiles []domain.UserProfile
	if err := c.rest(ctx, http.MethodGet, "user_profiles", q, nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// ListComments retrieves a story's comments.
func (c *Client) ListComments(ctx context.Context, storyID string) ([]domain.Comment, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("story_id", "eq."+storyID)
	q.Set("order", "created_at.asc")
	var comments []domain.Comment
	if err := c.rest(ctx, http.MethodGet, "comments", q, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// InsertComment creates a comment.
func (c *Client) InsertComment(ctx context.Context, comment *domain.Comment) error {
	var rows []domain.Comment
	if err := c.rest(ctx, http.MethodPost, "comments", nil, comment, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		*comment = rows[0]
	}
	return nil
}

// GetComment retrieves one comment by id.
func (c *Client) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	return one[domain.Comment](ctx, c, "comments", q)
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	return c.rest(ctx, http.MethodDelete, "comments", q, nil, nil)
}

// InsertReport files a moderation report.
func (c *Client) InsertReport(ctx context.Context, report *domain.Report) error {
	var rows []domain.Report
	if err := c.rest(ctx, http.MethodPost, "reports", nil, report, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		*report = rows[0]
	}
	return nil
}

// InsertNotification writes a notification row for the realtime channel.
func (c *Client) InsertNotification(ctx context.Context, userID, kind, payload string) error {
	body := map[string]string{"user_id": userID, "kind": kind, "payload": payload}
	return c.rest(ctx, http.MethodPost, "notifications", nil, body, nil)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

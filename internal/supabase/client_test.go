package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyhub/internal/config"
	"storyhub/internal/domain"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.Config{
		SupabaseURL:     srv.URL,
		SupabaseAnonKey: "anon-key",
	}, logger.NewNop())
}

func TestGetContestSendsFiltersAndAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/contests", r.URL.Path)
		assert.Equal(t, "eq.contest-1", r.URL.Query().Get("id"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode([]domain.Contest{{ID: "contest-1", Title: "March Contest"}})
	})

	contest, err := client.GetContest(context.Background(), "contest-1")
	require.NoError(t, err)
	assert.Equal(t, "March Contest", contest.Title)
}

func TestAccessTokenOverridesAnonBearer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		_ = json.NewEncoder(w).Encode([]domain.Vote{})
	})

	client.SetAccessToken("user-token")
	_, err := client.ListVotesByUser(context.Background(), "user-1")
	require.NoError(t, err)
}

func TestGetVoteAbsentIsNilNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Vote{})
	})

	vote, err := client.GetVote(context.Background(), "user-1", "story-1")
	require.NoError(t, err)
	assert.Nil(t, vote, "no standing vote is an ordinary answer, not an error")
}

func TestGetProfileEmptyResultIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.UserProfile{})
	})

	_, err := client.GetProfile(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUnauthorizedBecomesSecurityError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.ListContests(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsSecurity(err))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.ListContests(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeTransient, apperrors.TypeOf(err))
}

func TestInsertStoryUsesRepresentationEcho(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var sent domain.Story
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		sent.WordCount = 42 // server-computed field comes back in the echo
		_ = json.NewEncoder(w).Encode([]domain.Story{sent})
	})

	story := &domain.Story{ID: "story-1", Title: "Mine", ContestID: "contest-1"}
	require.NoError(t, client.InsertStory(context.Background(), story))
	assert.Equal(t, 42, story.WordCount)
}

func TestDeleteStoriesBatchFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "in.(story-1,story-2)", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteStories(context.Background(), []string{"story-1", "story-2"}))
}

func TestContestStatsToleratesRLSDenial(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/contest_stats", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
	})

	stats, err := client.GetContestStats(context.Background(), "contest-1")
	require.NoError(t, err, "an RLS denial on the aggregate is data, not an error")
	assert.Equal(t, "contest-1", stats.ContestID)
	assert.Zero(t, stats.Votes)
}

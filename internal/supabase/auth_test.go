package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyhub/internal/config"
	"storyhub/internal/domain"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

func signedToken(t *testing.T, sub, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func newTestAuth(t *testing.T, handler http.HandlerFunc) *Auth {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAuth(&config.Config{
		SupabaseURL:     srv.URL,
		SupabaseAnonKey: "anon-key",
	}, logger.NewNop())
}

func nextEvent(t *testing.T, auth *Auth) domain.AuthEvent {
	t.Helper()
	select {
	case event := <-auth.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("no auth event emitted")
		return domain.AuthEvent{}
	}
}

func TestStartEmitsInitialSession(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {})

	auth.Start(context.Background())

	event := nextEvent(t, auth)
	assert.Equal(t, domain.AuthEventInitialSession, event.Type)
	assert.Nil(t, event.Session)
}

func TestSignInWithPasswordInstallsSessionAndEmits(t *testing.T) {
	token := ""
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  token,
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	})
	token = signedToken(t, "user-1", "user1@example.com")

	session, err := auth.SignInWithPassword(context.Background(), "user1@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "user1@example.com", session.Email)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	event := nextEvent(t, auth)
	assert.Equal(t, domain.AuthEventSignedIn, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "user-1", event.Session.UserID)
}

func TestSignInRejectionIsValidationError(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error_description": "Invalid login credentials"})
	})

	_, err := auth.SignInWithPassword(context.Background(), "user1@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSignOutClearsSessionEvenWhenRemoteFails(t *testing.T) {
	calls := 0
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": signedToken(t, "user-1", "user1@example.com"),
				"expires_in":   3600,
			})
		case "/auth/v1/logout":
			calls++
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	_, err := auth.SignInWithPassword(context.Background(), "user1@example.com", "pw")
	require.NoError(t, err)
	nextEvent(t, auth) // SIGNED_IN

	err = auth.SignOut(context.Background())
	require.Error(t, err, "the remote failure is reported")
	assert.Equal(t, 1, calls)

	event := nextEvent(t, auth)
	assert.Equal(t, domain.AuthEventSignedOut, event.Type)

	session, err := auth.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session, "the local session must be gone regardless")
}

func TestSignUpWithoutSessionMeansConfirmationPending(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "user-1"})
	})

	session, err := auth.SignUp(context.Background(), "new@example.com", "pw", "Newbie")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestDetectRecoveryInstallsSessionAndEmits(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {})
	token := signedToken(t, "user-1", "user1@example.com")

	landing := fmt.Sprintf("https://app.example.com/reset-password#access_token=%s&refresh_token=r1&type=recovery", token)
	detected, err := auth.DetectRecovery(landing)
	require.NoError(t, err)
	assert.True(t, detected)

	event := nextEvent(t, auth)
	assert.Equal(t, domain.AuthEventPasswordRecovery, event.Type)
	require.NotNil(t, event.Session)
	assert.Equal(t, "user-1", event.Session.UserID)
}

func TestDetectRecoveryIgnoresOrdinaryURLs(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {})

	detected, err := auth.DetectRecovery("https://app.example.com/stories/story-1")
	require.NoError(t, err)
	assert.False(t, detected)
	select {
	case event := <-auth.Events():
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

func TestUpdateUserRequiresSession(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {})

	err := auth.UpdateUser(context.Background(), "new-password")
	require.Error(t, err)
	assert.True(t, apperrors.IsSecurity(err))
}

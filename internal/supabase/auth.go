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

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"storyhub/internal/config"
	"storyhub/internal/domain"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

// Auth is the authentication provider: GoTrue password/signup/recover
// endpoints plus a session-change event stream the synchronization unit
// consumes. Access-token claims are decoded locally without signature
// verification; the server does the verifying, the client only needs the
// identity fields and the expiry.
type Auth struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *logger.Logger
	oauthCfg   *oauth2.Config

	mu      sync.RWMutex
	session *domain.Session

	events chan domain.AuthEvent
}

// NewAuth creates a new auth provider.
func NewAuth(cfg *config.Config, log *logger.Logger) *Auth {
	base := strings.TrimRight(cfg.SupabaseURL, "/")

	var oauthCfg *oauth2.Config
	if cfg.OAuthClientID != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/auth/v1/authorize",
				TokenURL: base + "/auth/v1/token",
			},
		}
	}

	return &Auth{
		baseURL: base,
		anonKey: cfg.SupabaseAnonKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:   log.Named("auth"),
		oauthCfg: oauthCfg,
		events:   make(chan domain.AuthEvent, 16),
	}
}

// Events returns the session-change stream.
func (a *Auth) Events() <-chan domain.AuthEvent {
	return a.events
}

// Start emits the INITIAL_SESSION event. Session is nil when nothing was
// restored; the synchronization unit still needs the event to mark the
// subsystem initialized.
func (a *Auth) Start(ctx context.Context) {
	a.mu.RLock()
	session := a.session
	a.mu.RUnlock()
	a.emit(domain.AuthEvent{Type: domain.AuthEventInitialSession, Session: session})
}

// GetSession returns the current session, nil when signed out.
func (a *Auth) GetSession(ctx context.Context) (*domain.Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// SignInWithPassword exchanges credentials for a session and emits
// SIGNED_IN on success.
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tokens tokenResponse
	if err := a.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &tokens); err != nil {
		return nil, err
	}

	session, err := a.installSession(tokens)
	if err != nil {
		return nil, err
	}
	a.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Session: session})
	return session, nil
}

// SignUp registers a new account. Depending on server-side confirmation
// settings the response may or may not include a usable session.
func (a *Auth) SignUp(ctx context.Context, email, password, name string) (*domain.Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"name": name},
	}
	var tokens tokenResponse
	if err := a.call(ctx, http.MethodPost, "/auth/v1/signup", "", body, &tokens); err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" {
		// Email confirmation pending; no session yet.
		return nil, nil
	}

	session, err := a.installSession(tokens)
	if err != nil {
		return nil, err
	}
	a.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Session: session})
	return session, nil
}

// SignOut revokes the session remotely, clears it locally and emits
// SIGNED_OUT. The local clear happens even when the remote call fails: a
// session we tried to revoke must never stay usable.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	var remoteErr error
	if session != nil {
		remoteErr = a.call(ctx, http.MethodPost, "/auth/v1/logout", session.AccessToken, nil, nil)
		if remoteErr != nil {
			a.logger.WithError(remoteErr).Warn("Remote sign-out failed, session cleared locally")
		}
	}

	a.emit(domain.AuthEvent{Type: domain.AuthEventSignedOut})
	return remoteErr
}

// ResetPasswordForEmail requests a password-reset email.
func (a *Auth) ResetPasswordForEmail(ctx context.Context, email string) error {
	return a.call(ctx, http.MethodPost, "/auth/v1/recover", "", map[string]string{"email": email}, nil)
}

// UpdateUser sets a new password on the current session.
func (a *Auth) UpdateUser(ctx context.Context, password string) error {
	a.mu.RLock()
	session := a.session
	a.mu.RUnlock()
	if session == nil {
		return apperrors.NewSecurityError("no session for password update", nil)
	}
	return a.call(ctx, http.MethodPut, "/auth/v1/user", session.AccessToken, map[string]string{"password": password}, nil)
}

// SignInWithOAuth returns the provider authorize URL for a social sign-in.
func (a *Auth) SignInWithOAuth(provider, state string) (string, error) {
	if a.oauthCfg == nil {
		return "", apperrors.NewValidationError("oauth is not configured", nil)
	}
	return a.oauthCfg.AuthCodeURL(state, oauth2.SetAuthURLParam("provider", provider)), nil
}

// ExchangeOAuthCode completes the OAuth flow and emits SIGNED_IN.
func (a *Auth) ExchangeOAuthCode(ctx context.Context, code string) (*domain.Session, error) {
	if a.oauthCfg == nil {
		return nil, apperrors.NewValidationError("oauth is not configured", nil)
	}
	token, err := a.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.NewTransientError("oauth code exchange failed", err)
	}

	session, err := a.installSession(tokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    int(time.Until(token.Expiry).Seconds()),
	})
	if err != nil {
		return nil, err
	}
	a.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Session: session})
	return session, nil
}

// DetectRecovery inspects a landing URL for password-reset token markers
// (GoTrue puts them in the fragment). On a match it installs the recovery
// session and emits PASSWORD_RECOVERY.
func (a *Auth) DetectRecovery(rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, nil
	}
	frag, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return false, nil
	}
	if frag.Get("type") != "recovery" || frag.Get("access_token") == "" {
		return false, nil
	}

	session, err := a.installSession(tokenResponse{
		AccessToken:  frag.Get("access_token"),
		RefreshToken: frag.Get("refresh_token"),
	})
	if err != nil {
		return false, err
	}
	a.emit(domain.AuthEvent{Type: domain.AuthEventPasswordRecovery, Session: session})
	return true, nil
}

// installSession decodes the access token and stores the session.
func (a *Auth) installSession(tokens tokenResponse) (*domain.Session, error) {
	userID, email, expiresAt, err := decodeClaims(tokens.AccessToken)
	if err != nil {
		return nil, apperrors.NewSecurityError("malformed access token", err)
	}
	if tokens.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}

	session := &domain.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserID:       userID,
		Email:        email,
		ExpiresAt:    expiresAt,
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()
	return session, nil
}

// decodeClaims extracts identity fields from a JWT without verifying the
// signature.
func decodeClaims(token string) (userID, email string, expiresAt time.Time, err error) {
	claims := jwt.MapClaims{}
	if _, _, parseErr := jwt.NewParser().ParseUnverified(token, claims); parseErr != nil {
		return "", "", time.Time{}, parseErr
	}
	if sub, subErr := claims.GetSubject(); subErr == nil {
		userID = sub
	}
	if e, ok := claims["email"].(string); ok {
		email = e
	}
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		expiresAt = exp.Time
	}
	if userID == "" {
		return "", "", time.Time{}, fmt.Errorf("token has no subject")
	}
	return userID, email, expiresAt, nil
}

// call performs one GoTrue request. bearer falls back to the anon key.
func (a *Auth) call(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if bearer == "" {
		bearer = a.anonKey
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return apperrors.NewTransientError("auth provider unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewTransientError("failed to read auth response", err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.NewValidationError(authErrorMessage(respBody), nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewSecurityError(authErrorMessage(respBody), nil)
	case resp.StatusCode >= 400:
		return apperrors.NewTransientError(
			fmt.Sprintf("auth provider returned status %d", resp.StatusCode), nil)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperrors.NewTransientError("failed to parse auth response", err)
		}
	}
	return nil
}

func authErrorMessage(body []byte) string {
	var parsed struct {
		Message     string `json:"msg"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Description != "" {
			return parsed.Description
		}
	}
	return "authentication failed"
}

// emit delivers an event without ever blocking the caller. Drops are logged;
// a consumer that far behind is already broken.
func (a *Auth) emit(event domain.AuthEvent) {
	select {
	case a.events <- event:
	default:
		a.logger.WithField("event", string(event.Type)).Warn("Auth event dropped, stream full")
	}
}

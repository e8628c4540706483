package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"storyhub/internal/domain"
	"storyhub/internal/repository"
	"storyhub/internal/store"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

// AuthSync keeps the store's identity slice in step with the auth
// provider's session-change stream. It is the only writer of the identity
// actions; everything else reads identity through store snapshots.
type AuthSync struct {
	store       *store.Store
	records     repository.RecordStore
	auth        AuthProvider
	votes       *VoteService
	stories     *StoryService
	loadTimeout time.Duration
	resetPath   string
	logger      *logger.Logger

	wg sync.WaitGroup
}

// NewAuthSync creates the synchronization unit. loadTimeout bounds each
// post-settle user-scoped load independently.
func NewAuthSync(st *store.Store, records repository.RecordStore, auth AuthProvider, votes *VoteService, stories *StoryService, loadTimeout time.Duration, resetPath string, log *logger.Logger) *AuthSync {
	return &AuthSync{
		store:       st,
		records:     records,
		auth:        auth,
		votes:       votes,
		stories:     stories,
		loadTimeout: loadTimeout,
		resetPath:   resetPath,
		logger:      log.Named("auth-sync"),
	}
}

// Run consumes the provider event stream until ctx is cancelled. Start it
// once, in its own goroutine, before calling the provider's Start.
func (a *AuthSync) Run(ctx context.Context) {
	scope := store.NewScope(ctx)
	defer scope.Close()

	for {
		select {
		case <-ctx.Done():
			a.wg.Wait()
			return
		case event, ok := <-a.auth.Events():
			if !ok {
				a.wg.Wait()
				return
			}
			a.handle(ctx, scope, event)
		}
	}
}

// tokenCarrier is implemented by record stores that authenticate requests
// with the signed-in user's access token (the PostgREST client does).
type tokenCarrier interface {
	SetAccessToken(token string)
}

func (a *AuthSync) propagateToken(session *domain.Session) {
	tc, ok := a.records.(tokenCarrier)
	if !ok {
		return
	}
	if session == nil {
		tc.SetAccessToken("")
		return
	}
	tc.SetAccessToken(session.AccessToken)
}

func (a *AuthSync) handle(ctx context.Context, scope *store.Scope, event domain.AuthEvent) {
	a.logger.WithField("event", string(event.Type)).Debug("Auth event")
	a.propagateToken(event.Session)

	switch event.Type {
	case domain.AuthEventInitialSession, domain.AuthEventSignedIn:
		a.settle(ctx, scope, event.Session)

	case domain.AuthEventSignedOut:
		scope.Dispatch(a.store, store.SignedOut{})

	case domain.AuthEventPasswordRecovery:
		// A recovery-link session is usable only to set a new password.
		scope.Dispatch(a.store, store.ResetPendingSet{Pending: true})
		a.settle(ctx, scope, event.Session)
	}
}

// settle resolves a session into a profile and marks the auth subsystem
// initialized, then kicks off the user-scoped loads. The initialized flag is
// set on every path, including failures, so the view never waits forever.
func (a *AuthSync) settle(ctx context.Context, scope *store.Scope, session *domain.Session) {
	if session == nil {
		scope.Dispatch(a.store, store.AuthSettled{})
		return
	}

	profile, err := a.records.GetProfile(ctx, session.UserID)
	switch {
	case err == nil:

	case apperrors.IsSecurity(err) || errors.Is(err, domain.ErrUnauthorized):
		// The session itself is suspect. Do not degrade; re-authenticate.
		a.logger.WithError(err).Warn("Profile fetch rejected, forcing sign-out")
		scope.Dispatch(a.store, store.AuthSettled{})
		a.forceSignOut(ctx)
		return

	case apperrors.IsNotFound(err) || errors.Is(err, domain.ErrNotFound):
		// Ghost session: the profile was deleted server-side but the session
		// survived. Clear everything user-scoped before signing out.
		a.logger.WithField("user_id", session.UserID).Warn("Session for deleted profile, forcing sign-out")
		scope.Dispatch(a.store, store.UserScopedCleared{})
		scope.Dispatch(a.store, store.AuthSettled{})
		a.forceSignOut(ctx)
		return

	default:
		// Transient profile failure: continue with what the session claims.
		a.logger.WithError(err).Warn("Profile fetch failed, continuing degraded")
		profile = degradedProfile(session)
	}

	scope.Dispatch(a.store, store.AuthSettled{User: profile, Authenticated: true})
	a.loadUserScoped(ctx, scope)
}

// loadUserScoped runs the post-settle loads (own stories, votes)
// concurrently. Each load carries its own timeout and clears its own loading
// flag; one slow load never fails the sequence.
func (a *AuthSync) loadUserScoped(ctx context.Context, scope *store.Scope) {
	run := func(name string, slice store.Slice, load func(context.Context, *store.Scope) error) {
		defer a.wg.Done()

		loadCtx, cancel := context.WithTimeout(ctx, a.loadTimeout)
		defer cancel()
		defer scope.Dispatch(a.store, store.SliceLoadingSet{Slice: slice, Loading: false})

		scope.Dispatch(a.store, store.SliceLoadingSet{Slice: slice, Loading: true})
		if err := load(loadCtx, scope); err != nil {
			a.logger.WithError(err).WithField("load", name).Warn("User-scoped load failed")
		}
	}

	a.wg.Add(2)
	go run("stories", store.SliceUserStories, a.stories.LoadUserStories)
	go run("votes", store.SliceVotingStats, a.votes.RefreshVotes)
}

// forceSignOut revokes the session; the resulting SIGNED_OUT event clears
// the identity slice through the normal path.
func (a *AuthSync) forceSignOut(ctx context.Context) {
	if err := a.auth.SignOut(ctx); err != nil {
		a.logger.WithError(err).Warn("Forced sign-out failed")
	}
}

// degradedProfile builds a fallback identity from session claims alone.
func degradedProfile(session *domain.Session) *domain.UserProfile {
	name := session.Email
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	return &domain.UserProfile{
		ID:       session.UserID,
		Email:    session.Email,
		Name:     name,
		Degraded: true,
	}
}

// Login signs in with email and password. State updates arrive through the
// event stream; the error return is only for surfacing the inline message.
func (a *AuthSync) Login(ctx context.Context, email, password string) error {
	_, err := a.auth.SignInWithPassword(ctx, email, password)
	return err
}

// Register creates an account. A nil session with a nil error means email
// confirmation is pending.
func (a *AuthSync) Register(ctx context.Context, email, password, name string) (*domain.Session, error) {
	return a.auth.SignUp(ctx, email, password, name)
}

// Logout signs the user out.
func (a *AuthSync) Logout(ctx context.Context) error {
	return a.auth.SignOut(ctx)
}

// RequestPasswordReset asks the provider to send a reset email.
func (a *AuthSync) RequestPasswordReset(ctx context.Context, email string) error {
	return a.auth.ResetPasswordForEmail(ctx, email)
}

// OAuthURL returns the social sign-in authorize URL for the provider.
func (a *AuthSync) OAuthURL(provider, state string) (string, error) {
	return a.auth.SignInWithOAuth(provider, state)
}

// CompleteOAuth exchanges the callback code; the session lands through the
// SIGNED_IN event like any other sign-in.
func (a *AuthSync) CompleteOAuth(ctx context.Context, code string) error {
	_, err := a.auth.ExchangeOAuthCode(ctx, code)
	return err
}

// BeginPasswordReset flags an in-progress reset flow. Called when the
// recovery event fires or when reset token markers are detected in a URL.
func (a *AuthSync) BeginPasswordReset() {
	a.store.Dispatch(store.ResetPendingSet{Pending: true})
}

// HandleNavigation enforces the reset invariant: while a reset is pending,
// leaving the reset page without completing it forces an immediate sign-out.
// A session obtained from a reset-email link must never work as a general
// login.
func (a *AuthSync) HandleNavigation(ctx context.Context, path string) {
	snapshot := a.store.Snapshot()
	if !snapshot.ResetPending || path == a.resetPath {
		return
	}
	a.logger.WithField("path", path).Warn("Navigation during pending password reset, forcing sign-out")
	a.forceSignOut(ctx)
}

// CompletePasswordReset sets the new password and clears the pending flag.
func (a *AuthSync) CompletePasswordReset(ctx context.Context, newPassword string) error {
	if err := a.auth.UpdateUser(ctx, newPassword); err != nil {
		return err
	}
	a.store.Dispatch(store.ResetPendingSet{Pending: false})
	return nil
}

package service

import (
	"context"

	"storyhub/internal/domain"
)

// AuthProvider defines the authentication-provider surface the services
// consume. Satisfied by supabase.Auth; tests substitute a fake.
type AuthProvider interface {
	// Start emits the INITIAL_SESSION event for the restored session (or nil).
	Start(ctx context.Context)

	// Events returns the session-change event stream.
	Events() <-chan domain.AuthEvent

	// GetSession returns the current session, nil when signed out.
	GetSession(ctx context.Context) (*domain.Session, error)

	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password, name string) (*domain.Session, error)
	SignOut(ctx context.Context) error
	ResetPasswordForEmail(ctx context.Context, email string) error
	UpdateUser(ctx context.Context, password string) error

	// SignInWithOAuth returns the provider authorize URL for a social
	// sign-in; ExchangeOAuthCode completes the flow.
	SignInWithOAuth(provider, state string) (string, error)
	ExchangeOAuthCode(ctx context.Context, code string) (*domain.Session, error)
}

// Services aggregates the service layer for the view-layer bridge.
type Services struct {
	Auth     *AuthSync
	Votes    *VoteService
	Stories  *StoryService
	Finished *FinishedCacheService
}

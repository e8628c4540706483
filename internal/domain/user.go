package domain

import "time"

// UserProfile is the platform profile record. Degraded marks a fallback
// profile assembled from session claims only, used when the profile fetch
// fails with a non-security error.
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Degraded  bool      `json:"degraded,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u UserProfile) IsAdmin() bool {
	return u.Role == "admin"
}

// Session is an authentication-provider session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthEventType names the session-change events the provider emits.
type AuthEventType string

const (
	AuthEventInitialSession   AuthEventType = "INITIAL_SESSION"
	AuthEventSignedIn         AuthEventType = "SIGNED_IN"
	AuthEventSignedOut        AuthEventType = "SIGNED_OUT"
	AuthEventPasswordRecovery AuthEventType = "PASSWORD_RECOVERY"
)

// AuthEvent is one entry in the provider's session-change stream. Session
// is nil for SIGNED_OUT and for an INITIAL_SESSION with no stored session.
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	Session *Session      `json:"session,omitempty"`
}

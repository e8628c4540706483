// Package handler exposes the engine to the view layer over HTTP: the state
// snapshot, the auth operations and the content/vote actions. Handlers are a
// thin bridge; every rule lives in the services.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storyhub/internal/domain"
	"storyhub/internal/localstate"
	"storyhub/internal/service"
	"storyhub/internal/store"
	apperrors "storyhub/pkg/errors"
	"storyhub/pkg/logger"
)

// Bridge is the view-layer HTTP surface.
type Bridge struct {
	services *service.Services
	store    *store.Store
	local    *localstate.Store
	logger   *logger.Logger

	// scope is the bridge's mount guard. It spans the process lifetime so
	// delayed reconciliations survive the request that scheduled them, and
	// Close drops everything still in flight during shutdown.
	scope *store.Scope
}

// NewBridge creates the bridge with an open scope.
func NewBridge(services *service.Services, st *store.Store, local *localstate.Store, log *logger.Logger) *Bridge {
	return &Bridge{
		services: services,
		store:    st,
		local:    local,
		logger:   log.Named("bridge"),
		scope:    store.NewScope(context.Background()),
	}
}

// Close tears down the bridge scope. Late async writes are dropped from
// here on.
func (b *Bridge) Close() {
	b.scope.Close()
}

// Routes mounts every endpoint on the router.
func (b *Bridge) Routes(r chi.Router) {
	r.Get("/api/health", b.Health)
	r.Get("/api/state", b.GetState)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", b.Login)
		r.Post("/register", b.Register)
		r.Post("/logout", b.Logout)
		r.Post("/reset-password", b.ResetPassword)
		r.Post("/update-password", b.UpdatePassword)
		r.Get("/oauth/{provider}", b.OAuthURL)
		r.Post("/oauth/callback", b.OAuthCallback)
	})
	r.Post("/api/navigate", b.Navigate)

	r.Post("/api/contests/reload", b.ReloadContests)
	r.Get("/api/contests/{id}/gallery", b.GetGallery)
	r.Get("/api/contests/{id}/stories", b.GetFinishedStories)
	r.Get("/api/contests/{id}/stats", b.GetContestStats)

	r.Post("/api/stories", b.SubmitStory)
	r.Get("/api/stories/{id}", b.GetStory)
	r.Delete("/api/stories/{id}", b.DeleteStory)
	r.Post("/api/stories/{id}/vote", b.ToggleVote)
	r.Get("/api/stories/{id}/can-vote", b.CanVote)
	r.Post("/api/stories/{id}/view", b.RecordView)
	r.Get("/api/stories/{id}/comments", b.ListComments)
	r.Post("/api/stories/{id}/comments", b.AddComment)
	r.Post("/api/stories/{id}/report", b.ReportStory)
	r.Delete("/api/comments/{id}", b.DeleteComment)

	r.Get("/api/consent", b.GetConsent)
	r.Post("/api/consent", b.SetConsent)

	r.Post("/api/admin/stories/bulk-delete", b.AdminBulkDelete)
	r.Post("/api/admin/cache/clear", b.AdminClearCache)
}

// Health handles GET /api/health
func (b *Bridge) Health(w http.ResponseWriter, r *http.Request) {
	b.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetState handles GET /api/state: the full state tree plus the derived
// booleans the views key off.
func (b *Bridge) GetState(w http.ResponseWriter, r *http.Request) {
	snapshot := b.store.Snapshot()
	b.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":                  snapshot.User,
		"is_authenticated":      snapshot.IsAuthenticated,
		"auth_initialized":      snapshot.AuthInitialized,
		"reset_pending":         snapshot.ResetPending,
		"contests":              snapshot.Contests,
		"current_contest":       snapshot.CurrentContest,
		"next_contest":          snapshot.NextContest,
		"user_stories":          snapshot.UserStories,
		"user_votes":            snapshot.UserVotes,
		"voting_stats":          snapshot.VotingStats,
		"gallery":               snapshot.Gallery,
		"loading":               snapshot.Loading,
		"freshness":             snapshot.Freshness,
		"is_auth_ready":         b.store.IsAuthReady(),
		"current_contest_phase": string(b.store.CurrentContestPhase(time.Now())),
		"votes_remaining":       b.store.VotesRemaining(),
	})
}

// Login handles POST /api/auth/login
func (b *Bridge) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := b.services.Auth.Login(r.Context(), req.Email, req.Password); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Register handles POST /api/auth/register
func (b *Bridge) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	session, err := b.services.Auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":              true,
		"confirmation_pending": session == nil,
	})
}

// Logout handles POST /api/auth/logout
func (b *Bridge) Logout(w http.ResponseWriter, r *http.Request) {
	if err := b.services.Auth.Logout(r.Context()); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ResetPassword handles POST /api/auth/reset-password
func (b *Bridge) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := b.services.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UpdatePassword handles POST /api/auth/update-password
func (b *Bridge) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := b.services.Auth.CompletePasswordReset(r.Context(), req.Password); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// OAuthURL handles GET /api/auth/oauth/{provider}
func (b *Bridge) OAuthURL(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	url, err := b.services.Auth.OAuthURL(provider, r.URL.Query().Get("state"))
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// OAuthCallback handles POST /api/auth/oauth/callback
func (b *Bridge) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := b.services.Auth.CompleteOAuth(r.Context(), req.Code); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Navigate handles POST /api/navigate: the view reports route changes so the
// password-reset invariant can be enforced.
func (b *Bridge) Navigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.services.Auth.HandleNavigation(r.Context(), req.Path)
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReloadContests handles POST /api/contests/reload
func (b *Bridge) ReloadContests(w http.ResponseWriter, r *http.Request) {
	if err := b.services.Stories.LoadContests(r.Context(), b.scope); err != nil {
		b.respondServiceError(w, err)
		return
	}
	snapshot := b.store.Snapshot()
	b.respondJSON(w, http.StatusOK, map[string]interface{}{
		"contests":        snapshot.Contests,
		"current_contest": snapshot.CurrentContest,
		"next_contest":    snapshot.NextContest,
	})
}

// GetGallery handles GET /api/contests/{id}/gallery: the live gallery load.
func (b *Bridge) GetGallery(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "id")
	stories, err := b.services.Stories.LoadGalleryStories(r.Context(), b.scope, contestID)
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]interface{}{"stories": stories})
}

// GetFinishedStories handles GET /api/contests/{id}/stories, served through
// the finished-entity cache. ?refresh=true bypasses it.
func (b *Bridge) GetFinishedStories(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "id")
	force := r.URL.Query().Get("refresh") == "true"
	stories, err := b.services.Finished.GetStoriesByContest(r.Context(), contestID, force)
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]interface{}{"stories": stories})
}

// GetContestStats handles GET /api/contests/{id}/stats
func (b *Bridge) GetContestStats(w http.ResponseWriter, r *http.Request) {
	stats, err := b.services.Stories.ContestStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, stats)
}

// SubmitStory handles POST /api/stories
func (b *Bridge) SubmitStory(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := b.services.Stories.SubmitStory(r.Context(), b.scope, req)
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, result)
}

// GetStory handles GET /api/stories/{id}, served through the finished-entity
// cache when the story's contest is finalized.
func (b *Bridge) GetStory(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "id")
	force := r.URL.Query().Get("refresh") == "true"
	story, err := b.services.Finished.GetStoryByID(r.Context(), storyID, force)
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, story)
}

// DeleteStory handles DELETE /api/stories/{id}
func (b *Bridge) DeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := b.services.Stories.DeleteStory(r.Context(), b.scope, chi.URLParam(r, "id")); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ToggleVote handles POST /api/stories/{id}/vote
func (b *Bridge) ToggleVote(w http.ResponseWriter, r *http.Request) {
	result, err := b.services.Votes.ToggleVote(r.Context(), b.scope, chi.URLParam(r, "id"))
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, result)
}

// CanVote handles GET /api/stories/{id}/can-vote
func (b *Bridge) CanVote(w http.ResponseWriter, r *http.Request) {
	decision, err := b.services.Votes.CanVote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, decision)
}

// RecordView handles POST /api/stories/{id}/view
func (b *Bridge) RecordView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ContestID string `json:"contest_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := b.services.Stories.RecordView(r.Context(), b.scope, req.ContestID, chi.URLParam(r, "id")); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListComments handles GET /api/stories/{id}/comments
func (b *Bridge) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := b.services.Stories.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// AddComment handles POST /api/stories/{id}/comments
func (b *Bridge) AddComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	comment, err := b.services.Stories.AddComment(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/comments/{id}
func (b *Bridge) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := b.services.Stories.DeleteComment(r.Context(), chi.URLParam(r, "id")); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ReportStory handles POST /api/stories/{id}/report
func (b *Bridge) ReportStory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.services.Stories.ReportStory(r.Context(), chi.URLParam(r, "id"), req.Reason)
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetConsent handles GET /api/consent
func (b *Bridge) GetConsent(w http.ResponseWriter, r *http.Request) {
	consent := b.local.Consent()
	if consent == nil {
		b.respondJSON(w, http.StatusOK, map[string]bool{"answered": false})
		return
	}
	b.respondJSON(w, http.StatusOK, consent)
}

// SetConsent handles POST /api/consent
func (b *Bridge) SetConsent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Analytics bool `json:"analytics"`
		Marketing bool `json:"marketing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.local.SetConsent(req.Analytics, req.Marketing, time.Now())
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// AdminBulkDelete handles POST /api/admin/stories/bulk-delete
func (b *Bridge) AdminBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StoryIDs []string `json:"story_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := b.services.Stories.AdminBulkDeleteStories(r.Context(), b.scope, req.StoryIDs); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": len(req.StoryIDs)})
}

// AdminClearCache handles POST /api/admin/cache/clear
func (b *Bridge) AdminClearCache(w http.ResponseWriter, r *http.Request) {
	snapshot := b.store.Snapshot()
	if snapshot.User == nil || !snapshot.User.IsAdmin() {
		b.respondError(w, http.StatusUnauthorized, "Admin role required")
		return
	}
	if err := b.services.Finished.ClearCache(r.Context()); err != nil {
		b.respondServiceError(w, err)
		return
	}
	b.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// respondServiceError maps the error taxonomy onto HTTP: declines stay 200
// with a structured refusal, everything else becomes an error envelope.
func (b *Bridge) respondServiceError(w http.ResponseWriter, err error) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeDecline:
		b.respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"reason":  appMessage(err),
		})
	case apperrors.ErrorTypeValidation:
		b.respondError(w, http.StatusBadRequest, appMessage(err))
	case apperrors.ErrorTypeNotFound:
		b.respondError(w, http.StatusNotFound, appMessage(err))
	case apperrors.ErrorTypeSecurity:
		b.respondError(w, http.StatusUnauthorized, appMessage(err))
	case apperrors.ErrorTypeTransient:
		b.logger.WithError(err).Warn("Service failure")
		b.respondError(w, http.StatusBadGateway, appMessage(err))
	default:
		b.logger.WithError(err).Error("Unexpected failure")
		b.respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func appMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (b *Bridge) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (b *Bridge) respondError(w http.ResponseWriter, status int, message string) {
	b.respondJSON(w, status, map[string]string{"error": message})
}

// Package rest exposes the exchange service as a JSON HTTP API.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/sommlab/ai.exchange/internal/services/exchange/app"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/ratelimit"
)

// Options tunes the HTTP surface.
type Options struct {
	// AllowedOrigins lists origins allowed to call the API from a
	// browser. Empty allows any origin.
	AllowedOrigins []string
}

// Handler owns the route handlers and their auth endpoint limiters.
type Handler struct {
	svc    *app.Service
	health func(context.Context) error
	opts   Options

	loginLimit    *ratelimit.Limiter
	registerLimit *ratelimit.Limiter
	forgotLimit   *ratelimit.Limiter
	resetLimit    *ratelimit.Limiter
}

// Default auth endpoint rate limits, overridable through the admin
// rate limit settings.
const (
	defaultLoginLimit    = 5 // per minute
	defaultRegisterLimit = 3 // per minute
	defaultForgotLimit   = 3 // per hour
	defaultResetLimit    = 5 // per hour
)

// NewHandler builds the API handler. The health probe may be nil.
func NewHandler(svc *app.Service, health func(context.Context) error, opts Options) *Handler {
	return &Handler{
		svc:           svc,
		health:        health,
		opts:          opts,
		loginLimit:    ratelimit.PerMinute(defaultLoginLimit),
		registerLimit: ratelimit.PerMinute(defaultRegisterLimit),
		forgotLimit:   ratelimit.PerHour(defaultForgotLimit),
		resetLimit:    ratelimit.PerHour(defaultResetLimit),
	}
}

// Routes wires every endpoint into a mux wrapped with the shared
// middleware chain.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /api/v1/{$}", handleWelcome)

	mux.HandleFunc("POST /api/v1/auth/register", h.throttle("rate_limit_register", defaultRegisterLimit, h.registerLimit, h.handleRegister))
	mux.HandleFunc("POST /api/v1/auth/verify-email", h.handleVerifyEmail)
	mux.HandleFunc("POST /api/v1/auth/login", h.throttle("rate_limit_login", defaultLoginLimit, h.loginLimit, h.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/v1/auth/forgot-password", h.throttle("rate_limit_forgot_password", defaultForgotLimit, h.forgotLimit, h.handleForgotPassword))
	mux.HandleFunc("POST /api/v1/auth/reset-password", h.throttle("rate_limit_reset_password", defaultResetLimit, h.resetLimit, h.handleResetPassword))
	mux.HandleFunc("GET /api/v1/auth/me", h.requireAuth(h.handleMe))
	mux.HandleFunc("PUT /api/v1/auth/me", h.requireAuth(h.handleUpdateProfile))

	mux.HandleFunc("POST /api/v1/resources", h.requireAuth(h.handleCreateResource))
	mux.HandleFunc("GET /api/v1/resources", h.requireAuth(h.handleListResources))
	mux.HandleFunc("GET /api/v1/resources/similar", h.requireAuth(h.handleSimilarResources))
	mux.HandleFunc("GET /api/v1/resources/{id}", h.requireAuth(h.handleGetResource))
	mux.HandleFunc("PUT /api/v1/resources/{id}", h.requireAuth(h.handleUpdateResource))
	mux.HandleFunc("DELETE /api/v1/resources/{id}", h.requireAuth(h.handleDeleteResource))
	mux.HandleFunc("GET /api/v1/resources/{id}/solutions", h.requireAuth(h.handleListSolutions))
	mux.HandleFunc("POST /api/v1/resources/{id}/fork", h.requireAuth(h.handleForkResource))
	mux.HandleFunc("POST /api/v1/resources/{id}/view", h.requireAuth(h.handleTrackView))
	mux.HandleFunc("POST /api/v1/resources/{id}/tried", h.requireAuth(h.handleTrackTried))
	mux.HandleFunc("POST /api/v1/resources/{id}/save", h.requireAuth(h.handleToggleSave))
	mux.HandleFunc("GET /api/v1/resources/{id}/saved", h.requireAuth(h.handleIsSaved))
	mux.HandleFunc("GET /api/v1/resources/{id}/analytics", h.requireAuth(h.handleResourceAnalytics))
	mux.HandleFunc("POST /api/v1/resources/{id}/collaborate", h.requireAuth(h.handleCollaborate))
	mux.HandleFunc("GET /api/v1/resources/{id}/collaboration-options", h.requireAuth(h.handleCollaborationOptions))
	mux.HandleFunc("GET /api/v1/resources/{id}/comments", h.requireAuth(h.handleListComments))
	mux.HandleFunc("POST /api/v1/resources/{id}/comments", h.requireAuth(h.handleAddComment))
	mux.HandleFunc("GET /api/v1/users/me/saved", h.requireAuth(h.handleSavedResources))

	mux.HandleFunc("PUT /api/v1/comments/{id}", h.requireAuth(h.handleEditComment))
	mux.HandleFunc("DELETE /api/v1/comments/{id}", h.requireAuth(h.handleDeleteComment))
	mux.HandleFunc("POST /api/v1/comments/{id}/helpful", h.requireAuth(h.handleCommentHelpful))

	mux.HandleFunc("POST /api/v1/prompts", h.requireAuth(h.handleCreatePrompt))
	mux.HandleFunc("GET /api/v1/prompts", h.requireAuth(h.handleListPrompts))
	mux.HandleFunc("GET /api/v1/prompts/{id}", h.requireAuth(h.handleGetPrompt))
	mux.HandleFunc("PUT /api/v1/prompts/{id}", h.requireAuth(h.handleUpdatePrompt))
	mux.HandleFunc("DELETE /api/v1/prompts/{id}", h.requireAuth(h.handleDeletePrompt))
	mux.HandleFunc("POST /api/v1/prompts/{id}/use", h.requireAuth(h.handleUsePrompt))
	mux.HandleFunc("POST /api/v1/prompts/{id}/fork", h.requireAuth(h.handleForkPrompt))

	mux.HandleFunc("POST /api/v1/collections", h.requireAuth(h.handleCreateCollection))
	mux.HandleFunc("GET /api/v1/collections", h.requireAuth(h.handleListCollections))
	mux.HandleFunc("GET /api/v1/collections/{id}", h.requireAuth(h.handleGetCollection))
	mux.HandleFunc("PUT /api/v1/collections/{id}", h.requireAuth(h.handleUpdateCollection))
	mux.HandleFunc("DELETE /api/v1/collections/{id}", h.requireAuth(h.handleDeleteCollection))

	mux.HandleFunc("GET /api/v1/subscriptions", h.requireAuth(h.handleListSubscriptions))
	mux.HandleFunc("POST /api/v1/subscriptions/{tag}", h.requireAuth(h.handleSubscribe))
	mux.HandleFunc("DELETE /api/v1/subscriptions/{tag}", h.requireAuth(h.handleUnsubscribe))
	mux.HandleFunc("PUT /api/v1/notifications/preferences", h.requireAuth(h.handleUpdatePrefs))

	mux.HandleFunc("GET /api/v1/admin/users", h.requireAuth(h.handleAdminListUsers))
	mux.HandleFunc("GET /api/v1/admin/users/{id}", h.requireAuth(h.handleAdminGetUser))
	mux.HandleFunc("PUT /api/v1/admin/users/{id}/role", h.requireAuth(h.handleAdminSetRole))
	mux.HandleFunc("PUT /api/v1/admin/users/{id}/status", h.requireAuth(h.handleAdminSetStatus))
	mux.HandleFunc("POST /api/v1/admin/users/{id}/approve", h.requireAuth(h.handleAdminApprove))
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", h.requireAuth(h.handleAdminDeleteUser))
	mux.HandleFunc("POST /api/v1/admin/resources/{id}/verify", h.requireAuth(h.handleAdminVerifyResource))
	mux.HandleFunc("POST /api/v1/admin/resources/{id}/hide", h.requireAuth(h.handleAdminHideResource))
	mux.HandleFunc("POST /api/v1/admin/resources/{id}/unhide", h.requireAuth(h.handleAdminUnhideResource))
	mux.HandleFunc("PUT /api/v1/admin/resources/{id}/shadow", h.requireAuth(h.handleAdminShadowEdit))
	mux.HandleFunc("GET /api/v1/admin/analytics", h.requireAuth(h.handleAdminAnalytics))
	mux.HandleFunc("GET /api/v1/admin/analytics/disciplines", h.requireAuth(h.handleAdminDisciplines))
	mux.HandleFunc("GET /api/v1/admin/config/snapshot", h.requireAuth(h.handleAdminConfigSnapshot))
	mux.HandleFunc("POST /api/v1/admin/config/update", h.requireAuth(h.handleAdminConfigUpdate))
	mux.HandleFunc("GET /api/v1/admin/config/secrets/status", h.requireAuth(h.handleAdminSecretsStatus))
	mux.HandleFunc("POST /api/v1/admin/config/secrets", h.requireAuth(h.handleAdminUpdateSecret))

	return withRequestID(withCORS(h.opts.AllowedOrigins, mux))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "The AI Exchange API",
		"version": "v1",
		"status":  "ok",
	})
}

// userPayload is the public shape of a user.
type userPayload struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	IsVerified  bool      `json:"is_verified"`
	IsApproved  bool      `json:"is_approved"`
	Disciplines []string  `json:"disciplines"`
	Prefs       prefsBody `json:"notification_preferences"`
	CreatedAt   time.Time `json:"created_at"`
}

type prefsBody struct {
	NotifyRequests  bool `json:"notify_requests"`
	NotifySolutions bool `json:"notify_solutions"`
}

func toUserPayload(user domain.User) userPayload {
	return userPayload{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        string(user.Role),
		IsActive:    user.IsActive,
		IsVerified:  user.IsVerified,
		IsApproved:  user.IsApproved,
		Disciplines: user.Disciplines,
		Prefs: prefsBody{
			NotifyRequests:  user.Prefs.NotifyRequests,
			NotifySolutions: user.Prefs.NotifySolutions,
		},
		CreatedAt: user.CreatedAt,
	}
}

// resourcePayload is the public shape of a resource with engagement.
type resourcePayload struct {
	ID                 string              `json:"id"`
	ParentID           string              `json:"parent_id,omitempty"`
	Type               string              `json:"type"`
	Status             string              `json:"status"`
	Title              string              `json:"title"`
	ContentText        string              `json:"content_text,omitempty"`
	ContentMeta        map[string]any      `json:"content_meta,omitempty"`
	AuthorName         string              `json:"author_name"`
	AuthorEmail        string              `json:"author_email,omitempty"`
	IsAnonymous        bool                `json:"is_anonymous"`
	IsVerified         bool                `json:"is_verified"`
	IsFork             bool                `json:"is_fork"`
	ForkedFromID       string              `json:"forked_from_id,omitempty"`
	SystemTags         []string            `json:"system_tags"`
	UserTags           []string            `json:"user_tags"`
	ShadowTags         []string            `json:"shadow_tags,omitempty"`
	ShadowDescription  string              `json:"shadow_description,omitempty"`
	Discipline         string              `json:"discipline,omitempty"`
	AuthorTitle        string              `json:"author_title,omitempty"`
	ToolsUsed          map[string][]string `json:"tools_used,omitempty"`
	Collaborators      []string            `json:"collaborators,omitempty"`
	TimeSavedValue     float64             `json:"time_saved_value,omitempty"`
	TimeSavedFrequency string              `json:"time_saved_frequency,omitempty"`
	EvidenceOfSuccess  []string            `json:"evidence_of_success,omitempty"`
	QuickSummary       string              `json:"quick_summary,omitempty"`
	WorkflowSteps      []string            `json:"workflow_steps,omitempty"`
	ExamplePrompt      string              `json:"example_prompt,omitempty"`
	EthicsLimitations  string              `json:"ethics_limitations,omitempty"`
	CollabStatus       string              `json:"collaboration_status,omitempty"`
	OpenTo             []string            `json:"open_to,omitempty"`
	VersionNumber      int                 `json:"version_number"`
	ViewCount          int                 `json:"view_count"`
	SaveCount          int                 `json:"save_count"`
	TriedCount         int                 `json:"tried_count"`
	ForkCount          int                 `json:"fork_count"`
	CommentCount       int                 `json:"comment_count"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func toResourcePayload(view app.ResourceView) resourcePayload {
	resource := view.Resource
	return resourcePayload{
		ID:                 resource.ID,
		ParentID:           resource.ParentID,
		Type:               string(resource.Type),
		Status:             string(resource.Status),
		Title:              resource.Title,
		ContentText:        resource.ContentText,
		ContentMeta:        resource.ContentMeta,
		AuthorName:         view.AuthorName,
		AuthorEmail:        view.AuthorEmail,
		IsAnonymous:        resource.IsAnonymous,
		IsVerified:         resource.IsVerified,
		IsFork:             resource.IsFork,
		ForkedFromID:       resource.ForkedFromID,
		SystemTags:         resource.SystemTags,
		UserTags:           resource.UserTags,
		ShadowTags:         resource.ShadowTags,
		ShadowDescription:  resource.ShadowDescription,
		Discipline:         resource.Discipline,
		AuthorTitle:        resource.AuthorTitle,
		ToolsUsed:          resource.ToolsUsed,
		Collaborators:      resource.Collaborators,
		TimeSavedValue:     resource.TimeSavedValue,
		TimeSavedFrequency: resource.TimeSavedFrequency,
		EvidenceOfSuccess:  resource.EvidenceOfSuccess,
		QuickSummary:       resource.QuickSummary,
		WorkflowSteps:      resource.WorkflowSteps,
		ExamplePrompt:      resource.ExamplePrompt,
		EthicsLimitations:  resource.EthicsLimitations,
		CollabStatus:       string(resource.CollabStatus),
		OpenTo:             resource.OpenTo,
		VersionNumber:      resource.VersionNumber,
		ViewCount:          view.Analytics.ViewCount,
		SaveCount:          view.Analytics.SaveCount,
		TriedCount:         view.Analytics.TriedCount,
		ForkCount:          view.Analytics.ForkCount,
		CommentCount:       view.Analytics.CommentCount,
		CreatedAt:          resource.CreatedAt,
		UpdatedAt:          resource.UpdatedAt,
	}
}

func toResourcePayloads(views []app.ResourceView) []resourcePayload {
	payloads := make([]resourcePayload, 0, len(views))
	for _, view := range views {
		payloads = append(payloads, toResourcePayload(view))
	}
	return payloads
}

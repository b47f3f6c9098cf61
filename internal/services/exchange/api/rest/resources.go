package rest

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/services/exchange/app"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

type createResourceBody struct {
	ParentID           string              `json:"parent_id"`
	Type               string              `json:"type"`
	Title              string              `json:"title"`
	ContentText        string              `json:"content_text"`
	ContentMeta        map[string]any      `json:"content_meta"`
	IsAnonymous        bool                `json:"is_anonymous"`
	UserTags           []string            `json:"user_tags"`
	Discipline         string              `json:"discipline"`
	AuthorTitle        string              `json:"author_title"`
	ToolsUsed          map[string][]string `json:"tools_used"`
	Collaborators      []string            `json:"collaborators"`
	TimeSavedValue     float64             `json:"time_saved_value"`
	TimeSavedFrequency string              `json:"time_saved_frequency"`
	EvidenceOfSuccess  []string            `json:"evidence_of_success"`
	QuickSummary       string              `json:"quick_summary"`
	WorkflowSteps      []string            `json:"workflow_steps"`
	ExamplePrompt      string              `json:"example_prompt"`
	EthicsLimitations  string              `json:"ethics_limitations"`
	CollabStatus       string              `json:"collaboration_status"`
	OpenTo             []string            `json:"open_to"`
}

func (h *Handler) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body createResourceBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.CollabStatus != "" && !domain.ValidCollaborationStatus(body.CollabStatus) {
		writeError(w, apperrors.E(apperrors.KindInvalidInput, "unknown collaboration status"))
		return
	}
	resource, err := h.svc.CreateResource(r.Context(), user, app.CreateResourceInput{
		ParentID:           body.ParentID,
		Type:               domain.ResourceType(body.Type),
		Title:              body.Title,
		ContentText:        body.ContentText,
		ContentMeta:        body.ContentMeta,
		IsAnonymous:        body.IsAnonymous,
		UserTags:           body.UserTags,
		Discipline:         body.Discipline,
		AuthorTitle:        body.AuthorTitle,
		ToolsUsed:          body.ToolsUsed,
		Collaborators:      body.Collaborators,
		TimeSavedValue:     body.TimeSavedValue,
		TimeSavedFrequency: body.TimeSavedFrequency,
		EvidenceOfSuccess:  body.EvidenceOfSuccess,
		QuickSummary:       body.QuickSummary,
		WorkflowSteps:      body.WorkflowSteps,
		ExamplePrompt:      body.ExamplePrompt,
		EthicsLimitations:  body.EthicsLimitations,
		CollabStatus:       domain.CollaborationStatus(body.CollabStatus),
		OpenTo:             body.OpenTo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.svc.GetResource(r.Context(), user, resource.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourcePayload(view))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (h *Handler) handleListResources(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	input := app.ListResourcesInput{
		Type:       domain.ResourceType(query.Get("type")),
		Status:     domain.ResourceStatus(query.Get("status")),
		Tag:        query.Get("tag"),
		Search:     query.Get("search"),
		Discipline: query.Get("discipline"),
		SortBy:     query.Get("sort_by"),
		Skip:       queryInt(r, "skip", 0),
		Limit:      queryInt(r, "limit", 0),
	}
	if tools := query.Get("tools"); tools != "" {
		input.Tools = strings.Split(tools, ",")
	}
	if disciplines := query.Get("author_disciplines"); disciplines != "" {
		input.AuthorDisciplines = strings.Split(disciplines, ",")
	}
	if raw := query.Get("min_time_saved"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, apperrors.E(apperrors.KindInvalidInput, "min_time_saved must be a number"))
			return
		}
		input.MinTimeSaved = &value
	}

	views, err := h.svc.ListResources(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourcePayloads(views))
}

func (h *Handler) handleGetResource(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	view, err := h.svc.GetResource(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourcePayload(view))
}

type updateResourceBody struct {
	Title       *string         `json:"title"`
	ContentText *string         `json:"content_text"`
	ContentMeta *map[string]any `json:"content_meta"`
	UserTags    *[]string       `json:"user_tags"`
}

func (h *Handler) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body updateResourceBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	resource, err := h.svc.UpdateResource(r.Context(), user, r.PathValue("id"), app.UpdateResourceInput{
		Title:       body.Title,
		ContentText: body.ContentText,
		ContentMeta: body.ContentMeta,
		UserTags:    body.UserTags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.svc.GetResource(r.Context(), user, resource.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourcePayload(view))
}

func (h *Handler) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	if err := h.svc.DeleteResource(r.Context(), user, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSolutions(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListSolutions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourcePayloads(views))
}

func (h *Handler) handleForkResource(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	fork, err := h.svc.ForkResource(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.svc.GetResource(r.Context(), user, fork.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourcePayload(view))
}

func (h *Handler) handleTrackView(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	resourceID := r.PathValue("id")
	count, err := h.svc.TrackView(r.Context(), user, resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"view_count":  count,
		"status":      "tracked",
	})
}

func (h *Handler) handleTrackTried(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	resourceID := r.PathValue("id")
	count, err := h.svc.TrackTried(r.Context(), user, resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"tried_count": count,
		"status":      "tracked",
	})
}

func (h *Handler) handleToggleSave(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	resourceID := r.PathValue("id")
	saved, count, err := h.svc.ToggleSave(r.Context(), user, resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	status := "unsaved"
	if saved {
		status = "saved"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"is_saved":    saved,
		"save_count":  count,
		"status":      status,
	})
}

func (h *Handler) handleIsSaved(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	resourceID := r.PathValue("id")
	saved, err := h.svc.IsSaved(r.Context(), user, resourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"is_saved":    saved,
	})
}

type analyticsPayload struct {
	ResourceID    string `json:"resource_id"`
	ViewCount     int    `json:"view_count"`
	UniqueViewers int    `json:"unique_viewers"`
	SaveCount     int    `json:"save_count"`
	TriedCount    int    `json:"tried_count"`
	ForkCount     int    `json:"fork_count"`
	CommentCount  int    `json:"comment_count"`
	HelpfulCount  int    `json:"helpful_count"`
}

func toAnalyticsPayload(analytics domain.ResourceAnalytics) analyticsPayload {
	return analyticsPayload{
		ResourceID:    analytics.ResourceID,
		ViewCount:     analytics.ViewCount,
		UniqueViewers: analytics.UniqueViewers,
		SaveCount:     analytics.SaveCount,
		TriedCount:    analytics.TriedCount,
		ForkCount:     analytics.ForkCount,
		CommentCount:  analytics.CommentCount,
		HelpfulCount:  analytics.HelpfulCount,
	}
}

func (h *Handler) handleResourceAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.svc.ResourceAnalytics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalyticsPayload(analytics))
}

func (h *Handler) handleSavedResources(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	views, err := h.svc.SavedResources(r.Context(), user, queryInt(r, "skip", 0), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourcePayloads(views))
}

type collaborateBody struct {
	Message string `json:"message"`
}

func (h *Handler) handleCollaborate(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body collaborateBody
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}
	}
	request, err := h.svc.RequestCollaboration(r.Context(), user, r.PathValue("id"), body.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"status":       "collaboration_request_sent",
		"resource_id":  request.ResourceID,
		"from_user_id": request.FromUserID,
		"to_user_id":   request.ToUserID,
		"message":      request.Message,
	})
}

func (h *Handler) handleCollaborationOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.svc.CollaborationOptions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id":          options.ResourceID,
		"author_id":            options.AuthorID,
		"collaboration_status": string(options.Status),
		"open_to":              options.OpenTo,
		"contact_options": map[string]bool{
			"email": options.ContactByEmail,
		},
	})
}

func (h *Handler) handleSimilarResources(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	query := r.URL.Query()
	input := app.SimilarResourcesInput{
		Discipline: query.Get("discipline"),
		Limit:      queryInt(r, "limit", 0),
	}
	if tools := query.Get("tools"); tools != "" {
		input.Tools = strings.Split(tools, ",")
	}
	views, err := h.svc.SimilarResources(r.Context(), user, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourcePayloads(views))
}

package rest

import (
	"net/http"

	"github.com/sommlab/ai.exchange/internal/services/exchange/app"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

func (h *Handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	users, err := h.svc.ListUsers(r.Context(), caller, queryInt(r, "skip", 0), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]userPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, toUserPayload(user))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (h *Handler) handleAdminGetUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	detail, err := h.svc.GetUserDetail(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":           toUserPayload(detail.User),
		"resource_count": detail.ResourceCount,
	})
}

type roleBody struct {
	Role string `json:"role"`
}

func (h *Handler) handleAdminSetRole(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	var body roleBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.svc.SetUserRole(r.Context(), caller, r.PathValue("id"), domain.UserRole(body.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserPayload(user))
}

type statusBody struct {
	IsActive bool `json:"is_active"`
}

func (h *Handler) handleAdminSetStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	var body statusBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.svc.SetUserActive(r.Context(), caller, r.PathValue("id"), body.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserPayload(user))
}

func (h *Handler) handleAdminApprove(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	user, err := h.svc.ApproveUser(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserPayload(user))
}

func (h *Handler) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	if err := h.svc.DeleteUserAccount(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminResourceView(w http.ResponseWriter, r *http.Request, resource domain.Resource) {
	caller, _ := userFrom(r.Context())
	view, err := h.svc.GetResource(r.Context(), caller, resource.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourcePayload(view))
}

func (h *Handler) handleAdminVerifyResource(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	resource, err := h.svc.VerifyResource(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	h.adminResourceView(w, r, resource)
}

func (h *Handler) handleAdminHideResource(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	resource, err := h.svc.SetResourceHidden(r.Context(), caller, r.PathValue("id"), true)
	if err != nil {
		writeError(w, err)
		return
	}
	h.adminResourceView(w, r, resource)
}

func (h *Handler) handleAdminUnhideResource(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	resource, err := h.svc.SetResourceHidden(r.Context(), caller, r.PathValue("id"), false)
	if err != nil {
		writeError(w, err)
		return
	}
	h.adminResourceView(w, r, resource)
}

type shadowEditBody struct {
	ShadowDescription *string   `json:"shadow_description"`
	ShadowTags        *[]string `json:"shadow_tags"`
}

func (h *Handler) handleAdminShadowEdit(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	var body shadowEditBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	resource, err := h.svc.ShadowEditResource(r.Context(), caller, r.PathValue("id"), app.ShadowEditInput{
		ShadowDescription: body.ShadowDescription,
		ShadowTags:        body.ShadowTags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.adminResourceView(w, r, resource)
}

func (h *Handler) handleAdminAnalytics(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	report, err := h.svc.GetPlatformAnalytics(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	top := make([]analyticsPayload, 0, len(report.TopResources))
	for _, analytics := range report.TopResources {
		top = append(top, toAnalyticsPayload(analytics))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_users":            report.Stats.TotalUsers,
		"total_resources":        report.Stats.TotalResources,
		"total_views":            report.Stats.TotalViews,
		"total_saves":            report.Stats.TotalSaves,
		"total_tried":            report.Stats.TotalTried,
		"total_forks":            report.Stats.TotalForks,
		"total_comments":         report.Stats.TotalComments,
		"unique_viewers":         report.Stats.UniqueViewers,
		"avg_views_per_resource": report.Stats.AvgViewsPerResource,
		"avg_saves_per_resource": report.Stats.AvgSavesPerResource,
		"top_resources":          top,
	})
}

func (h *Handler) handleAdminDisciplines(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	stats, err := h.svc.AnalyticsByDiscipline(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	payload := make(map[string]map[string]int, len(stats))
	for discipline, entry := range stats {
		payload[discipline] = map[string]int{
			"count":       entry.Count,
			"total_views": entry.TotalViews,
			"total_saves": entry.TotalSaves,
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleAdminConfigSnapshot(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	snapshot, err := h.svc.ConfigSnapshot(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	// Settings are grouped by category for the admin console.
	categories := make(map[string][]map[string]any)
	for _, setting := range snapshot {
		categories[setting.Category] = append(categories[setting.Category], map[string]any{
			"key":         setting.Key,
			"value":       setting.Value,
			"description": setting.Description,
			"editable":    setting.Editable,
		})
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) handleAdminConfigUpdate(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	var body map[string]string
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	changed, err := h.svc.UpdateConfig(r.Context(), caller, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "configuration updated",
		"updated": changed,
	})
}

func (h *Handler) handleAdminSecretsStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	statuses, err := h.svc.SecretsStatus(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(statuses))
	for _, status := range statuses {
		payload = append(payload, map[string]any{
			"name":        status.Key,
			"configured":  status.Configured,
			"description": status.Description,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

type secretUpdateBody struct {
	SecretName string `json:"secret_name"`
	Value      string `json:"value"`
}

func (h *Handler) handleAdminUpdateSecret(w http.ResponseWriter, r *http.Request) {
	caller, _ := userFrom(r.Context())
	var body secretUpdateBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.UpdateSecret(r.Context(), caller, body.SecretName, body.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "secret updated"})
}

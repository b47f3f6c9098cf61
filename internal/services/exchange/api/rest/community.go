package rest

import (
	"net/http"
	"time"

	"github.com/sommlab/ai.exchange/internal/services/exchange/app"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

type commentPayload struct {
	ID              string    `json:"id"`
	ResourceID      string    `json:"resource_id"`
	ParentCommentID string    `json:"parent_comment_id,omitempty"`
	UserID          string    `json:"user_id"`
	Content         string    `json:"content"`
	HelpfulCount    int       `json:"helpful_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toCommentPayload(comment domain.Comment) commentPayload {
	return commentPayload{
		ID:              comment.ID,
		ResourceID:      comment.ResourceID,
		ParentCommentID: comment.ParentCommentID,
		UserID:          comment.UserID,
		Content:         comment.Content,
		HelpfulCount:    comment.HelpfulCount,
		CreatedAt:       comment.CreatedAt,
		UpdatedAt:       comment.UpdatedAt,
	}
}

type addCommentBody struct {
	ParentCommentID string `json:"parent_comment_id"`
	Content         string `json:"content"`
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body addCommentBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	comment, err := h.svc.AddComment(r.Context(), user, app.AddCommentInput{
		ResourceID:      r.PathValue("id"),
		ParentCommentID: body.ParentCommentID,
		Content:         body.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCommentPayload(comment))
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.ListComments(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]commentPayload, 0, len(comments))
	for _, comment := range comments {
		payloads = append(payloads, toCommentPayload(comment))
	}
	writeJSON(w, http.StatusOK, payloads)
}

type editCommentBody struct {
	Content string `json:"content"`
}

func (h *Handler) handleEditComment(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body editCommentBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	comment, err := h.svc.EditComment(r.Context(), user, r.PathValue("id"), body.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommentPayload(comment))
}

func (h *Handler) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	if err := h.svc.DeleteComment(r.Context(), user, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCommentHelpful(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.MarkCommentHelpful(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"helpful_count": count})
}

type promptPayload struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	PromptText    string    `json:"prompt_text"`
	Description   string    `json:"description,omitempty"`
	Variables     []string  `json:"variables,omitempty"`
	SharingLevel  string    `json:"sharing_level"`
	IsFork        bool      `json:"is_fork"`
	ForkedFromID  string    `json:"forked_from_id,omitempty"`
	VersionNumber int       `json:"version_number"`
	UsageCount    int       `json:"usage_count"`
	ForkCount     int       `json:"fork_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toPromptPayload(prompt domain.Prompt) promptPayload {
	return promptPayload{
		ID:            prompt.ID,
		UserID:        prompt.UserID,
		Title:         prompt.Title,
		PromptText:    prompt.PromptText,
		Description:   prompt.Description,
		Variables:     prompt.Variables,
		SharingLevel:  string(prompt.SharingLevel),
		IsFork:        prompt.IsFork,
		ForkedFromID:  prompt.ForkedFromID,
		VersionNumber: prompt.VersionNumber,
		UsageCount:    prompt.UsageCount,
		ForkCount:     prompt.ForkCount,
		CreatedAt:     prompt.CreatedAt,
		UpdatedAt:     prompt.UpdatedAt,
	}
}

type createPromptBody struct {
	Title        string   `json:"title"`
	PromptText   string   `json:"prompt_text"`
	Description  string   `json:"description"`
	Variables    []string `json:"variables"`
	SharingLevel string   `json:"sharing_level"`
}

func (h *Handler) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body createPromptBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	prompt, err := h.svc.CreatePrompt(r.Context(), user, app.CreatePromptInput{
		Title:        body.Title,
		PromptText:   body.PromptText,
		Description:  body.Description,
		Variables:    body.Variables,
		SharingLevel: domain.SharingLevel(body.SharingLevel),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromptPayload(prompt))
}

func (h *Handler) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	prompts, err := h.svc.ListPrompts(r.Context(), user, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]promptPayload, 0, len(prompts))
	for _, prompt := range prompts {
		payloads = append(payloads, toPromptPayload(prompt))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (h *Handler) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	prompt, err := h.svc.GetPrompt(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromptPayload(prompt))
}

type updatePromptBody struct {
	Title        *string   `json:"title"`
	PromptText   *string   `json:"prompt_text"`
	Description  *string   `json:"description"`
	Variables    *[]string `json:"variables"`
	SharingLevel *string   `json:"sharing_level"`
}

func (h *Handler) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body updatePromptBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	input := app.UpdatePromptInput{
		Title:       body.Title,
		PromptText:  body.PromptText,
		Description: body.Description,
		Variables:   body.Variables,
	}
	if body.SharingLevel != nil {
		level := domain.SharingLevel(*body.SharingLevel)
		input.SharingLevel = &level
	}
	prompt, err := h.svc.UpdatePrompt(r.Context(), user, r.PathValue("id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPromptPayload(prompt))
}

func (h *Handler) handleDeletePrompt(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	if err := h.svc.DeletePrompt(r.Context(), user, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUsePrompt(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	count, err := h.svc.UsePrompt(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"usage_count": count})
}

func (h *Handler) handleForkPrompt(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	fork, err := h.svc.ForkPrompt(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromptPayload(fork))
}

type collectionPayload struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	OwnerID         string    `json:"owner_id"`
	ResourceIDs     []string  `json:"resource_ids"`
	PromptIDs       []string  `json:"prompt_ids"`
	SubscriberCount int       `json:"subscriber_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toCollectionPayload(collection domain.Collection) collectionPayload {
	return collectionPayload{
		ID:              collection.ID,
		Name:            collection.Name,
		Description:     collection.Description,
		OwnerID:         collection.OwnerID,
		ResourceIDs:     collection.ResourceIDs,
		PromptIDs:       collection.PromptIDs,
		SubscriberCount: collection.SubscriberCount,
		CreatedAt:       collection.CreatedAt,
		UpdatedAt:       collection.UpdatedAt,
	}
}

type createCollectionBody struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ResourceIDs []string `json:"resource_ids"`
	PromptIDs   []string `json:"prompt_ids"`
}

func (h *Handler) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body createCollectionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	collection, err := h.svc.CreateCollection(r.Context(), user, app.CreateCollectionInput{
		Name:        body.Name,
		Description: body.Description,
		ResourceIDs: body.ResourceIDs,
		PromptIDs:   body.PromptIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCollectionPayload(collection))
}

func (h *Handler) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.svc.ListCollections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]collectionPayload, 0, len(collections))
	for _, collection := range collections {
		payloads = append(payloads, toCollectionPayload(collection))
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (h *Handler) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.svc.GetCollection(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionPayload(collection))
}

type updateCollectionBody struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	ResourceIDs *[]string `json:"resource_ids"`
	PromptIDs   *[]string `json:"prompt_ids"`
}

func (h *Handler) handleUpdateCollection(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body updateCollectionBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	collection, err := h.svc.UpdateCollection(r.Context(), user, r.PathValue("id"), app.UpdateCollectionInput{
		Name:        body.Name,
		Description: body.Description,
		ResourceIDs: body.ResourceIDs,
		PromptIDs:   body.PromptIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCollectionPayload(collection))
}

func (h *Handler) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	if err := h.svc.DeleteCollection(r.Context(), user, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subscriptionPayload struct {
	ID        int64     `json:"id"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	subscriptions, err := h.svc.ListSubscriptions(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]subscriptionPayload, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		payloads = append(payloads, subscriptionPayload{
			ID:        subscription.ID,
			Tag:       subscription.Tag,
			CreatedAt: subscription.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, payloads)
}

func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	subscription, err := h.svc.Subscribe(r.Context(), user, r.PathValue("tag"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subscriptionPayload{
		ID:        subscription.ID,
		Tag:       subscription.Tag,
		CreatedAt: subscription.CreatedAt,
	})
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	if err := h.svc.Unsubscribe(r.Context(), user, r.PathValue("tag")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdatePrefs(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body prefsBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	prefs, err := h.svc.UpdateNotificationPrefs(r.Context(), user, domain.NotificationPrefs{
		NotifyRequests:  body.NotifyRequests,
		NotifySolutions: body.NotifySolutions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefsBody{
		NotifyRequests:  prefs.NotifyRequests,
		NotifySolutions: prefs.NotifySolutions,
	})
}

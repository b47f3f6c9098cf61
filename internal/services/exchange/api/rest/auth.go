package rest

import (
	"net/http"

	"github.com/sommlab/ai.exchange/internal/services/exchange/app"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
)

type registerBody struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	FullName    string   `json:"full_name"`
	Disciplines []string `json:"disciplines"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.svc.Register(r.Context(), app.RegisterInput{
		Email:       body.Email,
		Password:    body.Password,
		FullName:    body.FullName,
		Disciplines: body.Disciplines,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"email":   out.Email,
		"message": out.Message,
	})
}

type sessionPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         userPayload `json:"user"`
}

func toSessionPayload(session app.Session) sessionPayload {
	return sessionPayload{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "bearer",
		User:         toUserPayload(session.User),
	}
}

type verifyEmailBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body verifyEmailBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.svc.VerifyEmail(r.Context(), body.Email, body.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	session, err := h.svc.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionPayload(session))
}

type forgotPasswordBody struct {
	Email string `json:"email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body forgotPasswordBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	message, err := h.svc.ForgotPassword(r.Context(), body.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

type resetPasswordBody struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	message, err := h.svc.ResetPassword(r.Context(), body.Email, body.Code, body.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	writeJSON(w, http.StatusOK, toUserPayload(user))
}

type updateProfileBody struct {
	FullName    *string    `json:"full_name"`
	Disciplines *[]string  `json:"disciplines"`
	Prefs       *prefsBody `json:"notification_preferences"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r.Context())
	var body updateProfileBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	input := app.UpdateProfileInput{
		FullName:    body.FullName,
		Disciplines: body.Disciplines,
	}
	if body.Prefs != nil {
		input.Prefs = &domain.NotificationPrefs{
			NotifyRequests:  body.Prefs.NotifyRequests,
			NotifySolutions: body.Prefs.NotifySolutions,
		}
	}
	updated, err := h.svc.UpdateProfile(r.Context(), user.ID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserPayload(updated))
}

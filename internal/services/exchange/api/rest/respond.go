package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
)

// errorBody is the error payload shape for every endpoint.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	detail := "internal server error"
	var appErr apperrors.Error
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		detail = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

// decodeJSON reads a request body into target, rejecting unknown fields.
func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return apperrors.E(apperrors.KindInvalidInput, "invalid request body")
	}
	return nil
}

package rest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	apperrors "github.com/sommlab/ai.exchange/internal/platform/errors"
	"github.com/sommlab/ai.exchange/internal/platform/requestctx"
	"github.com/sommlab/ai.exchange/internal/services/exchange/domain"
	"github.com/sommlab/ai.exchange/internal/services/exchange/ratelimit"
)

type userContextKey struct{}

func withUser(ctx context.Context, user domain.User) context.Context {
	ctx = requestctx.WithUserID(ctx, user.ID)
	return context.WithValue(ctx, userContextKey{}, user)
}

func userFrom(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.User)
	return user, ok
}

// requireAuth resolves the bearer token before calling next. The
// authenticated user rides on the request context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, apperrors.E(apperrors.KindUnauthorized, "missing bearer token"))
			return
		}
		user, err := h.svc.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), user)))
	}
}

// throttle rejects requests once the per-client limiter runs dry. The
// window size follows the admin rate limit setting when one is stored,
// so overrides apply without a restart.
func (h *Handler) throttle(setting string, fallback int, limiter *ratelimit.Limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limiter.SetCount(h.svc.RateLimit(r.Context(), setting, fallback))
		if !limiter.Allow(clientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Detail: "too many requests, slow down"})
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// withRequestID tags every response so log lines can be correlated.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			var raw [8]byte
			if _, err := rand.Read(raw[:]); err == nil {
				requestID = hex.EncodeToString(raw[:])
			}
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

// withCORS answers preflight requests and stamps CORS headers for the
// configured origins. An empty origin list allows any origin.
func withCORS(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[strings.TrimSpace(origin)] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (len(allowed) == 0 || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

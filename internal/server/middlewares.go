package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/khimeshbadiye09263-web/socialhub-social-media-app/internal/storage/zapadapter"
)

// logRequests assigns each request an id, stores it in the context for the
// storage layer's logger and logs the request line
func logRequests(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := xid.New().String()

		ctx := zapadapter.NewContextWithID(r.Context(), id)
		rwID := r.WithContext(ctx)

		logger.Info("incoming http request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("uri", r.URL.RequestURI()),
			zap.String("ip", r.RemoteAddr),
		)

		next.ServeHTTP(w, rwID)
	})
}

// cors sets the headers a browser single-page client needs and short-
// circuits preflight requests
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the credential in the Authorization header and
// places the authenticated user id in the request context. A raw token and
// a Bearer-prefixed one are both accepted.
func (h *handler) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			h.writeMessage(w, http.StatusUnauthorized, "No token")
			return
		}
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = token[len("bearer "):]
		}

		userID, err := h.tokens.ParseToken(token)
		if err != nil {
			h.writeMessage(w, http.StatusUnauthorized, "Not authorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

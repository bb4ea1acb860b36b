package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/poiesic/pdfchat/ai"
)

// APIKeyHeader carries the caller's chat-model key.
const APIKeyHeader = "X-API-Key"

// apiKeyField is the multipart form field accepted as a fallback for uploads.
const apiKeyField = "api_key"

type contextKey struct{}

func withAPIKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, contextKey{}, key)
}

func apiKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(contextKey{}).(string)
	return key
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

// requireAPIKey stops the request with 401 unless a key is present.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if strings.TrimSpace(key) == "" && isMultipart(r) {
			key = r.FormValue(apiKeyField)
		}
		if err := ai.RequireAPIKey(key); err != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"warning": ai.MissingAPIKeyWarning})
			return
		}
		next.ServeHTTP(w, r.WithContext(withAPIKey(r.Context(), strings.TrimSpace(key))))
	})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

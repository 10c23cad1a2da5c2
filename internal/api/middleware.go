package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const ownerIDKey contextKey = "owner_id"

// AuthMiddleware returns middleware that requires a Bearer token. If token is
// empty any Bearer token is accepted, otherwise it must match exactly.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, prefix) {
				Unauthorized(w)
				return
			}
			bearer := strings.TrimSpace(authHeader[len(prefix):])
			if bearer == "" || (token != "" && bearer != token) {
				Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerIDMiddleware parses the owner_id URL parameter and stores it in the
// request context. Owner ids are positive integers.
func OwnerIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "owner_id")
		if raw == "" {
			BadRequest(w, "owner_id is required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			BadRequest(w, "owner_id must be a positive integer")
			return
		}
		ctx := context.WithValue(r.Context(), ownerIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOwnerID retrieves the owner id stored by OwnerIDMiddleware, or 0.
func GetOwnerID(ctx context.Context) int64 {
	v, _ := ctx.Value(ownerIDKey).(int64)
	return v
}

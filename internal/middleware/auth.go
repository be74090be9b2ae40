package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

type contextKey string

const (
	// BusinessContextKey carries the authenticated business through the request
	BusinessContextKey contextKey = "business"
)

// GetBusinessFromContext retrieves the authenticated business from request context
func GetBusinessFromContext(ctx context.Context) *models.Business {
	if business, ok := ctx.Value(BusinessContextKey).(*models.Business); ok {
		return business
	}
	return nil
}

// BusinessAPIKeyAuth creates middleware that resolves the tenant from the
// API key header. The stored SHA-256 hash is looked up, never the raw key.
// Paths in skipPaths (supporting a trailing "*" prefix match) bypass auth.
func BusinessAPIKeyAuth(businessRepo repository.BusinessRepo, headerName string, skipPaths []string) func(http.Handler) http.Handler {
	skipSet := make(map[string]bool)
	for _, p := range skipPaths {
		skipSet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			if skipSet[path] {
				next.ServeHTTP(w, r)
				return
			}
			for p := range skipSet {
				if strings.HasSuffix(p, "*") && strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if !strings.HasPrefix(path, "/api") {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get(headerName)
			if providedKey == "" {
				writeAuthError(w, "API key is required.")
				return
			}

			keyHash := models.HashAPIKey(providedKey)
			business, err := businessRepo.GetByAPIKeyHash(r.Context(), keyHash)
			if err != nil {
				writeAuthError(w, "Authentication failed.")
				return
			}
			if business == nil || !business.IsActive {
				writeAuthError(w, "Invalid API key.")
				return
			}

			ctx := context.WithValue(r.Context(), BusinessContextKey, business)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg})
}

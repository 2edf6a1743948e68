package middleware

import (
	"context"
	"net/http"

	"quickpay/internal/store"

	"go.uber.org/zap"
)

type AccessStore interface {
	GetAccess(ctx context.Context, userID string) (store.Access, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireActive loads the caller's role and status on every request, so a
// deactivated account loses access while its token is still valid.
func RequireActive(access AccessStore, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			current, err := access.GetAccess(r.Context(), userID)
			if err != nil {
				if store.IsNotFound(err) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				logger.Error("load access", zap.String("user_id", userID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal")
				return
			}
			if !current.IsActive() {
				writeError(w, http.StatusForbidden, "account_inactive")
				return
			}
			ctx := context.WithValue(r.Context(), roleKey, current.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAdmin(admins AdminChecker, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			isAdmin, err := admins.IsAdmin(r.Context(), userID)
			if err != nil {
				logger.Error("verify admin", zap.String("user_id", userID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "internal")
				return
			}
			if !isAdmin {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

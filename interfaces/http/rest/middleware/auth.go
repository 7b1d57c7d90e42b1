package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"eden-backend/pkg/auth"
	"eden-backend/pkg/common"
	pkgerrors "eden-backend/pkg/errors"
)

// Authenticate resolves the calling user. With a validator configured it
// requires a Bearer JWT. Without one (development) it trusts the X-User-ID
// header.
func Authenticate(validator *auth.JWTValidator, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
				if userID == "" {
					errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError("X-User-ID header is required"))
					return
				}
				ctx := common.WithAuthMode(common.WithUserID(r.Context(), userID), "header")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := validator.ValidateToken(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("Rejected bearer token", zap.Error(err), zap.String("path", r.URL.Path))
				errorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError(err.Error()))
				return
			}

			ctx := common.WithAuthMode(common.WithUserID(r.Context(), claims.UserID), "jwt")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

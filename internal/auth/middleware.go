package auth

import (
	"log/slog"
	"net/http"

	"github.com/zhiweijz/membership-payments/internal"
	"github.com/zhiweijz/membership-payments/internal/transport"
	"github.com/zhiweijz/membership-payments/pkg/logger"
)

// Middleware guards routes behind a valid access token and puts the
// authenticated user id on the request context.
type Middleware struct {
	*transport.BaseHandler
	validator TokenValidator
}

func NewMiddleware(validator TokenValidator) *Middleware {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Middleware{
		BaseHandler: transport.NewBaseHandler(lg),
		validator:   validator,
	}
}

func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.ExtractTokenFromHeader(r)
		if token == "" {
			m.Logger.Error("auth middleware: missing authorization token")
			m.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.Logger.Error("token validation failed", "error", err)
			m.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.UserID == "" {
			m.Logger.Error("auth middleware: token has no user id")
			m.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := internal.ContextWithUserID(r.Context(), claims.UserID)
		ctx = logger.With(ctx, "userID", claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

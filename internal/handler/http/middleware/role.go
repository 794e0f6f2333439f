package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RequirePermission rejects roles that do not carry permission. Denials are
// logged with the caller's tenant.
func RequirePermission(permission user.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.HandleError(w, user.ErrInvalidToken)
				return
			}

			role, _ := claims["role"].(string)
			if user.HasPermission(user.Role(role), permission) {
				next.ServeHTTP(w, r)
				return
			}

			slog.Warn("permission denied",
				"permission", permission,
				"role", role,
				"user_id", claims["user_id"],
				"company_id", claims["company_id"],
				"path", r.URL.Path,
			)
			response.Forbidden(w, fmt.Sprintf("Insufficient permissions: required '%s'", permission))
		})
	}
}

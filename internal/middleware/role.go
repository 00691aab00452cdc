package middleware

import (
	"errors"
	"net/http"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/model"
)

// RequireRole returns middleware that admits only principals holding one of
// the given roles. Must be applied after Authenticate.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := model.NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := auth.AuthorizeRole(auth.PrincipalFromContext(r.Context()), allowed)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrForbidden):
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			default:
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			}
		})
	}
}

// RequireAdmin is a convenience middleware for the admin role.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin)
}

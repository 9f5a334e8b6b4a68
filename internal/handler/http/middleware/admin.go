package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	"github.com/cmlabs-hris/geofence-attendance/internal/handler/http/response"
)

// AdminOnly admits callers whose token carries the admin role. Must run after AuthRequired.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := CurrentUser(r.Context())
		if !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if principal.Role != user.RoleAdmin {
			response.HandleError(w, user.ErrAdminPrivilegeRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}

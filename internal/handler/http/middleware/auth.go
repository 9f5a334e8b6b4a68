package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	"github.com/cmlabs-hris/geofence-attendance/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// Principal is the authenticated caller as asserted by the access token.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Role   user.Role
}

type principalKey struct{}

// CurrentUser returns the principal stored by AuthRequired.
func CurrentUser(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithPrincipal stores p the way AuthRequired does. Handlers under test use it directly.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	return audit.WithActor(ctx, audit.Actor{ID: p.UserID, Name: p.Name})
}

func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())

			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			claims, err := token.AsMap(r.Context())
			if err != nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}
			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			userID, _ := claims["user_id"].(string)
			if userID == "" {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}
			role, _ := claims["role"].(string)
			email, _ := claims["email"].(string)
			name, _ := claims["name"].(string)

			ctx := WithPrincipal(r.Context(), Principal{
				UserID: userID,
				Email:  email,
				Name:   name,
				Role:   user.Role(role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

package auth

import (
	"net/http"
	"strings"

	"classquiz/internal/models"
	"classquiz/pkg/httpx"
)

// JWTMiddleware authenticates requests from the Authorization header and puts
// the caller's Identity on the request context.
func JWTMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httpx.Error(w, models.ErrUnauthorized("authorization header required"))
				return
			}

			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
				httpx.Error(w, models.ErrUnauthorized("invalid token format"))
				return
			}

			identity, err := parseToken(bearerToken[1], secret)
			if err != nil {
				httpx.Error(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole guards a subrouter to one role. It assumes JWTMiddleware ran.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				httpx.Error(w, models.ErrUnauthorized("authentication required"))
				return
			}
			if identity.Role != role {
				httpx.Error(w, models.ErrUnauthorized("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

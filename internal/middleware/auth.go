package middleware

import (
	"net/http"
	"strings"

	"github.com/sealdrop/sealdrop/internal/ctxkeys"
	"github.com/sealdrop/sealdrop/internal/service"
)

// Authenticator extracts a JWT from a request. Browser clients carry it in
// the auth_token cookie, API clients in the Authorization header; both feed
// the same verification path instead of per-endpoint branching.
type Authenticator interface {
	Token(r *http.Request) (string, bool)
}

type CookieAuthenticator struct{}

func (CookieAuthenticator) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie("auth_token")
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

type BearerAuthenticator struct{}

func (BearerAuthenticator) Token(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// selectAuthenticator picks the credential source by request shape: a
// bearer header wins, otherwise the cookie.
func selectAuthenticator(r *http.Request) Authenticator {
	if r.Header.Get("Authorization") != "" {
		return BearerAuthenticator{}
	}
	return CookieAuthenticator{}
}

// Auth verifies the JWT if present and resolves the user and role into the
// request context. Requests without valid credentials continue
// unauthenticated; RequireAuth is the gate.
func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := selectAuthenticator(r).Token(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.VerifyJWT(token)
			if err != nil {
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok {
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.ByID(userID)
			if err != nil {
				authService.ClearJWTCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithUser(r.Context(), user)
			ctx = ctxkeys.WithRole(ctx, user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects unauthenticated requests with a JSON 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}

		next.ServeHTTP(w, r)
	}
}

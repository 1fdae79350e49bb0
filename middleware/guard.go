package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrEthical07/authflow"
)

// Authenticator is the part of *authflow.Engine the guard needs.
type Authenticator interface {
	ValidateAccess(ctx context.Context, accessToken string) (authflow.TokenUser, error)
	Refresh(ctx context.Context, refreshToken string) (*authflow.LoginResult, error)
}

type userContextKey struct{}

// UserFromContext returns the user stored by Authenticate.
func UserFromContext(ctx context.Context) (authflow.TokenUser, bool) {
	u, ok := ctx.Value(userContextKey{}).(authflow.TokenUser)
	return u, ok
}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u authflow.TokenUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// Authenticate rejects requests without a valid access token or session
// with 401 {"msg":"Authentication Invalid"}.
func Authenticate(auth Authenticator, opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				unauthorized(w)
				return
			}
			ctx := authflow.WithClientInfo(r.Context(), ClientInfo(r))

			if token := accessToken(r); token != "" {
				if user, err := auth.ValidateAccess(ctx, token); err == nil {
					next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
					return
				}
			}

			refresh := RefreshToken(r)
			if refresh == "" {
				unauthorized(w)
				return
			}
			res, err := auth.Refresh(ctx, refresh)
			if err != nil {
				if authflow.KindOf(err) == authflow.KindInternal {
					writeError(w, http.StatusInternalServerError, "Something went wrong, try again later")
					return
				}
				unauthorized(w)
				return
			}

			SetAuthCookies(w, opts, res)
			next.ServeHTTP(w, r.WithContext(WithUser(ctx, res.User)))
		})
	}
}

// accessToken prefers the cookie over the Authorization header.
func accessToken(r *http.Request) string {
	if v := cookieValue(r, AccessCookie); v != "" {
		return v
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) string {
	const bearer = "Bearer "
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(value[len(bearer):])
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, authflow.ErrAuthenticationInvalid.Message)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"msg": msg})
}

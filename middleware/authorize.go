package middleware

import (
	"net/http"

	"github.com/MrEthical07/authflow"
)

const msgRouteForbidden = "Unauthorized to access this route"

// AuthorizeRoles admits requests whose authenticated user holds one of
// roles and answers 403 otherwise. It must run after Authenticate.
func AuthorizeRoles(roles ...authflow.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if !authflow.HasRole(user, roles...) {
				writeError(w, http.StatusForbidden, msgRouteForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

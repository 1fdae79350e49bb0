package middleware

import (
	"net/http"
	"time"

	"github.com/MrEthical07/authflow"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieOptions controls the attributes of the auth cookies. Secure should
// be set whenever the service is reachable over HTTPS.
type CookieOptions struct {
	Secure bool
	Domain string
}

// SetAuthCookies attaches the tokens of res as httpOnly cookies.
func SetAuthCookies(w http.ResponseWriter, opts CookieOptions, res *authflow.LoginResult) {
	http.SetCookie(w, opts.cookie(AccessCookie, res.AccessToken, res.AccessExpiresAt))
	http.SetCookie(w, opts.cookie(RefreshCookie, res.RefreshToken, res.RefreshExpiresAt))
}

// ClearAuthCookies expires both auth cookies in the browser.
func ClearAuthCookies(w http.ResponseWriter, opts CookieOptions) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := opts.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (o CookieOptions) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   o.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// RefreshToken returns the refresh token cookie of r, or "".
func RefreshToken(r *http.Request) string {
	return cookieValue(r, RefreshCookie)
}

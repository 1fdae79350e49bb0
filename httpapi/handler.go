// Package httpapi serves the account endpoints of an authflow.Engine over
// JSON/HTTP.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/middleware"
)

const (
	msgRegistered  = "Success! Please check your email to verify account."
	msgVerified    = "Email Verified"
	msgLoggedOut   = "user logged out!"
	msgResetSent   = "Please check your email for password reset link"
	msgInvalidJSON = "Invalid request body"
)

// Options configures New. Metrics and Ready are optional.
type Options struct {
	Cookies middleware.CookieOptions
	Logger  *slog.Logger
	Metrics http.Handler
	Ready   func(ctx context.Context) error
}

type handler struct {
	engine  *authflow.Engine
	cookies middleware.CookieOptions
	logger  *slog.Logger
	ready   func(ctx context.Context) error
}

// New returns the routed handler for engine.
func New(engine *authflow.Engine, opts Options) http.Handler {
	h := &handler{
		engine:  engine,
		cookies: opts.Cookies,
		logger:  opts.Logger,
		ready:   opts.Ready,
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	authn := middleware.Authenticate(engine, opts.Cookies)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/register", h.register)
	mux.HandleFunc("POST /api/v1/auth/verify-email", h.verifyEmail)
	mux.HandleFunc("POST /api/v1/auth/login", h.login)
	mux.Handle("GET /api/v1/auth/logout", authn(http.HandlerFunc(h.logout)))
	mux.Handle("POST /api/v1/auth/logout", authn(http.HandlerFunc(h.logout)))
	mux.HandleFunc("POST /api/v1/auth/forgot-password", h.forgotPassword)
	mux.HandleFunc("POST /api/v1/auth/reset-password", h.resetPassword)
	mux.Handle("GET /api/v1/users/me", authn(http.HandlerFunc(h.me)))
	mux.Handle("GET /api/v1/users/{id}", authn(http.HandlerFunc(h.getUser)))
	mux.Handle("GET /api/v1/users/{id}/sessions",
		authn(middleware.AuthorizeRoles(authflow.RoleAdmin)(http.HandlerFunc(h.userSessions))))
	mux.HandleFunc("GET /healthz", h.healthz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	return mux
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, w, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	ctx := authflow.WithClientInfo(r.Context(), middleware.ClientInfo(r))
	if err := h.engine.Register(ctx, authflow.RegisterRequest{
		Email:    body.Email,
		Name:     body.Name,
		Password: body.Password,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, msgRegistered)
}

func (h *handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VerificationToken string `json:"verificationToken"`
		Email             string `json:"email"`
	}
	if err := decode(r, w, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	ctx := authflow.WithClientInfo(r.Context(), middleware.ClientInfo(r))
	if err := h.engine.VerifyEmail(ctx, body.Email, body.VerificationToken); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, msgVerified)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, w, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	res, err := h.engine.Login(r.Context(), body.Email, body.Password, middleware.ClientInfo(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.SetAuthCookies(w, h.cookies, res)
	writeJSON(w, http.StatusOK, map[string]authflow.TokenUser{"user": res.User})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	if err := h.engine.Logout(r.Context(), user.UserID, middleware.RefreshToken(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	middleware.ClearAuthCookies(w, h.cookies)
	writeMsg(w, http.StatusOK, msgLoggedOut)
}

func (h *handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(r, w, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	ctx := authflow.WithClientInfo(r.Context(), middleware.ClientInfo(r))
	if err := h.engine.ForgotPassword(ctx, body.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, msgResetSent)
}

func (h *handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, w, &body); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	ctx := authflow.WithClientInfo(r.Context(), middleware.ClientInfo(r))
	if err := h.engine.ResetPassword(ctx, body.Email, body.Token, body.Password); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": body.Email})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]authflow.TokenUser{"user": user})
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	requester, _ := middleware.UserFromContext(r.Context())
	user, err := h.engine.GetUser(r.Context(), requester, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]authflow.TokenUser{"user": user})
}

// userSessions is admin only.
func (h *handler) userSessions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, err := h.engine.SessionCount(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": id, "sessions": n})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

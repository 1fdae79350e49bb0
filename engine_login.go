package authflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/authflow/internal"
	"github.com/MrEthical07/authflow/session"
)

// Login checks credentials and opens a new session.
//
// Every successful call creates its own session; earlier sessions of the
// user are left alone. An unverified account with a correct password fails
// with ErrEmailUnverified.
func (e *Engine) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	if e == nil || e.users == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	ctx = WithClientInfo(ctx, client)

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		e.loginFailed(ctx, "", email, ErrMissingCredentials)
		return nil, ErrMissingCredentials
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.loginFailed(ctx, "", email, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("login: find user", err)
	}

	ok, err := e.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, internalError("login: verify password", err)
	}
	if !ok {
		e.loginFailed(ctx, user.ID, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		e.metricInc(MetricLoginUnverified)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, email, ErrEmailUnverified, nil)
		return nil, ErrEmailUnverified
	}

	e.upgradePasswordHash(ctx, user, password)

	result, err := e.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := internal.NewOpaqueToken(internal.RefreshTokenBytes)
	if err != nil {
		return nil, internalError("login: refresh token", err)
	}
	sess, err := e.sessions.Create(ctx, session.Session{
		RefreshToken: refreshToken,
		UserID:       user.ID,
		IP:           client.IP,
		UserAgent:    client.UserAgent,
		CreatedAt:    e.now().UTC(),
	})
	if err != nil {
		return nil, internalError("login: create session", err)
	}

	result.RefreshToken = refreshToken
	result.RefreshExpiresAt = sess.CreatedAt.Add(e.sessionTTL)

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, email, nil, nil)

	return result, nil
}

// Logout deletes the session identified by refreshToken if it belongs to
// userID. A missing session is not an error.
func (e *Engine) Logout(ctx context.Context, userID, refreshToken string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	if userID != "" && refreshToken != "" {
		_, err := e.sessions.FindOneAndDelete(ctx, session.Filter{UserID: userID, RefreshToken: refreshToken})
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			return internalError("logout: delete session", err)
		}
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, "", nil, nil)
	return nil
}

// Refresh issues a new access token for the session behind refreshToken.
// The refresh token itself is kept.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.users == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		e.refreshFailed(ctx, "", session.ErrNotFound)
		return nil, ErrAuthenticationInvalid
	}

	sess, err := e.sessions.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.refreshFailed(ctx, "", err)
			return nil, ErrAuthenticationInvalid
		}
		return nil, internalError("refresh: find session", err)
	}

	user, err := e.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.refreshFailed(ctx, sess.UserID, err)
			return nil, ErrAuthenticationInvalid
		}
		return nil, internalError("refresh: find user", err)
	}

	result, err := e.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	result.RefreshToken = refreshToken
	result.RefreshExpiresAt = sess.CreatedAt.Add(e.sessionTTL)

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.ID, user.Email, nil, nil)
	return result, nil
}

// ValidateAccess verifies an access token and returns the user it names.
// It does not touch any store.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (TokenUser, error) {
	if e == nil || e.jwtManager == nil {
		return TokenUser{}, ErrEngineNotReady
	}
	if accessToken == "" {
		return TokenUser{}, ErrAuthenticationInvalid
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.logger.DebugContext(ctx, "access token rejected", slog.Any("error", err))
		return TokenUser{}, ErrAuthenticationInvalid
	}

	return TokenUser{Name: claims.Name, UserID: claims.UserID, Role: Role(claims.Role)}, nil
}

func (e *Engine) issue(ctx context.Context, user *User) (*LoginResult, error) {
	access, expiresAt, err := e.jwtManager.CreateAccess(user.ID, user.Name, string(user.Role))
	if err != nil {
		return nil, internalError("sign access token", err)
	}
	return &LoginResult{
		User:            NewTokenUser(user),
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
	}, nil
}

// upgradePasswordHash rehashes with current parameters after a successful
// login. Failures are logged only.
func (e *Engine) upgradePasswordHash(ctx context.Context, user *User, password string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	upgrader, ok := e.hasher.(hashUpgrader)
	if !ok {
		return
	}
	stale, err := upgrader.NeedsUpgrade(user.PasswordHash)
	if err != nil || !stale {
		return
	}

	digest, err := e.hasher.Hash(password)
	if err != nil {
		e.logger.WarnContext(ctx, "password rehash failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	user.PasswordHash = digest
	if err := e.users.Save(ctx, user); err != nil {
		e.logger.WarnContext(ctx, "password rehash save failed", slog.String("user_id", user.ID), slog.Any("error", err))
		return
	}
	e.metricInc(MetricPasswordRehash)
}

func (e *Engine) loginFailed(ctx context.Context, userID, email string, cause error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, email, cause, nil)
}

func (e *Engine) refreshFailed(ctx context.Context, userID string, cause error) {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, userID, "", cause, nil)
}

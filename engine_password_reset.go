package authflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/authflow/internal"
)

// ForgotPassword issues a reset token for email and sends it to the user.
// Only the token digest and its expiry are stored.
//
// With PasswordReset.RevealUnknownEmail an unregistered email fails with a
// bad-request error naming it; otherwise it is acknowledged like any other.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	if email == "" {
		return ErrMissingEmail
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return internalError("forgot password: find user", err)
		}
		e.emitAudit(ctx, auditEventPasswordResetReq, false, "", email, ErrUnknownEmail, nil)
		if e.config.PasswordReset.RevealUnknownEmail {
			return unknownEmail(email)
		}
		return nil
	}

	token, err := internal.NewOpaqueToken(internal.ResetTokenBytes)
	if err != nil {
		return internalError("forgot password: reset token", err)
	}

	expiresAt := e.now().UTC().Add(e.config.PasswordReset.TokenTTL)
	user.PasswordResetTokenHash = internal.HashToken(token)
	user.PasswordResetTokenExpiresAt = &expiresAt
	if err := e.users.Save(ctx, user); err != nil {
		return internalError("forgot password: save user", err)
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetReq, true, user.ID, email, nil, nil)

	e.deliver(ctx, "password_reset", user, func(ctx context.Context) error {
		return e.notifier.SendResetPasswordEmail(ctx, e.message(user, token))
	})

	return nil
}

// ResetPassword sets a new password when token matches the stored digest
// and has not expired.
//
// Apart from missing input, the result is always success: an unknown
// email, a wrong token, an expired token and a used token all look the same
// to the caller.
func (e *Engine) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	if email == "" || token == "" || newPassword == "" {
		return ErrMissingResetFields
	}

	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.resetRejected(ctx, "", email, ErrUserNotFound)
			return nil
		}
		return internalError("reset password: find user", err)
	}

	if user.PasswordResetTokenHash == "" || user.PasswordResetTokenExpiresAt == nil ||
		!internal.TokenEqual(internal.HashToken(token), user.PasswordResetTokenHash) {
		e.resetRejected(ctx, user.ID, email, ErrAuthenticationInvalid)
		return nil
	}
	if !user.PasswordResetTokenExpiresAt.After(e.now()) {
		e.resetRejected(ctx, user.ID, email, errResetTokenExpired)
		return nil
	}

	digest, err := e.hasher.Hash(newPassword)
	if err != nil {
		return internalError("reset password: hash password", err)
	}
	user.PasswordHash = digest
	user.PasswordResetTokenHash = ""
	user.PasswordResetTokenExpiresAt = nil
	if err := e.users.Save(ctx, user); err != nil {
		return internalError("reset password: save user", err)
	}

	if e.config.PasswordReset.RevokeSessions {
		if err := e.sessions.DeleteAllForUser(ctx, user.ID); err != nil {
			e.logger.WarnContext(ctx, "session revocation after reset failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		} else {
			e.emitAudit(ctx, auditEventSessionsRevoked, true, user.ID, email, nil, func() map[string]string {
				return map[string]string{"reason": "password_reset"}
			})
		}
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.logger.InfoContext(ctx, "password reset", slog.String("user_id", user.ID))
	e.emitAudit(ctx, auditEventPasswordReset, true, user.ID, email, nil, nil)
	return nil
}

func (e *Engine) resetRejected(ctx context.Context, userID, email string, cause error) {
	e.metricInc(MetricPasswordResetRejected)
	e.emitAudit(ctx, auditEventPasswordReset, false, userID, email, cause, nil)
}

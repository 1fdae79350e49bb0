package authflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/authflow/internal"
)

// VerifyEmail marks the account verified when token matches the one issued
// at registration. The token is cleared on success, so it works once.
func (e *Engine) VerifyEmail(ctx context.Context, email, token string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	email = NormalizeEmail(email)
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.verifyFailed(ctx, "", email, ErrUserNotFound)
			return ErrVerificationFailed
		}
		return internalError("verify email: find user", err)
	}

	if token == "" || user.VerificationToken == "" || !internal.TokenEqual(token, user.VerificationToken) {
		e.verifyFailed(ctx, user.ID, email, ErrVerificationFailed)
		return ErrVerificationFailed
	}

	now := e.now().UTC()
	user.IsVerified = true
	user.VerifiedAt = &now
	user.VerificationToken = ""
	if err := e.users.Save(ctx, user); err != nil {
		return internalError("verify email: save user", err)
	}

	e.metricInc(MetricVerifySuccess)
	e.logger.InfoContext(ctx, "email verified", slog.String("user_id", user.ID))
	e.emitAudit(ctx, auditEventVerifySuccess, true, user.ID, email, nil, nil)
	return nil
}

func (e *Engine) verifyFailed(ctx context.Context, userID, email string, cause error) {
	e.metricInc(MetricVerifyFailure)
	e.emitAudit(ctx, auditEventVerifyFailure, false, userID, email, cause, nil)
}

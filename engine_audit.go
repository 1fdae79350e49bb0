package authflow

import (
	"context"
	"errors"

	"github.com/MrEthical07/authflow/session"
)

const (
	auditEventRegisterSuccess    = "register_success"
	auditEventRegisterDuplicate  = "register_duplicate"
	auditEventRegisterFailure    = "register_failure"
	auditEventVerifySuccess      = "email_verification_success"
	auditEventVerifyFailure      = "email_verification_failure"
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLogout             = "logout"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshInvalid     = "refresh_invalid"
	auditEventPasswordResetReq   = "password_reset_request"
	auditEventPasswordReset      = "password_reset_confirm"
	auditEventSessionsRevoked    = "sessions_revoked"
	auditEventNotificationFailed = "notification_failed"
	auditEventAccessDenied       = "access_denied"
)

// AuditErrorCode is the stable, non-sensitive error label stored on events.
type AuditErrorCode string

const (
	auditErrMissingInput       AuditErrorCode = "missing_input"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUnverified         AuditErrorCode = "account_unverified"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrTimeout            AuditErrorCode = "timeout"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// errResetTokenExpired is only used to label audit events.
var errResetTokenExpired = errors.New("reset token expired")

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	client := ClientInfoFromContext(ctx)
	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Email:     email,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingRegistration),
		errors.Is(err, ErrMissingCredentials),
		errors.Is(err, ErrMissingEmail),
		errors.Is(err, ErrMissingResetFields):
		return auditErrMissingInput
	case errors.Is(err, ErrEmailExists), errors.Is(err, ErrDuplicateEmail):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrEmailUnverified):
		return auditErrUnverified
	case errors.Is(err, errResetTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrVerificationFailed),
		errors.Is(err, ErrAuthenticationInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrUnknownEmail), errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, session.ErrNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return auditErrTimeout
	case errors.Is(err, session.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

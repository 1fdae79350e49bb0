package authflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/MrEthical07/authflow/internal"
)

// Register creates an unverified account and sends its verification email.
//
// The first account ever created gets RoleAdmin, every later one RoleUser.
// The count and the insert are separate store calls, so two concurrent
// first registrations may both become admin.
//
// A failed verification email is recorded but does not fail the call.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || req.Password == "" {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", email, ErrMissingRegistration, nil)
		return ErrMissingRegistration
	}

	existing, err := e.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		e.registerDuplicate(ctx, email)
		return ErrEmailExists
	case err != nil && !errors.Is(err, ErrUserNotFound):
		return internalError("register: find user", err)
	}

	count, err := e.users.CountAll(ctx)
	if err != nil {
		return internalError("register: count users", err)
	}
	role := RoleUser
	if count == 0 {
		role = RoleAdmin
	}

	token, err := internal.NewOpaqueToken(internal.VerificationTokenBytes)
	if err != nil {
		return internalError("register: verification token", err)
	}

	digest, err := e.hasher.Hash(req.Password)
	if err != nil {
		return internalError("register: hash password", err)
	}

	user, err := e.users.Create(ctx, CreateUserInput{
		Email:             email,
		Name:              name,
		PasswordHash:      digest,
		Role:              role,
		VerificationToken: token,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.registerDuplicate(ctx, email)
			return ErrEmailExists
		}
		return internalError("register: create user", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, user.Email, nil, func() map[string]string {
		return map[string]string{"role": string(user.Role)}
	})

	e.deliver(ctx, "verification", user, func(ctx context.Context) error {
		return e.notifier.SendVerificationEmail(ctx, e.message(user, token))
	})

	return nil
}

func (e *Engine) registerDuplicate(ctx context.Context, email string) {
	e.metricInc(MetricRegisterDuplicate)
	e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", email, ErrEmailExists, nil)
}

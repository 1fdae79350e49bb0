package authflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/internal"
	"github.com/MrEthical07/authflow/session"
)

func TestForgotPasswordStoresDigestOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.io", "Alice", "pw")

	if err := env.engine.ForgotPassword(ctx, " A@X.io "); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	msg := env.notifier.lastReset(t)
	if len(msg.Token) != 2*internal.ResetTokenBytes {
		t.Fatalf("unexpected reset token length %d", len(msg.Token))
	}
	if msg.Email != "a@x.io" || msg.Name != "Alice" || msg.Origin != env.engine.config.App.Origin {
		t.Fatalf("unexpected reset message: %+v", msg)
	}

	user := env.users.get(t, "a@x.io")
	if user.PasswordResetTokenHash != internal.HashToken(msg.Token) {
		t.Fatal("stored reset digest does not match the delivered token")
	}
	if strings.Contains(user.PasswordResetTokenHash, msg.Token) {
		t.Fatal("raw reset token must not be stored")
	}
	want := env.clock.Now().Add(10 * time.Minute)
	if user.PasswordResetTokenExpiresAt == nil || !user.PasswordResetTokenExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, user.PasswordResetTokenExpiresAt)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.engine.ForgotPassword(context.Background(), "ghost@x.io")
	if !errors.Is(err, ErrUnknownEmail) || KindOf(err) != KindBadRequest {
		t.Fatalf("expected unknown email error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ghost@x.io") {
		t.Fatalf("expected email in message, got %q", err.Error())
	}
	if len(env.notifier.reset) != 0 {
		t.Fatal("no email should be sent for an unknown address")
	}
}

func TestForgotPasswordUnknownEmailHidden(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.PasswordReset.RevealUnknownEmail = false
	})

	if err := env.engine.ForgotPassword(context.Background(), "ghost@x.io"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.notifier.reset) != 0 {
		t.Fatal("no email should be sent for an unknown address")
	}
}

func TestForgotPasswordMissingEmail(t *testing.T) {
	env := newTestEnv(t)
	if err := env.engine.ForgotPassword(context.Background(), "  "); !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestForgotPasswordNotifierFailureIsNonFatal(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t, "a@x.io", "Alice", "pw")
	env.notifier.err = errors.New("smtp down")

	if err := env.engine.ForgotPassword(context.Background(), "a@x.io"); err != nil {
		t.Fatalf("ForgotPassword must not fail on delivery errors: %v", err)
	}
	if env.users.get(t, "a@x.io").PasswordResetTokenHash == "" {
		t.Fatal("token must be stored even when delivery fails")
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricNotifyFailure]; got != 1 {
		t.Fatalf("expected one notify failure, got %d", got)
	}
}

func TestResetPasswordWithValidToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.io", "Alice", "old")

	if err := env.engine.ForgotPassword(ctx, "a@x.io"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	token := env.notifier.lastReset(t).Token
	env.clock.Advance(9 * time.Minute)

	if err := env.engine.ResetPassword(ctx, "a@x.io", token, "new"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	user := env.users.get(t, "a@x.io")
	if user.PasswordResetTokenHash != "" || user.PasswordResetTokenExpiresAt != nil {
		t.Fatal("reset token must be cleared after use")
	}
	if _, err := env.engine.Login(ctx, "a@x.io", "old", testClient); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := env.engine.Login(ctx, "a@x.io", "new", testClient); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	// Reusing the token is accepted silently and changes nothing.
	if err := env.engine.ResetPassword(ctx, "a@x.io", token, "other"); err != nil {
		t.Fatalf("reused token must not error: %v", err)
	}
	if _, err := env.engine.Login(ctx, "a@x.io", "new", testClient); err != nil {
		t.Fatalf("reused token must not change the password: %v", err)
	}
}

func TestResetPasswordRejectionsLookLikeSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.io", "Alice", "old")

	if err := env.engine.ResetPassword(ctx, "a@x.io", "never-issued", "new"); err != nil {
		t.Fatalf("reset without a pending token must not error: %v", err)
	}

	if err := env.engine.ForgotPassword(ctx, "a@x.io"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	token := env.notifier.lastReset(t).Token

	if err := env.engine.ResetPassword(ctx, "a@x.io", token+"00", "new"); err != nil {
		t.Fatalf("wrong token must not error: %v", err)
	}
	if err := env.engine.ResetPassword(ctx, "ghost@x.io", token, "new"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}

	env.clock.Advance(11 * time.Minute)
	if err := env.engine.ResetPassword(ctx, "a@x.io", token, "new"); err != nil {
		t.Fatalf("expired token must not error: %v", err)
	}

	if _, err := env.engine.Login(ctx, "a@x.io", "old", testClient); err != nil {
		t.Fatalf("password must be unchanged after rejected resets: %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricPasswordResetRejected]; got != 4 {
		t.Fatalf("expected 4 rejected resets, got %d", got)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricPasswordResetSuccess]; got != 0 {
		t.Fatalf("expected no successful resets, got %d", got)
	}
}

func TestResetPasswordExpiryBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerVerified(t, "a@x.io", "Alice", "old")

	if err := env.engine.ForgotPassword(ctx, "a@x.io"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	token := env.notifier.lastReset(t).Token
	env.clock.Advance(10 * time.Minute)

	if err := env.engine.ResetPassword(ctx, "a@x.io", token, "new"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if _, err := env.engine.Login(ctx, "a@x.io", "old", testClient); err != nil {
		t.Fatalf("token at its expiry instant must be rejected: %v", err)
	}
}

func TestResetPasswordMissingFields(t *testing.T) {
	env := newTestEnv(t)
	cases := [][3]string{
		{"", "tok", "pw"},
		{"a@x.io", "", "pw"},
		{"a@x.io", "tok", ""},
	}
	for _, c := range cases {
		err := env.engine.ResetPassword(context.Background(), c[0], c[1], c[2])
		if !errors.Is(err, ErrMissingResetFields) || KindOf(err) != KindBadRequest {
			t.Fatalf("%q: expected ErrMissingResetFields, got %v", c, err)
		}
	}
}

func TestResetPasswordKeepsSessionsByDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerVerified(t, "a@x.io", "Alice", "old")
	login, err := env.engine.Login(ctx, "a@x.io", "old", testClient)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := env.engine.ForgotPassword(ctx, "a@x.io"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if err := env.engine.ResetPassword(ctx, "a@x.io", env.notifier.lastReset(t).Token, "new"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	store := env.engine.sessions.(*session.Store)
	if _, err := store.Find(ctx, login.RefreshToken); err != nil {
		t.Fatalf("session must survive reset by default: %v", err)
	}
	if n, _ := store.CountForUser(ctx, user.ID); n != 1 {
		t.Fatalf("expected 1 session, got %d", n)
	}
}

func TestResetPasswordRevokesSessionsWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.PasswordReset.RevokeSessions = true
	})
	ctx := context.Background()
	user := env.registerVerified(t, "a@x.io", "Alice", "old")
	for i := 0; i < 2; i++ {
		if _, err := env.engine.Login(ctx, "a@x.io", "old", testClient); err != nil {
			t.Fatalf("Login failed: %v", err)
		}
	}

	if err := env.engine.ForgotPassword(ctx, "a@x.io"); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if err := env.engine.ResetPassword(ctx, "a@x.io", env.notifier.lastReset(t).Token, "new"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	store := env.engine.sessions.(*session.Store)
	if n, _ := store.CountForUser(ctx, user.ID); n != 0 {
		t.Fatalf("expected all sessions revoked, got %d", n)
	}
	waitForAudit(t, env.audit, auditEventSessionsRevoked)
}

package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.Audit.Enabled = false

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(newMockUserStore()).
		WithNotifier(&mockNotifier{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Login(context.Background(), "ghost@x.io", "pw", testClient)
	time.Sleep(30 * time.Millisecond)

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", got)
	}
}

func TestAuditEventCarriesClientInfo(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerVerified(t, "a@x.io", "Alice", "pw")

	if _, err := env.engine.Login(context.Background(), "a@x.io", "bad", testClient); err == nil {
		t.Fatal("expected login failure")
	}

	ev := waitForAudit(t, env.audit, auditEventLoginFailure)
	if ev.Success || ev.UserID != user.ID || ev.Email != "a@x.io" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.IP != testClient.IP || ev.UserAgent != testClient.UserAgent {
		t.Fatalf("client info missing from event: %+v", ev)
	}
	if ev.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("expected error code %q, got %q", auditErrInvalidCredentials, ev.Error)
	}
	if !ev.Timestamp.Equal(env.clock.Now()) {
		t.Fatalf("expected timestamp from engine clock, got %v", ev.Timestamp)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	queue := newAuditQueue(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer func() {
		close(sink.gate)
		queue.Close()
	}()

	queue.Emit(context.Background(), AuditEvent{EventType: "e1"})
	queue.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	queue.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if queue.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	queue := newAuditQueue(AuditConfig{Enabled: true, BufferSize: 1}, sink)
	defer func() {
		close(sink.gate)
		queue.Close()
	}()

	queue.Emit(context.Background(), AuditEvent{EventType: "e1"})
	queue.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		queue.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditQueueCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	sink := &countingSink{}
	queue := newAuditQueue(AuditConfig{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)

	queue.Emit(context.Background(), AuditEvent{EventType: "e1"})
	queue.Close()
	queue.Close()
	queue.Emit(context.Background(), AuditEvent{EventType: "e2"})

	if got := sink.count.Load(); got != 1 {
		t.Fatalf("expected the queued event to be flushed on close, got %d", got)
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLoginSuccess, UserID: "u1", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogout, UserID: "u1", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if ev.EventType != auditEventLoginSuccess || ev.UserID != "u1" {
		t.Fatalf("unexpected decoded event: %+v", ev)
	}
}

func TestAuditSlogSinkLevels(t *testing.T) {
	var buf syncBuffer
	sink := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLoginFailure, Error: "invalid_credentials"})

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) || !strings.Contains(out, `"event_type":"login_failure"`) {
		t.Fatalf("unexpected slog output: %s", out)
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.Audit.DropIfFull = false
	})
	ctx := context.Background()
	const secret = "correct-password-123"

	user := env.registerVerified(t, "a@x.io", "Alice", secret)
	login, err := env.engine.Login(ctx, "a@x.io", secret, testClient)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if err := env.engine.ForgotPassword(ctx, "a@x.io"); err != nil {
		t.Fatalf("forgot failed: %v", err)
	}
	resetToken := env.notifier.lastReset(t).Token

	needles := []string{secret, login.RefreshToken, login.AccessToken, resetToken, user.PasswordHash}

	events := make([]AuditEvent, 0, 8)
	timeout := time.After(time.Second)
collect:
	for {
		select {
		case ev := <-env.audit.Events():
			events = append(events, ev)
		case <-timeout:
			break collect
		}
	}
	if len(events) == 0 {
		t.Fatal("expected audit events")
	}

	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal event: %v", err)
		}
		for _, needle := range needles {
			if strings.Contains(string(data), needle) {
				t.Fatalf("secret leaked in %s event", ev.EventType)
			}
		}
	}
}

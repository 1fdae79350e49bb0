package authflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/authflow/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testJWTSecret = []byte("test-secret-test-secret-test-secret")

type mockUserStore struct {
	mu      sync.Mutex
	users   map[string]User // by id
	byEmail map[string]string

	findErr   error
	countErr  error
	createErr error
	saveErr   error

	createCalls int
	saveCalls   int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *mockUserStore) FindByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *mockUserStore) CountAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.users)), nil
}

func (m *mockUserStore) Create(_ context.Context, in CreateUserInput) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, dup := m.byEmail[in.Email]; dup {
		return nil, ErrDuplicateEmail
	}

	now := time.Now().UTC()
	u := User{
		ID:                fmt.Sprintf("u%d", len(m.users)+1),
		Email:             in.Email,
		Name:              in.Name,
		PasswordHash:      in.PasswordHash,
		Role:              in.Role,
		VerificationToken: in.VerificationToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.users[u.ID] = u
	m.byEmail[u.Email] = u.ID
	return &u, nil
}

func (m *mockUserStore) Save(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m *mockUserStore) get(t testing.TB, email string) User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		t.Fatalf("user %q not found", email)
	}
	return m.users[id]
}

type mockNotifier struct {
	mu           sync.Mutex
	verification []EmailMessage
	reset        []EmailMessage
	err          error
	block        bool
}

func (n *mockNotifier) SendVerificationEmail(ctx context.Context, msg EmailMessage) error {
	return n.record(ctx, &n.verification, msg)
}

func (n *mockNotifier) SendResetPasswordEmail(ctx context.Context, msg EmailMessage) error {
	return n.record(ctx, &n.reset, msg)
}

func (n *mockNotifier) record(ctx context.Context, into *[]EmailMessage, msg EmailMessage) error {
	if n.block {
		<-ctx.Done()
		return ctx.Err()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	*into = append(*into, msg)
	return nil
}

func (n *mockNotifier) lastVerification(t testing.TB) EmailMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.verification) == 0 {
		t.Fatal("expected a verification email")
	}
	return n.verification[len(n.verification)-1]
}

func (n *mockNotifier) lastReset(t testing.TB) EmailMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.reset) == 0 {
		t.Fatal("expected a reset email")
	}
	return n.reset[len(n.reset)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine   *Engine
	users    *mockUserStore
	notifier *mockNotifier
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	clock    *testClock
	audit    *ChannelSink
}

func fastPasswordConfig() PasswordConfig {
	return PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testJWTSecret
	cfg.Password = fastPasswordConfig()
	cfg.Notify.Timeout = 200 * time.Millisecond
	cfg.Audit = AuditConfig{Enabled: true, BufferSize: 256, DropIfFull: true}
	return cfg
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestHasher(t testing.TB) *password.Argon2 {
	t.Helper()

	pc := fastPasswordConfig()
	h, err := password.NewArgon2(password.Config{
		Memory:      pc.Memory,
		Time:        pc.Time,
		Parallelism: pc.Parallelism,
		SaltLength:  pc.SaltLength,
		KeyLength:   pc.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func newTestEnv(t testing.TB, mutate ...func(*Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		users:    newMockUserStore(),
		notifier: &mockNotifier{},
		mr:       mr,
		rdb:      rdb,
		clock:    &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
		audit:    NewChannelSink(256),
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(env.users).
		WithNotifier(env.notifier).
		WithAuditSink(env.audit).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// registerVerified creates a verified account and returns it.
func (env *testEnv) registerVerified(t testing.TB, email, name, password string) User {
	t.Helper()
	ctx := context.Background()

	if err := env.engine.Register(ctx, RegisterRequest{Email: email, Name: name, Password: password}); err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	msg := env.notifier.lastVerification(t)
	if err := env.engine.VerifyEmail(ctx, email, msg.Token); err != nil {
		t.Fatalf("VerifyEmail(%s) failed: %v", email, err)
	}
	return env.users.get(t, NormalizeEmail(email))
}

func waitForAudit(t testing.TB, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for audit event %q", eventType)
		}
	}
}

package authflow

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/authflow/jwt"
	"github.com/MrEthical07/authflow/password"
	"github.com/MrEthical07/authflow/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users     UserStore
	sessions  SessionStore
	hasher    PasswordHasher
	notifier  Notifier
	logger    *slog.Logger
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis makes Build create a Redis session store. It is ignored when
// WithSessionStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

func (b *Builder) WithSessionStore(sessions SessionStore) *Builder {
	b.sessions = sessions
	return b
}

// WithPasswordHasher replaces the argon2id hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source used for token expiry decisions.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	cfg.JWT.SigningMethod = strings.ToLower(strings.TrimSpace(cfg.JWT.SigningMethod))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}

	sessions := b.sessions
	if sessions == nil {
		if b.redis == nil {
			return nil, errors.New("session store or redis client required")
		}
		sessions = session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.JWT.RefreshTTL)
	}

	sessionTTL := cfg.JWT.RefreshTTL
	if t, ok := sessions.(interface{ TTL() time.Duration }); ok && t.TTL() > 0 {
		sessionTTL = t.TTL()
	}

	hasher := b.hasher
	if hasher == nil {
		ph, err := password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		hasher = ph
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:     cfg,
		users:      b.users,
		sessions:   sessions,
		hasher:     hasher,
		notifier:   b.notifier,
		jwtManager: jm,
		logger:     logger,
		audit:      newAuditQueue(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
		now:        clock,
		sessionTTL: sessionTTL,
	}

	b.built = true

	return engine, nil
}

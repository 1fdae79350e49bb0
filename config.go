package authflow

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the complete Engine configuration. Start from DefaultConfig and
// override what the deployment needs.
type Config struct {
	App           AppConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Session       SessionConfig
	PasswordReset PasswordResetConfig
	Notify        NotifyConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
APP CONFIG
====================================
*/

// AppConfig describes the web application the engine serves.
type AppConfig struct {
	Name string
	// Origin is the base URL placed in verification and reset links.
	Origin     string
	Production bool
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token signing and the refresh-token lifetime.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// KeyID is written to the kid header of new tokens. When VerifyKeys is
	// set, tokens are verified by the key registered under their kid, so
	// tokens signed with a retired key stay valid until they expire.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters for the default hasher.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session store built from WithRedis.
// Session lifetime follows JWT.RefreshTTL.
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls the forgot/reset flow.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	// RevealUnknownEmail makes ForgotPassword fail for unregistered emails.
	// When false, unknown emails are acknowledged like known ones.
	RevealUnknownEmail bool
	// RevokeSessions deletes every session of the user after a reset.
	RevokeSessions bool
}

// NotifyConfig bounds outbound notifications.
type NotifyConfig struct {
	Timeout time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration suitable for development. A signing
// key must still be supplied.
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:   "authflow",
			Origin: "http://localhost:3000",
		},
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Session: SessionConfig{
			RedisPrefix: "authflow",
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:           10 * time.Minute,
			RevealUnknownEmail: true,
		},
		Notify: NotifyConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	origin, err := url.Parse(c.App.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return errors.New("App Origin must be an absolute URL")
	}
	if c.App.Production && origin.Scheme != "https" {
		return errors.New("App Origin must use https in production")
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}
	switch strings.ToLower(strings.TrimSpace(c.JWT.SigningMethod)) {
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.KeyID != "" && len(c.JWT.VerifyKeys) > 0 {
		if _, ok := c.JWT.VerifyKeys[c.JWT.KeyID]; !ok {
			return errors.New("JWT KeyID must be present in VerifyKeys")
		}
	}

	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.Notify.Timeout <= 0 {
		return errors.New("Notify Timeout must be > 0")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

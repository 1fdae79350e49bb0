package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

var (
	// ErrEmptyPassword is returned by Hash for a zero-length password.
	ErrEmptyPassword = errors.New("password: empty password")
	// ErrMalformedHash is returned when a stored digest is not a valid argon2id PHC string.
	ErrMalformedHash = errors.New("password: malformed hash")
)

// Config holds the argon2id cost parameters used for new hashes.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns the parameters used when the caller does not override them.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies user passwords.
//
// Hash output is self-describing, so Verify works against digests produced
// with older parameters and NeedsUpgrade reports when a rehash is due.
type Argon2 struct {
	config Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 validates cfg and returns a hasher bound to it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a salted PHC-encoded argon2id digest of password.
//
// Only presence is enforced here; strength policy belongs to callers.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return encodePHC(phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
		key:         key,
	}), nil
}

// Verify reports whether password matches digest. A malformed digest yields
// ErrMalformedHash rather than a plain mismatch.
func (a *Argon2) Verify(password, digest string) (bool, error) {
	parsed, err := decodePHC(digest)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

// NeedsUpgrade reports whether digest was produced with weaker parameters
// than the hasher's current configuration.
func (a *Argon2) NeedsUpgrade(digest string) (bool, error) {
	parsed, err := decodePHC(digest)
	if err != nil {
		return false, err
	}

	switch {
	case parsed.memory < a.config.Memory,
		parsed.time < a.config.Time,
		parsed.parallelism < a.config.Parallelism,
		uint32(len(parsed.key)) != a.config.KeyLength:
		return true, nil
	}
	return false, nil
}

func encodePHC(h phc) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.memory,
		h.time,
		h.parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

// decodePHC parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodePHC(digest string) (*phc, error) {
	fields := strings.Split(digest, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported version", ErrMalformedHash)
	}

	var (
		out         phc
		parallelism uint32
	)
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &out.memory, &out.time, &parallelism); err != nil {
		return nil, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	if out.memory < minMemoryKB || out.time < minTimeCost || parallelism < uint32(minParallelism) || parallelism > 255 {
		return nil, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}
	out.parallelism = uint8(parallelism)

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil || len(out.key) == 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	return &out, nil
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password: memory must be >= %d KB", minMemoryKB)
	case c.Time < minTimeCost:
		return errors.New("password: time must be >= 1")
	case c.Parallelism < minParallelism:
		return errors.New("password: parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password: salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password: key length must be >= %d", minKeyLength)
	}
	return nil
}

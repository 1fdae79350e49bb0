package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authflow/internal"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no live session matches the lookup.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps every transport-level Redis failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrInvalidSession is returned by Create for a session missing its token or owner.
	ErrInvalidSession = errors.New("invalid session")
)

// findOneAndDeleteScript removes the session hash only when it belongs to
// ARGV[1], returning its fields. A nil reply means no match.
const findOneAndDeleteScript = `
local owner = redis.call("HGET", KEYS[1], "user_id")
if not owner or owner ~= ARGV[1] then
  return false
end
local fields = redis.call("HGETALL", KEYS[1])
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[2])
return fields
`

var findOneAndDeleteLua = redis.NewScript(findOneAndDeleteScript)

// Store keeps sessions in Redis. Each session is a hash keyed by the SHA-256
// digest of its refresh token and expires after the configured TTL. A per-user
// set indexes the digests so all sessions of a user can be revoked together.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a Store. prefix namespaces all keys; ttl bounds the
// lifetime of every session and must be positive.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "authflow"
	}
	return &Store{redis: client, prefix: prefix, ttl: ttl, now: time.Now}
}

// TTL reports the lifetime applied to new sessions.
func (s *Store) TTL() time.Duration { return s.ttl }

func (s *Store) key(digest string) string {
	return s.prefix + ":rt:" + digest
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Create persists sess. CreatedAt defaults to now.
//
//	Performance: 1 MULTI/EXEC with HSET, PEXPIRE, SADD, PEXPIRE.
func (s *Store) Create(ctx context.Context, sess Session) (*Session, error) {
	if sess.RefreshToken == "" || sess.UserID == "" {
		return nil, ErrInvalidSession
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}

	digest := internal.HashToken(sess.RefreshToken)
	key := s.key(digest)
	userKey := s.userKey(sess.UserID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, sess.fields())
		pipe.PExpire(ctx, key, s.ttl)
		pipe.SAdd(ctx, userKey, digest)
		pipe.PExpire(ctx, userKey, s.ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return &sess, nil
}

// Find returns the live session for refreshToken without modifying it.
func (s *Store) Find(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNotFound
	}

	values, err := s.redis.HGetAll(ctx, s.key(internal.HashToken(refreshToken))).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(values) == 0 {
		return nil, ErrNotFound
	}

	return decode(refreshToken, values)
}

// FindOneAndDelete atomically removes the session matching f and returns it.
// A session owned by another user is left untouched and reported as ErrNotFound.
//
//	Performance: 1 EVALSHA.
func (s *Store) FindOneAndDelete(ctx context.Context, f Filter) (*Session, error) {
	if f.RefreshToken == "" || f.UserID == "" {
		return nil, ErrNotFound
	}

	digest := internal.HashToken(f.RefreshToken)
	res, err := findOneAndDeleteLua.Run(ctx, s.redis, []string{s.key(digest), s.userKey(f.UserID)}, f.UserID, digest).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	flat, ok := res.([]interface{})
	if !ok || len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: unexpected script reply %T", ErrRedisUnavailable, res)
	}
	values := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		values[k] = v
	}

	return decode(f.RefreshToken, values)
}

// DeleteAllForUser removes every session of userID.
//
// The index is read before deletion, so a session created concurrently
// with this call may survive until its TTL.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	digests, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(digests)+1)
	for _, d := range digests {
		keys = append(keys, s.key(d))
	}
	keys = append(keys, userKey)

	if _, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CountForUser returns the number of live sessions of userID and prunes
// index entries whose session already expired.
func (s *Store) CountForUser(ctx context.Context, userID string) (int, error) {
	userKey := s.userKey(userID)

	digests, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(digests) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.IntCmd, len(digests))
	for i, d := range digests {
		cmds[i] = pipe.Exists(ctx, s.key(d))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var (
		live  int
		stale []interface{}
	)
	for i, cmd := range cmds {
		if cmd.Val() == 1 {
			live++
			continue
		}
		stale = append(stale, digests[i])
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return live, nil
}

// Ping checks Redis availability and reports the round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func decode(refreshToken string, values map[string]string) (*Session, error) {
	userID := values[fieldUserID]
	if userID == "" {
		return nil, ErrNotFound
	}

	sess := &Session{
		RefreshToken: refreshToken,
		UserID:       userID,
		IP:           values[fieldIP],
		UserAgent:    values[fieldUserAgent],
	}
	if raw := values[fieldCreatedAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session: invalid created_at %q", raw)
		}
		sess.CreatedAt = time.UnixMilli(ms)
	}
	return sess, nil
}

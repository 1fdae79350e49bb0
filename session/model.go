package session

import "time"

// Session is one logged-in device of a user. RefreshToken is the opaque
// bearer secret handed to the client; it is never written to Redis.
type Session struct {
	RefreshToken string
	UserID       string
	IP           string
	UserAgent    string
	CreatedAt    time.Time
}

// Filter selects a session by token and owner.
type Filter struct {
	UserID       string
	RefreshToken string
}

const (
	fieldUserID    = "user_id"
	fieldIP        = "ip"
	fieldUserAgent = "user_agent"
	fieldCreatedAt = "created_at"
)

func (s *Session) fields() map[string]interface{} {
	return map[string]interface{}{
		fieldUserID:    s.UserID,
		fieldIP:        s.IP,
		fieldUserAgent: s.UserAgent,
		fieldCreatedAt: s.CreatedAt.UnixMilli(),
	}
}

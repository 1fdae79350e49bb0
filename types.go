package authflow

import (
	"context"
	"time"

	"github.com/MrEthical07/authflow/session"
)

// Role is the coarse authorization level of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is the persisted identity record.
//
// VerificationToken is non-empty until the email is verified. The reset
// fields are either both set or both zero.
type User struct {
	ID                          string
	Email                       string
	Name                        string
	PasswordHash                string
	Role                        Role
	IsVerified                  bool
	VerifiedAt                  *time.Time
	VerificationToken           string
	PasswordResetTokenHash      string
	PasswordResetTokenExpiresAt *time.Time
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// CreateUserInput is the record handed to UserStore.Create.
type CreateUserInput struct {
	Email             string
	Name              string
	PasswordHash      string
	Role              Role
	VerificationToken string
}

// TokenUser is the projection of a User embedded in access tokens and
// returned to clients. It never carries secrets.
type TokenUser struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// NewTokenUser projects u.
func NewTokenUser(u *User) TokenUser {
	return TokenUser{Name: u.Name, UserID: u.ID, Role: u.Role}
}

// RegisterRequest carries the fields required to create an account.
type RegisterRequest struct {
	Email    string
	Name     string
	Password string
}

// ClientInfo identifies the caller of an operation.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User             TokenUser
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// EmailMessage is the payload handed to a Notifier.
type EmailMessage struct {
	Name   string
	Email  string
	Token  string
	Origin string
}

// UserStore persists users. Implementations must enforce email uniqueness
// and return ErrUserNotFound or ErrDuplicateEmail where applicable.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	CountAll(ctx context.Context) (int64, error)
	Create(ctx context.Context, in CreateUserInput) (*User, error)
	Save(ctx context.Context, u *User) error
}

// SessionStore persists refresh-token sessions. Lookups that match nothing
// return session.ErrNotFound.
type SessionStore interface {
	Create(ctx context.Context, s session.Session) (*session.Session, error)
	Find(ctx context.Context, refreshToken string) (*session.Session, error)
	FindOneAndDelete(ctx context.Context, f session.Filter) (*session.Session, error)
	DeleteAllForUser(ctx context.Context, userID string) error
	CountForUser(ctx context.Context, userID string) (int, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// hashUpgrader is implemented by hashers that can report stale parameters.
type hashUpgrader interface {
	NeedsUpgrade(digest string) (bool, error)
}

// Notifier delivers account emails.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, msg EmailMessage) error
	SendResetPasswordEmail(ctx context.Context, msg EmailMessage) error
}

package mongostore

import (
	"time"

	"github.com/MrEthical07/authflow"
)

// userDocument is the BSON shape of a user. Field names follow the
// collection layout used by existing deployments.
type userDocument struct {
	ID                          string     `bson:"_id"`
	Name                        string     `bson:"name"`
	Email                       string     `bson:"email"`
	Password                    string     `bson:"password"`
	Role                        string     `bson:"role"`
	IsVerified                  bool       `bson:"isVerified"`
	Verified                    *time.Time `bson:"verified,omitempty"`
	VerificationToken           string     `bson:"verificationToken,omitempty"`
	PasswordToken               string     `bson:"passwordToken,omitempty"`
	PasswordTokenExpirationDate *time.Time `bson:"passwordTokenExpirationDate,omitempty"`
	CreatedAt                   time.Time  `bson:"createdAt"`
	UpdatedAt                   time.Time  `bson:"updatedAt"`
}

func toDocument(u *authflow.User) userDocument {
	return userDocument{
		ID:                          u.ID,
		Name:                        u.Name,
		Email:                       u.Email,
		Password:                    u.PasswordHash,
		Role:                        string(u.Role),
		IsVerified:                  u.IsVerified,
		Verified:                    u.VerifiedAt,
		VerificationToken:           u.VerificationToken,
		PasswordToken:               u.PasswordResetTokenHash,
		PasswordTokenExpirationDate: u.PasswordResetTokenExpiresAt,
		CreatedAt:                   u.CreatedAt,
		UpdatedAt:                   u.UpdatedAt,
	}
}

func (d userDocument) user() *authflow.User {
	return &authflow.User{
		ID:                          d.ID,
		Name:                        d.Name,
		Email:                       d.Email,
		PasswordHash:                d.Password,
		Role:                        authflow.Role(d.Role),
		IsVerified:                  d.IsVerified,
		VerifiedAt:                  utcPtr(d.Verified),
		VerificationToken:           d.VerificationToken,
		PasswordResetTokenHash:      d.PasswordToken,
		PasswordResetTokenExpiresAt: utcPtr(d.PasswordTokenExpirationDate),
		CreatedAt:                   d.CreatedAt.UTC(),
		UpdatedAt:                   d.UpdatedAt.UTC(),
	}
}

// BSON datetimes decode in local time with millisecond precision.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

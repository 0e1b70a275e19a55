package domain

import (
	"time"

	"github.com/sbilab/dataviz/pkg/idx"
)

// User is the root of all access control: every dataset and plot lookup is
// filtered by the owning user's identity.
type User struct {
	ID           idx.ID
	Email        string // identity key, unique
	Username     string
	FullName     string
	PasswordHash string // argon2id PHC string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate carries a partial update; nil fields are left untouched.
type UserUpdate struct {
	Email    *string
	FullName *string
	Active   *bool
}

// ExternalIdentity is a third-party identity normalized by the OAuth bridge.
type ExternalIdentity struct {
	Email      string
	Name       string
	ExternalID string
	Verified   bool
}

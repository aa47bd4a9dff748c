package domain

import (
	"errors"
	"time"
)

// DefaultID is the id of the single stored credential.
const DefaultID = "default"

var ErrNoCredential = errors.New("no stored credential")

// Credential is the owner's Google OAuth grant.
type Credential struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	RefreshToken string    `json:"-" gorm:"not null"`
	AccessToken  string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	OwnerEmail   string    `json:"owner_email" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Credential) TableName() string { return "credentials" }

// ValidFor reports whether the access token is still usable for at least d after now.
func (c *Credential) ValidFor(now time.Time, d time.Duration) bool {
	return c.AccessToken != "" && c.ExpiresAt.After(now.Add(d))
}

// AccessToken is what callers of the guard receive.
type AccessToken struct {
	Token      string
	OwnerEmail string
	ExpiresAt  time.Time
}

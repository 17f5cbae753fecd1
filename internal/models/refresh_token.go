package models

import (
	"time"
)

// RefreshToken is a persisted refresh token for one login session. Tokens
// are rotated on every refresh and revoked on logout, never deleted, so a
// replayed token is detectable.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Usable reports whether the token can still mint a new access token.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.IsRevoked && t.ExpiresAt.After(now)
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()

	live := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, live.Usable(now))

	revoked := RefreshToken{ExpiresAt: now.Add(time.Hour), IsRevoked: true}
	assert.False(t, revoked.Usable(now))

	expired := RefreshToken{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.Usable(now))
}

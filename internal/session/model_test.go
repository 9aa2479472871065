package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/daap14/tenantauth/internal/session"
)

func TestHashToken(t *testing.T) {
	h := session.HashToken("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.NotEqual(t, h, session.HashToken("abd"))
}

func TestActive(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)

	assert.True(t, (&session.Session{ExpiresAt: now.Add(time.Minute)}).Active(now))
	assert.False(t, (&session.Session{ExpiresAt: now}).Active(now))
	assert.False(t, (&session.Session{ExpiresAt: now.Add(time.Minute), RevokedAt: &revoked}).Active(now))
}

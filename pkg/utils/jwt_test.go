package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "solidwriter")
	token, err := m.IssueToken("Writer@Example.com", "Writer", time.Hour)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "writer@example.com", claims.Identity())
	assert.Equal(t, "Writer", claims.Name)
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("secret", "solidwriter")
	token, err := m.IssueToken("a@b.c", "", -time.Minute)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTWrongSecretOrIssuer(t *testing.T) {
	token, err := NewJWTManager("secret", "solidwriter").IssueToken("a@b.c", "", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTManager("other", "solidwriter").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTManager("secret", "someone-else").ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTIdentityFallsBackToSubject(t *testing.T) {
	c := &Claims{}
	c.Subject = "  Someone@Example.com "
	assert.Equal(t, "someone@example.com", c.Identity())

	c.Email = "Primary@Example.com"
	assert.Equal(t, "primary@example.com", c.Identity())
}

func TestJWTRejectsMissingIdentity(t *testing.T) {
	m := NewJWTManager("secret", "")
	token, err := m.IssueToken("   ", "", time.Hour)
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

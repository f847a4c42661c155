// ABOUTME: Tests for the signed OAuth2 state parameter
// ABOUTME: Covers round-trips, tampering, expiry, and wrong-secret rejection

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSigner_RoundTrip(t *testing.T) {
	signer := NewStateSigner([]byte("test-secret"))

	state, err := signer.Generate("session-123", 10*time.Minute)
	require.NoError(t, err)

	sessionID, err := signer.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sessionID)
}

func TestStateSigner_Garbage(t *testing.T) {
	signer := NewStateSigner([]byte("test-secret"))

	_, err := signer.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateSigner_Expired(t *testing.T) {
	signer := NewStateSigner([]byte("test-secret"))

	state, err := signer.Generate("session-123", -time.Minute)
	require.NoError(t, err)

	_, err = signer.Verify(state)
	assert.ErrorIs(t, err, ErrExpiredState)
}

func TestStateSigner_WrongSecret(t *testing.T) {
	signer := NewStateSigner([]byte("test-secret"))
	other := NewStateSigner([]byte("different-secret"))

	state, err := signer.Generate("session-123", 10*time.Minute)
	require.NoError(t, err)

	_, err = other.Verify(state)
	assert.ErrorIs(t, err, ErrInvalidState)
}

package replytoken

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner("secret", time.Hour)

	token, err := s.Sign("user-1", "prompt-1")
	require.NoError(t, err)

	userID, promptID, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.Equal(t, "prompt-1", promptID)
}

func TestVerifyFailsClosed(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	token, err := s.Sign("user-1", "prompt-1")
	require.NoError(t, err)

	_, _, err = NewSigner("other", time.Hour).Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, _, err = s.Verify(token + "x")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, _, err = s.Verify("garbage")
	assert.True(t, errors.Is(err, ErrInvalidToken))

	later := s.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	_, _, err = later.Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken), "expired tokens are rejected")
}

func TestAddress(t *testing.T) {
	addr := Address("abc.def", "mail.example.com")
	assert.Equal(t, "reply+abc.def@mail.example.com", addr)

	token, ok := TokenFromAddress(addr)
	require.True(t, ok)
	assert.Equal(t, "abc.def", token)

	_, ok = TokenFromAddress("someone@example.com")
	assert.False(t, ok)
}

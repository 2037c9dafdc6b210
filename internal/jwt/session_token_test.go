package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionCodecRoundTrip(t *testing.T) {
	codec, err := NewSessionCodec("a-long-enough-secret-for-testing-only", 0)
	require.NoError(t, err)

	value, err := codec.Encode("sid-123")
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(value, "."))

	id, err := codec.Decode(value)
	require.NoError(t, err)
	require.Equal(t, "sid-123", id)
}

func TestSessionCodecRejectsOtherSecret(t *testing.T) {
	a, err := NewSessionCodec("secret-a", 0)
	require.NoError(t, err)
	b, err := NewSessionCodec("secret-b", 0)
	require.NoError(t, err)

	value, err := a.Encode("sid")
	require.NoError(t, err)

	_, err = b.Decode(value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionCodecRejectsGarbageAndTampering(t *testing.T) {
	codec, err := NewSessionCodec("secret", 0)
	require.NoError(t, err)

	_, err = codec.Decode("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	value, err := codec.Encode("sid")
	require.NoError(t, err)
	parts := strings.Split(value, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	_, err = codec.Decode(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionCodecMaxAge(t *testing.T) {
	codec, err := NewSessionCodec("secret", time.Hour)
	require.NoError(t, err)

	issued := time.Now()
	codec.now = func() time.Time { return issued }
	value, err := codec.Encode("sid")
	require.NoError(t, err)

	codec.now = func() time.Time { return issued.Add(30 * time.Minute) }
	_, err = codec.Decode(value)
	require.NoError(t, err)

	codec.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = codec.Decode(value)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSessionCodecRequiresSecret(t *testing.T) {
	_, err := NewSessionCodec("", 0)
	require.Error(t, err)
}

package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func cheapHasher() *Hasher {
	return NewHasher(Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
}

func TestHashAndVerify(t *testing.T) {
	h := cheapHasher()

	encoded, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := h.Verify("correct horse battery staple", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify("wrong password", encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	h := cheapHasher()
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyUsesEmbeddedParams(t *testing.T) {
	encoded, err := cheapHasher().Hash("secret-password")
	require.NoError(t, err)

	ok, err := NewHasher(DefaultParams()).Verify("secret-password", encoded)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyAcceptsPaddedSegments(t *testing.T) {
	encoded, err := cheapHasher().Hash("padded")
	require.NoError(t, err)

	parts := strings.Split(encoded, "$")
	for i := 4; i <= 5; i++ {
		raw, err := base64.RawStdEncoding.DecodeString(parts[i])
		require.NoError(t, err)
		parts[i] = base64.StdEncoding.EncodeToString(raw)
	}

	ok, err := cheapHasher().Verify("padded", strings.Join(parts, "$"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsMalformed(t *testing.T) {
	h := cheapHasher()
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		_, err := h.Verify("x", encoded)
		require.True(t, errors.Is(err, ErrMalformedHash), "input %q", encoded)
	}
}

package redis

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/sessionguard/domain"
)

func sampleEntry() *domain.SessionWithUser {
	created := time.Date(2024, 3, 1, 10, 30, 15, 123456000, time.UTC)
	updated := created.Add(36 * time.Hour)
	return &domain.SessionWithUser{
		Session: domain.Session{
			ID:        "5f2b7c",
			UserID:    "user-1",
			ExpiresAt: created.Add(30 * 24 * time.Hour),
		},
		User: domain.User{
			ID:            "user-1",
			Email:         "jane@example.com",
			Username:      "Jane Doe",
			Avatar:        "https://avatar.vercel.sh/vercel.svg?text=JD",
			EmailVerified: true,
			Registered2FA: false,
			CreatedAt:     created,
			UpdatedAt:     &updated,
		},
	}
}

func TestSessionPayloadRoundTrip(t *testing.T) {
	entry := sampleEntry()

	data, err := EncodeSession(entry)
	require.NoError(t, err)

	decoded, err := DecodeSession(data)
	require.NoError(t, err)
	require.Equal(t, *entry, *decoded)

	again, err := EncodeSession(decoded)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestSessionPayloadWithoutUpdatedAt(t *testing.T) {
	entry := sampleEntry()
	entry.User.UpdatedAt = nil

	data, err := EncodeSession(entry)
	require.NoError(t, err)

	decoded, err := DecodeSession(data)
	require.NoError(t, err)
	require.Nil(t, decoded.User.UpdatedAt)
	require.True(t, entry.Session.ExpiresAt.Equal(decoded.Session.ExpiresAt))
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	data, err := json.Marshal(map[string]any{
		"v": 99,
		"s": map[string]any{"i": "a", "u": "b", "e": 1},
		"u": map[string]any{"i": "b"},
	})
	require.NoError(t, err)

	_, err = DecodeSession(data)
	require.True(t, errors.Is(err, ErrUnsupportedVersion))

	// Payloads written before versioning carry no tag at all.
	_, err = DecodeSession([]byte(`{"s":{"i":"a","u":"b","e":1},"u":{"i":"b"}}`))
	require.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeSession([]byte("not-json"))
	require.True(t, errors.Is(err, ErrCorruptPayload))

	_, err = DecodeSession([]byte(`{"v":1,"s":{"i":"","u":""}}`))
	require.True(t, errors.Is(err, ErrCorruptPayload))
}

func TestCodePayloadRoundTrip(t *testing.T) {
	code := &domain.VerificationCode{
		ID:        "c-1",
		Email:     "jane@example.com",
		Code:      "aB3_-z",
		ExpiresAt: time.Date(2024, 3, 1, 10, 40, 0, 999000, time.UTC),
	}

	data, err := EncodeCode(code)
	require.NoError(t, err)

	decoded, err := DecodeCode(data)
	require.NoError(t, err)
	require.Equal(t, *code, *decoded)
}

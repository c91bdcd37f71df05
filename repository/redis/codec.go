package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fastygo/sessionguard/domain"
)

// Cache payloads are tagged with a schema version. Decoders reject any
// version they do not know so a format change surfaces as a cache miss
// instead of a silently misparsed session.
const payloadVersionCurrent = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported cache payload version")
	ErrCorruptPayload     = errors.New("corrupt cache payload")
)

type packedSession struct {
	ID        string `json:"i"`
	UserID    string `json:"u"`
	ExpiresAt int64  `json:"e"`
}

type packedUser struct {
	ID            string `json:"i"`
	Email         string `json:"e"`
	Username      string `json:"n"`
	Avatar        string `json:"a"`
	EmailVerified bool   `json:"v"`
	Registered2FA bool   `json:"f"`
	CreatedAt     int64  `json:"c"`
	UpdatedAt     *int64 `json:"p,omitempty"`
}

type sessionPayload struct {
	Version int           `json:"v"`
	Session packedSession `json:"s"`
	User    packedUser    `json:"u"`
}

type userPayload struct {
	Version int        `json:"v"`
	User    packedUser `json:"u"`
}

type codePayload struct {
	Version   int    `json:"v"`
	ID        string `json:"i"`
	Email     string `json:"e"`
	Code      string `json:"c"`
	ExpiresAt int64  `json:"x"`
}

// EncodeSession packs a session and its user projection.
func EncodeSession(entry *domain.SessionWithUser) ([]byte, error) {
	if entry == nil || entry.Session.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrCorruptPayload)
	}
	return json.Marshal(sessionPayload{
		Version: payloadVersionCurrent,
		Session: packedSession{
			ID:        entry.Session.ID,
			UserID:    entry.Session.UserID,
			ExpiresAt: entry.Session.ExpiresAt.UnixMicro(),
		},
		User: packUser(&entry.User),
	})
}

// DecodeSession reverses EncodeSession.
func DecodeSession(data []byte) (*domain.SessionWithUser, error) {
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if payload.Version != payloadVersionCurrent {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, payload.Version)
	}
	if payload.Session.ID == "" || payload.Session.UserID == "" {
		return nil, fmt.Errorf("%w: missing session identity", ErrCorruptPayload)
	}

	return &domain.SessionWithUser{
		Session: domain.Session{
			ID:        payload.Session.ID,
			UserID:    payload.Session.UserID,
			ExpiresAt: fromMicro(payload.Session.ExpiresAt),
		},
		User: unpackUser(payload.User),
	}, nil
}

func EncodeUser(user *domain.User) ([]byte, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrCorruptPayload)
	}
	return json.Marshal(userPayload{Version: payloadVersionCurrent, User: packUser(user)})
}

func DecodeUser(data []byte) (*domain.User, error) {
	var payload userPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if payload.Version != payloadVersionCurrent {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, payload.Version)
	}
	user := unpackUser(payload.User)
	return &user, nil
}

func EncodeCode(code *domain.VerificationCode) ([]byte, error) {
	if code == nil || code.ID == "" {
		return nil, fmt.Errorf("%w: missing code id", ErrCorruptPayload)
	}
	return json.Marshal(codePayload{
		Version:   payloadVersionCurrent,
		ID:        code.ID,
		Email:     code.Email,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt.UnixMicro(),
	})
}

func DecodeCode(data []byte) (*domain.VerificationCode, error) {
	var payload codePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if payload.Version != payloadVersionCurrent {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, payload.Version)
	}
	return &domain.VerificationCode{
		ID:        payload.ID,
		Email:     payload.Email,
		Code:      payload.Code,
		ExpiresAt: fromMicro(payload.ExpiresAt),
	}, nil
}

func packUser(user *domain.User) packedUser {
	packed := packedUser{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		Avatar:        user.Avatar,
		EmailVerified: user.EmailVerified,
		Registered2FA: user.Registered2FA,
		CreatedAt:     user.CreatedAt.UnixMicro(),
	}
	if user.UpdatedAt != nil {
		updated := user.UpdatedAt.UnixMicro()
		packed.UpdatedAt = &updated
	}
	return packed
}

func unpackUser(packed packedUser) domain.User {
	user := domain.User{
		ID:            packed.ID,
		Email:         packed.Email,
		Username:      packed.Username,
		Avatar:        packed.Avatar,
		EmailVerified: packed.EmailVerified,
		Registered2FA: packed.Registered2FA,
		CreatedAt:     fromMicro(packed.CreatedAt),
	}
	if packed.UpdatedAt != nil {
		updated := fromMicro(*packed.UpdatedAt)
		user.UpdatedAt = &updated
	}
	return user
}

func fromMicro(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

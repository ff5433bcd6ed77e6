// Package session keeps refresh sessions in Redis, one key per access ID
// (the JWT jti). A session holds the owner and a hash of the refresh token.
package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	redisclient "github.com/angelmondragon/conduit-storefront/pkg/redis"
	"github.com/angelmondragon/conduit-storefront/pkg/security"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errNoAccessID          = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// AccessSessionChecker is what the auth middleware needs to reject access
// tokens whose session was revoked or rotated away.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type entry struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenHash string    `json:"token_hash"`
}

type Manager struct {
	store  store
	keyFor func(accessID string) string
	ttl    time.Duration
}

// NewManager requires the refresh TTL to outlive the access TTL.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl, accessTTL := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, keyFor: client.AccessSessionKey, ttl: ttl}, nil
}

// NewAccessID produces the identifier used as the JWT jti and Redis key.
func NewAccessID() string { return uuid.NewString() }

// Generate stores a fresh session for accessID and returns the raw refresh
// token. Only its hash is persisted.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if blank(accessID) {
		return "", errNoAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	token, err := security.GenerateToken(refreshTokenBytes)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(entry{UserID: userID, TokenHash: security.HashToken(token)})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyFor(accessID), string(raw), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Rotate spends the session under oldAccessID and opens a new one for the
// same user. The old session is consumed even when the presented token does
// not match, so a leaked access ID cannot be used to probe refresh tokens.
func (m *Manager) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if blank(oldAccessID) || blank(provided) {
		return "", "", ErrInvalidRefreshToken
	}
	raw, err := m.store.GetDel(ctx, m.keyFor(oldAccessID))
	if errors.Is(err, redislib.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}

	var old entry
	if json.Unmarshal([]byte(raw), &old) != nil || old.UserID != userID ||
		subtle.ConstantTimeCompare([]byte(old.TokenHash), []byte(security.HashToken(provided))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, userID, accessID)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.keyFor(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errNoAccessID
	}
	_, err := m.store.Get(ctx, m.keyFor(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

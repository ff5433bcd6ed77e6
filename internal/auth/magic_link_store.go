package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	redisclient "github.com/angelmondragon/conduit-storefront/pkg/redis"
)

// ErrMagicLinkInvalid is returned for unknown, expired or already used tokens.
var ErrMagicLinkInvalid = errors.New("magic link invalid or expired")

// MagicLinks stores pending sign-in tokens by hash.
type MagicLinks interface {
	Put(ctx context.Context, tokenHash, email string, ttl time.Duration) error
	// Consume returns the email the token was issued for and deletes it.
	Consume(ctx context.Context, tokenHash string) (string, error)
}

type magicLinkRedis interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	MagicLinkKey(tokenHash string) string
}

type redisMagicLinks struct {
	store magicLinkRedis
}

// NewRedisMagicLinks keeps tokens in Redis; GETDEL makes them single use.
func NewRedisMagicLinks(client *redisclient.Client) (MagicLinks, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &redisMagicLinks{store: client}, nil
}

func (m *redisMagicLinks) Put(ctx context.Context, tokenHash, email string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("magic link ttl must be positive")
	}
	return m.store.Set(ctx, m.store.MagicLinkKey(tokenHash), email, ttl)
}

func (m *redisMagicLinks) Consume(ctx context.Context, tokenHash string) (string, error) {
	email, err := m.store.GetDel(ctx, m.store.MagicLinkKey(tokenHash))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", ErrMagicLinkInvalid
		}
		return "", err
	}
	return email, nil
}

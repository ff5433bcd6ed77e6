package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	claimed     map[string]bool
	setNXError  error
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: map[string]bool{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setNXError != nil {
		return false, f.setNXError
	}
	f.lastTTL = ttl
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.claimed, key)
		f.lastDeleted = key
	}
	return nil
}

func TestClaimOnlyOnce(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.NewString()
	first, err := manager.Claim(context.Background(), "analytics-worker", eventID)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 24*time.Hour, store.lastTTL)

	second, err := manager.Claim(context.Background(), "analytics-worker", eventID)
	require.NoError(t, err)
	assert.False(t, second)

	other, err := manager.Claim(context.Background(), "mailer", eventID)
	require.NoError(t, err)
	assert.True(t, other)
}

func TestReleaseAllowsRetry(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.NewString()
	_, err = manager.Claim(context.Background(), "analytics-worker", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Release(context.Background(), "analytics-worker", eventID))
	assert.Equal(t, "sf:idempotency:evt:processed:analytics-worker:"+eventID, store.lastDeleted)

	again, err := manager.Claim(context.Background(), "analytics-worker", eventID)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaimErrors(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("boom")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.Claim(context.Background(), "analytics-worker", "evt-1")
	assert.EqualError(t, err, "boom")

	_, err = manager.Claim(context.Background(), " ", "evt-1")
	assert.Error(t, err)
	_, err = manager.Claim(context.Background(), "analytics-worker", "")
	assert.Error(t, err)
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	assert.Error(t, err)
}

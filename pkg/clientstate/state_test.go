package clientstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerIDGeneratedOnceAndPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.env")
	store, err := Open(path)
	require.NoError(t, err)

	owner, err := store.OwnerID()
	require.NoError(t, err)
	_, err = uuid.Parse(owner)
	require.NoError(t, err)

	again, err := store.OwnerID()
	require.NoError(t, err)
	assert.Equal(t, owner, again)

	reopened, err := Open(path)
	require.NoError(t, err)
	persisted, err := reopened.OwnerID()
	require.NoError(t, err)
	assert.Equal(t, owner, persisted)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSessionLifecycleKeepsOwner(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "state.env"))
	require.NoError(t, err)
	owner, err := store.OwnerID()
	require.NoError(t, err)

	assert.False(t, store.Session().Authenticated())
	require.NoError(t, store.SaveSession(Session{UserID: "u1", Role: "client", AccessToken: "a", RefreshToken: "r"}))
	assert.Equal(t, "u1", store.Session().UserID)
	assert.True(t, store.Session().Authenticated())

	require.NoError(t, store.ClearSession())
	assert.False(t, store.Session().Authenticated())
	assert.Equal(t, owner, store.Get(KeyOwnerID))
}

func TestThemeAndEmail(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "state.env"))
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, store.Theme())
	require.NoError(t, store.SetTheme(" Dark "))
	assert.Equal(t, ThemeDark, store.Theme())
	assert.Error(t, store.SetTheme("sepia"))

	require.NoError(t, store.Set(KeyMagicLinkEmail, "buyer@example.com"))
	reopened, err := Open(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", reopened.Get(KeyMagicLinkEmail))
	assert.Equal(t, ThemeDark, reopened.Theme())
}

func TestInvalidOwnerIsReplaced(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "state.env"))
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyOwnerID, "not-a-uuid"))
	owner, err := store.OwnerID()
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", owner)
}

package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/security"
)

var cheap = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := security.VerifyPassword("very-secure-password", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("very-secure-password ", hash)
	require.NoError(t, err)
	assert.False(t, ok, "passwords are compared untrimmed")

	again, err := security.HashPassword("very-secure-password", cheap)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salt must differ per hash")
}

func TestVerifyUsesStoredParameters(t *testing.T) {
	stronger := cheap
	stronger.ArgonTime = 2
	stronger.ArgonKeyLen = 48

	for _, cfg := range []config.PasswordConfig{cheap, stronger} {
		hash, err := security.HashPassword("pipe-bender", cfg)
		require.NoError(t, err)
		ok, err := security.VerifyPassword("pipe-bender", hash)
		require.NoError(t, err)
		assert.True(t, ok, hash)
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, bad := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$!!",
	} {
		_, err := security.VerifyPassword("irrelevant", bad)
		assert.ErrorIs(t, err, security.ErrInvalidHash, bad)
	}
	_, err := security.HashPassword("", cheap)
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	cfg := config.PasswordConfig{MinLength: 10}
	assert.Error(t, security.ValidatePassword("short", cfg))
	assert.NoError(t, security.ValidatePassword("long-enough", cfg))
	assert.Error(t, security.ValidatePassword("1234567", config.PasswordConfig{}))
	assert.NoError(t, security.ValidatePassword("ñandúñandú", cfg), "length counts runes")
}

func TestTokensAndCodes(t *testing.T) {
	a, err := security.GenerateToken(32)
	require.NoError(t, err)
	b, err := security.GenerateToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	assert.Len(t, security.HashToken(a), 64)
	assert.Equal(t, security.HashToken(a), security.HashToken(a))
	assert.NotEqual(t, a, security.HashToken(a))

	code, err := security.RandomUpperAlnum(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
}

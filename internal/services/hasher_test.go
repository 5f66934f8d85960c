package services_test

import (
	"testing"

	"taskify/backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Hasher(t *testing.T) {
	hasher := services.SHA256Hasher{}

	digest, err := hasher.Hash("secret1")
	require.NoError(t, err)
	assert.Len(t, digest, 64)

	again, err := hasher.Hash("secret1")
	require.NoError(t, err)
	assert.Equal(t, digest, again, "hash is deterministic")

	assert.True(t, hasher.Verify("secret1", digest))
	assert.False(t, hasher.Verify("secret2", digest))
}

func TestSHA256Hasher_KnownVector(t *testing.T) {
	digest, err := services.SHA256Hasher{}.Hash("")
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", digest)
}

func TestBcryptHasher(t *testing.T) {
	hasher := services.BcryptHasher{Cost: 4}

	digest, err := hasher.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", digest)
	assert.True(t, hasher.Verify("secret1", digest))
	assert.False(t, hasher.Verify("wrong", digest))
}

func TestNewPasswordHasher(t *testing.T) {
	hasher, err := services.NewPasswordHasher("", 10)
	require.NoError(t, err)
	assert.IsType(t, services.SHA256Hasher{}, hasher)

	hasher, err = services.NewPasswordHasher("bcrypt", 10)
	require.NoError(t, err)
	assert.IsType(t, services.BcryptHasher{}, hasher)

	_, err = services.NewPasswordHasher("bcrypt", 99)
	assert.Error(t, err)

	_, err = services.NewPasswordHasher("md5", 10)
	assert.Error(t, err)
}

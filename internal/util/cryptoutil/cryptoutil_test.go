package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgon2(t *testing.T) {
	hash, err := Argon2GenerateHash("hastasiempre")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.True(t, Argon2CheckHash("hastasiempre", hash))
	assert.False(t, Argon2CheckHash("hastaluego", hash))
	assert.False(t, Argon2CheckHash("hastasiempre", "not-a-hash"))
}

func TestBcrypt(t *testing.T) {
	hash, err := BcryptGenerateHash("hastasiempre")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)

	assert.True(t, BcryptCheckHash("hastasiempre", hash))
	assert.False(t, BcryptCheckHash("hastaluego", hash))
	assert.False(t, BcryptCheckHash("hastasiempre", "not-a-hash"))
}

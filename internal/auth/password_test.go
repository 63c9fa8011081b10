package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hashed, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hashed)

	assert.True(t, h.Verify("secret1", hashed))
	assert.False(t, h.Verify("secret2", hashed))
}

func TestPasswordHasher_VerifyMalformedHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	assert.False(t, h.Verify("secret1", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("secret1", ""))
}

func TestNewPasswordHasher_OutOfRangeCostFallsBack(t *testing.T) {
	h := NewPasswordHasher(0)
	hashed, err := h.Hash("x")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}

package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/finance-control-api/internal/utils"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := utils.HashPassword("123456", 4)
	require.NoError(t, err)

	assert.NotEqual(t, "123456", hash)
	assert.True(t, utils.VerifyPassword(hash, "123456"))
	assert.False(t, utils.VerifyPassword(hash, "1234567"))
	assert.False(t, utils.VerifyPassword("not-a-hash", "123456"))
}

func TestHashPasswordIsSalted(t *testing.T) {
	a, err := utils.HashPassword("secret", 4)
	require.NoError(t, err)
	b, err := utils.HashPassword("secret", 4)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

package keystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CRUD(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get("alchemy-mainnet")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set("alchemy-mainnet", "secret"))
	key, err := s.Get("alchemy-mainnet")
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	require.NoError(t, s.Set("alchemy-mainnet", "rotated"))
	key, _ = s.Get("alchemy-mainnet")
	assert.Equal(t, "rotated", key)

	require.NoError(t, s.Delete("alchemy-mainnet"))
	_, err = s.Get("alchemy-mainnet")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, s.Delete("alchemy-mainnet"))
}

func TestBadgerStore_CRUD(t *testing.T) {
	s, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("helius-devnet")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Set("helius-devnet", "hk-123"))
	key, err := s.Get("helius-devnet")
	require.NoError(t, err)
	assert.Equal(t, "hk-123", key)

	require.NoError(t, s.Delete("helius-devnet"))
	_, err = s.Get("helius-devnet")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NoError(t, s.Delete("helius-devnet"))
}

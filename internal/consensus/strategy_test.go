package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/solana-gateway/internal/rpc"
)

func TestStrategy_ValidateThreshold(t *testing.T) {
	assert.Nil(t, Threshold(3, 2).Validate(5))
	assert.Nil(t, Threshold(0, 2).Validate(5))

	cerr := Threshold(0, 0).Validate(5)
	require.NotNil(t, cerr)
	assert.IsType(t, &rpc.InvalidConfigError{}, cerr)

	assert.NotNil(t, Threshold(2, 3).Validate(5), "min > total")
	assert.NotNil(t, Threshold(6, 2).Validate(5), "total > available")
	assert.NotNil(t, Threshold(0, 6).Validate(5), "min > available")
}

func TestStrategy_ContactCount(t *testing.T) {
	assert.Equal(t, 3, Equality().ContactCount(6))
	assert.Equal(t, 2, Equality().ContactCount(2))

	assert.Equal(t, 4, Threshold(4, 2).ContactCount(6))
	// Unset total contacts min+1 so one dissent still leaves a quorum.
	assert.Equal(t, 3, Threshold(0, 2).ContactCount(6))
	assert.Equal(t, 2, Threshold(0, 2).ContactCount(2))
}

func TestStrategy_NeedsAgreement(t *testing.T) {
	assert.True(t, Equality().NeedsAgreement(3))
	assert.False(t, Equality().NeedsAgreement(1))
	assert.True(t, Threshold(3, 2).NeedsAgreement(3))
	assert.False(t, Threshold(0, 1).NeedsAgreement(3))
}

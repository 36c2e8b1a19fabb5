package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beerus-go/core/crypto"
	"github.com/eigerco/beerus-go/core/felt"
)

func TestPedersenIsDeterministic(t *testing.T) {
	a, _ := felt.FromHex("0x1")
	b, _ := felt.FromHex("0x2")

	h1 := crypto.Pedersen(a, b)
	h2 := crypto.Pedersen(a, b)
	assert.True(t, h1.Equal(h2))
}

func TestPedersenIsSensitiveToEachInput(t *testing.T) {
	a, _ := felt.FromHex("0x1")
	b, _ := felt.FromHex("0x2")
	c, _ := felt.FromHex("0x3")

	assert.False(t, crypto.Pedersen(a, b).Equal(crypto.Pedersen(a, c)))
	assert.False(t, crypto.Pedersen(a, b).Equal(crypto.Pedersen(c, b)))
	assert.False(t, crypto.Pedersen(a, b).Equal(crypto.Pedersen(b, a)))
}

func TestPedersenZeroInputsNotZero(t *testing.T) {
	h := crypto.Pedersen(felt.Zero, felt.Zero)
	assert.False(t, h.IsZero())
}

// TestPedersenMatchesKnownVectors checks real published StarkNet Pedersen
// outputs, not just self-consistency: catches a wrong generator point or
// decomposition that self-consistency checks alone cannot.
func TestPedersenMatchesKnownVectors(t *testing.T) {
	// a=b=0 collapses the fixed-base combination to the shift point alone,
	// so the result is exactly starkware-libs/pedersen_params.json's
	// published shift_point x-coordinate.
	zeroZero := crypto.Pedersen(felt.Zero, felt.Zero)
	wantZeroZero, err := felt.FromHex("0x49ee3eba8c1600700ee1b87eb599f16716b0b1022947733551fde4050ca6804")
	require.NoError(t, err)
	assert.True(t, zeroZero.Equal(wantZeroZero))

	// pedersen_hash(1, 2), the vector republished throughout the StarkNet
	// ecosystem's own hash test suites (cairo-lang, pathfinder, starknet.go).
	one := felt.FromUint64(1)
	two := felt.FromUint64(2)
	oneTwo := crypto.Pedersen(one, two)
	wantOneTwo, err := felt.FromHex("0x05bb9440e27889a364bcb678b1f679ecd1347acdedcbf36e83494f857cc58026")
	require.NoError(t, err)
	assert.True(t, oneTwo.Equal(wantOneTwo))
}

func TestPoseidonIsDeterministicAndSensitive(t *testing.T) {
	a, _ := felt.FromHex("0x1234")
	b, _ := felt.FromHex("0x5678")
	c, _ := felt.FromHex("0x9999")

	h1 := crypto.Poseidon([]felt.Felt{a, b})
	h2 := crypto.Poseidon([]felt.Felt{a, b})
	assert.True(t, h1.Equal(h2))

	h3 := crypto.Poseidon([]felt.Felt{a, c})
	assert.False(t, h1.Equal(h3))

	h4 := crypto.Poseidon([]felt.Felt{a, b, c})
	assert.False(t, h1.Equal(h4))
}

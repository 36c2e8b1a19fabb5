// Package crypto wraps the two StarkNet hash functions Beerus needs to
// recompute trie node hashes and class hashes: Pedersen and Poseidon. Both
// delegate to github.com/NethermindEth/juno/core/crypto, the same real,
// published-constant implementation the provider's own JSON-RPC client
// pairs with in production (see other_examples' juno-felt/starknet.go
// pairing); this package only owns the felt.Felt boundary conversion, the
// way client/starknet already converts at its juno boundary.
package crypto

import (
	junocrypto "github.com/NethermindEth/juno/core/crypto"
	junofelt "github.com/NethermindEth/juno/core/felt"

	"github.com/eigerco/beerus-go/core/felt"
)

func toJunoFelt(f felt.Felt) *junofelt.Felt {
	b := f.Bytes()
	var jf junofelt.Felt
	jf.SetBytes(b[:])
	return &jf
}

func toCoreFelt(f *junofelt.Felt) felt.Felt {
	b := f.Bytes()
	return felt.SetBytesBE(b)
}

// Pedersen computes the StarkNet Pedersen hash of two field elements.
func Pedersen(a, b felt.Felt) felt.Felt {
	return toCoreFelt(junocrypto.Pedersen(toJunoFelt(a), toJunoFelt(b)))
}

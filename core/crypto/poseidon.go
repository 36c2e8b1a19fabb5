package crypto

import (
	junocrypto "github.com/NethermindEth/juno/core/crypto"
	junofelt "github.com/NethermindEth/juno/core/felt"

	"github.com/eigerco/beerus-go/core/felt"
)

// Poseidon hashes a sequence of field elements with the Hades sponge
// construction StarkNet uses to chain Sierra program felts into a class
// hash, via juno/core/crypto.PoseidonArray.
func Poseidon(elements []felt.Felt) felt.Felt {
	args := make([]*junofelt.Felt, len(elements))
	for i, e := range elements {
		args[i] = toJunoFelt(e)
	}
	return toCoreFelt(junocrypto.PoseidonArray(args...))
}

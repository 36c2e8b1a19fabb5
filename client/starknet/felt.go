// Package starknet wraps the upstream L2 JSON-RPC provider: the standard
// starknet.go client for its ordinary methods, plus a raw jsonrpc.Client
// escape hatch for the one non-standard method this whole system depends
// on, `pathfinder_getProof`.
package starknet

import (
	junofelt "github.com/NethermindEth/juno/core/felt"

	"github.com/eigerco/beerus-go/core/felt"
)

// starknet.go's RPC surface speaks juno's core/felt.Felt directly (the same
// pairing other_examples shows in production: a juno felt.Felt passed
// straight into an NethermindEth/starknet.go/rpc.Provider call). Beerus
// keeps its own core/felt.Felt as the domain type everywhere else (it owns
// the field arithmetic this repo's verifier needs), so this boundary
// converts between the two on every provider call.

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

func toCoreFelts(fs []*junofelt.Felt) []felt.Felt {
	out := make([]felt.Felt, len(fs))
	for i, f := range fs {
		out[i] = toCoreFelt(f)
	}
	return out
}

func toJunoFelts(fs []felt.Felt) []*junofelt.Felt {
	out := make([]*junofelt.Felt, len(fs))
	for i, f := range fs {
		out[i] = toJunoFelt(f)
	}
	return out
}

// Package proof layers the StarkNet-specific contract-state commitment on
// top of core/trie's generic binary Patricia-Merkle verifier: composing a
// contract's state hash, walking the two-level (contract trie over storage
// tries) proof a provider returns for `pathfinder_getProof`, and reporting
// per-slot membership outcomes.
package proof

import (
	"github.com/eigerco/beerus-go/core/crypto"
	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/core/trie"
)

// StorageSlot is one key/value/proof triple requested alongside a contract's
// proof, matching one entry of GetProofOutput.ContractData.StorageProofs.
type StorageSlot struct {
	Key   felt.Felt
	Value felt.Felt
	Proof []trie.Node
}

// ContractData is the wire shape of the `pathfinder_getProof` response's
// per-contract payload.
type ContractData struct {
	ClassHash        felt.Felt
	Nonce            felt.Felt
	Root             felt.Felt
	StateHashVersion felt.Felt
	StorageProofs    []StorageSlot
}

// GetProofOutput is the full response to a `pathfinder_getProof` call: a
// membership (or non-membership) proof for the contract itself in the
// global state trie, plus its per-slot storage proofs if deployed.
type GetProofOutput struct {
	ContractProof []trie.Node
	ContractData  *ContractData // nil means the contract is claimed not deployed
}

// ContractStateHash composes the leaf value stored in the global state trie
// for one contract, per the StarkNet commitment scheme:
//
//	a := Pedersen(classHash, root)
//	b := Pedersen(a, nonce)
//	stateHash := Pedersen(b, version)
func ContractStateHash(classHash, root, nonce, version felt.Felt) felt.Felt {
	a := crypto.Pedersen(classHash, root)
	b := crypto.Pedersen(a, nonce)
	return crypto.Pedersen(b, version)
}

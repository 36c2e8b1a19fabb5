package proof_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/core/proof"
	"github.com/eigerco/beerus-go/core/trie"
)

// bitsToFeltBE right-aligns a most-significant-bit-first bit slice into a
// Felt's low bits, the layout trie.Path expects for its Value.
func bitsToFeltBE(bits []bool) felt.Felt {
	var buf [32]byte
	n := len(bits)
	for i, b := range bits {
		if !b {
			continue
		}
		pos := n - 1 - i
		byteIdx := 31 - pos/8
		bitIdx := uint(pos % 8)
		buf[byteIdx] |= 1 << bitIdx
	}
	return felt.SetBytesBE(buf)
}

// singleEdgeProof returns a one-node proof spanning all of key directly to
// value, plus the root hash that proof produces.
func singleEdgeProof(key [trie.MaxPathLen]bool, value felt.Felt) (felt.Felt, []trie.Node) {
	path := trie.Path{Value: bitsToFeltBE(key[:]), Len: trie.MaxPathLen}
	node := trie.NewEdgeNode(trie.Edge{Path: path, Child: value})
	return node.Hash(), []trie.Node{node}
}

// divergingEdgeProof returns a one-node proof whose path matches key's first
// few bits then diverges, a valid non-membership witness for key.
func divergingEdgeProof(key [trie.MaxPathLen]bool) (felt.Felt, []trie.Node) {
	const segLen = 4
	diverged := make([]bool, segLen)
	copy(diverged, key[:segLen])
	diverged[segLen-1] = !diverged[segLen-1]

	path := trie.Path{Value: bitsToFeltBE(diverged), Len: segLen}
	node := trie.NewEdgeNode(trie.Edge{Path: path, Child: felt.FromUint64(0xdead)})
	return node.Hash(), []trie.Node{node}
}

func TestContractStateHashIsDeterministicAndSensitive(t *testing.T) {
	classHash, _ := felt.FromHex("0x1")
	root, _ := felt.FromHex("0x2")
	nonce, _ := felt.FromHex("0x0")
	version := felt.Zero

	h1 := proof.ContractStateHash(classHash, root, nonce, version)
	h2 := proof.ContractStateHash(classHash, root, nonce, version)
	assert.True(t, h1.Equal(h2))

	otherNonce, _ := felt.FromHex("0x1")
	h3 := proof.ContractStateHash(classHash, root, otherNonce, version)
	assert.False(t, h1.Equal(h3))
}

func TestVerifyContractMembershipAndSlots(t *testing.T) {
	address, _ := felt.FromHex("0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	classHash, _ := felt.FromHex("0x1234")
	nonce := felt.Zero
	version := felt.Zero

	slotKey, _ := felt.FromHex("0xd4daccb5bc077d40279ee559dc950ff0e5a7d1e139b3e3ab7e1b8dd8b997a7")
	slotValue, _ := felt.FromHex("0x17e3b52ef2aa6a")
	contractRoot, slotProof := singleEdgeProof(slotKey.TrieKeyBits(), slotValue)

	stateHash := proof.ContractStateHash(classHash, contractRoot, nonce, version)
	globalRoot, contractProof := singleEdgeProof(address.TrieKeyBits(), stateHash)

	out := proof.GetProofOutput{
		ContractProof: contractProof,
		ContractData: &proof.ContractData{
			ClassHash:        classHash,
			Nonce:            nonce,
			Root:             contractRoot,
			StateHashVersion: version,
			StorageProofs: []proof.StorageSlot{
				{Key: slotKey, Value: slotValue, Proof: slotProof},
			},
		},
	}

	results, err := proof.VerifyContract(globalRoot, address, out)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, trie.Member, results[0].Membership)
	assert.True(t, results[0].Value.Equal(slotValue))
}

func TestVerifyContractNotDeployed(t *testing.T) {
	address, _ := felt.FromHex("0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	root, proofNodes := divergingEdgeProof(address.TrieKeyBits())

	out := proof.GetProofOutput{ContractProof: proofNodes, ContractData: nil}
	_, err := proof.VerifyContract(root, address, out)
	assert.ErrorIs(t, err, proof.ErrContractNotDeployed)
}

func TestVerifySlotsDetectsTamperedValue(t *testing.T) {
	key, _ := felt.FromHex("0x1")
	value := felt.FromUint64(42)
	contractRoot, slotProof := singleEdgeProof(key.TrieKeyBits(), value)

	classHash := felt.FromUint64(1)
	nonce := felt.Zero
	version := felt.Zero
	stateHash := proof.ContractStateHash(classHash, contractRoot, nonce, version)

	address, _ := felt.FromHex("0x2")
	globalRoot, contractProof := singleEdgeProof(address.TrieKeyBits(), stateHash)

	out := proof.GetProofOutput{
		ContractProof: contractProof,
		ContractData: &proof.ContractData{
			ClassHash: classHash, Nonce: nonce, Root: contractRoot, StateHashVersion: version,
			StorageProofs: []proof.StorageSlot{
				{Key: key, Value: felt.FromUint64(43), Proof: slotProof}, // tampered
			},
		},
	}

	_, err := proof.VerifyContract(globalRoot, address, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, trie.ErrHashMismatch)
}

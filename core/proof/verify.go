package proof

import (
	"errors"

	"github.com/sourcegraph/conc/pool"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/core/trie"
)

// maxParallelSlots bounds how many storage-slot proofs are verified at once
// per GetProofOutput; the slots are independent but a malicious or buggy
// provider could hand back thousands of them in one response.
const maxParallelSlots = 16

// ErrContractNotDeployed is returned when the contract membership proof is a
// valid NonMember witness: the address is not deployed at this root.
var ErrContractNotDeployed = errors.New("proof: contract not deployed at this root")

// SlotResult is the verified outcome for one requested storage key.
type SlotResult struct {
	Key        felt.Felt
	Value      felt.Felt
	Membership trie.Membership
}

// VerifyContract checks a GetProofOutput against a previously anchored
// global state root and contract address, per the contract-state-hash
// composition and the membership walk it sits on top of.
//
// If the contract is not deployed (a valid NonMember witness for the
// contract proof), it returns (nil, ErrContractNotDeployed). Any other
// verification failure is a hash mismatch or malformed proof from
// core/trie, surfaced unchanged: the caller must treat it as fatal for the
// request, never falling back to the unverified provider value.
func VerifyContract(root felt.Felt, address felt.Felt, out GetProofOutput) ([]SlotResult, error) {
	addrBits := address.TrieKeyBits()

	if out.ContractData == nil {
		// No contract data was returned at all; still require a valid
		// non-membership witness for the address before trusting "absent".
		m, err := trie.Verify(root, addrBits, felt.Zero, out.ContractProof)
		if err != nil {
			return nil, err
		}
		if m == trie.Member {
			return nil, trie.ErrMalformedProof
		}
		return nil, ErrContractNotDeployed
	}

	cd := out.ContractData
	stateHash := ContractStateHash(cd.ClassHash, cd.Root, cd.Nonce, cd.StateHashVersion)

	m, err := trie.Verify(root, addrBits, stateHash, out.ContractProof)
	if err != nil {
		return nil, err
	}
	if m == trie.NonMember {
		return nil, ErrContractNotDeployed
	}

	return verifySlots(cd.Root, cd.StorageProofs)
}

// verifySlots checks each storage slot's proof against the contract's
// storage root. The slots are independent: a bounded worker pool runs them
// concurrently rather than a sequential loop. If any slot fails, no results
// are returned and the error joins every slot failure.
func verifySlots(contractRoot felt.Felt, slots []StorageSlot) ([]SlotResult, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	p := pool.NewWithResults[SlotResult]().WithMaxGoroutines(maxParallelSlots).WithErrors()
	for _, slot := range slots {
		slot := slot
		p.Go(func() (SlotResult, error) {
			keyBits := slot.Key.TrieKeyBits()
			m, err := trie.Verify(contractRoot, keyBits, slot.Value, slot.Proof)
			if err != nil {
				return SlotResult{}, err
			}
			return SlotResult{Key: slot.Key, Value: slot.Value, Membership: m}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	return results, nil
}

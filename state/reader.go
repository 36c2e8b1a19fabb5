// Package state serves on-demand, proof-verified reads of storage values,
// nonces, class hashes, and contract classes against the current L1
// anchor, with an LRU class cache so repeated calls into the same class
// don't repeat a full provider round trip and proof walk.
package state

import (
	"context"
	"errors"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/eigerco/beerus-go/client/starknet"
	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/core/proof"
	"github.com/eigerco/beerus-go/core/trie"
	"github.com/eigerco/beerus-go/l1"
	"github.com/eigerco/beerus-go/metrics"
)

// ErrNotSynced means the anchor has not completed its first sync yet.
var ErrNotSynced = errors.New("state: anchor not synced")

// ErrContractNotFound means the provider's proof is a valid non-membership
// witness: no contract is deployed at the requested address at this root.
var ErrContractNotFound = errors.New("state: contract not found")

// ErrClassHashNotFound means the upstream reported no class for this hash
// at the current anchor. Once that has happened, later lookups of the same
// hash at the same anchor root are answered from the bloom filter below
// instead of another provider round trip.
var ErrClassHashNotFound = errors.New("state: class hash not found")

// classCacheCapacity bounds the LRU class cache; 1024 matches a single
// large StarkNet block's distinct class count with room to spare.
const classCacheCapacity = 1024

// absentClassesEstimate/FP size the bloom filter tracking class hashes
// already proven absent at the current anchor root, so a burst of
// `getClass` calls for the same undeployed hash doesn't each pay for a
// full provider round trip before failing.
const (
	absentClassesEstimate = 1024
	absentClassesFP       = 0.01
)

type classCacheKey struct {
	blockHash felt.Felt
	classHash felt.Felt
}

// Reader answers the contract-execution engine's synchronous-feeling
// queries, verifying every answer against the current l1.Anchor before
// returning it.
type Reader struct {
	provider *starknet.Provider
	anchor   *l1.Anchor
	metrics  *metrics.Registry

	classCache *lru.Cache[classCacheKey, []byte]
	sf         singleflight.Group

	absentMu      sync.Mutex
	absentRoot    felt.Felt
	absentClasses *bloom.BloomFilter
}

// NewReader constructs a Reader backed by provider and anchored by anchor.
func NewReader(provider *starknet.Provider, anchor *l1.Anchor, m *metrics.Registry) (*Reader, error) {
	cache, err := lru.New[classCacheKey, []byte](classCacheCapacity)
	if err != nil {
		return nil, err
	}
	return &Reader{
		provider:      provider,
		anchor:        anchor,
		metrics:       m,
		classCache:    cache,
		absentClasses: bloom.NewWithEstimates(absentClassesEstimate, absentClassesFP),
	}, nil
}

// classProvenAbsent reports whether classHash was already proven absent at
// root. A root change invalidates the filter: a class absent at one
// anchored state may have since been declared.
func (r *Reader) classProvenAbsent(root, classHash felt.Felt) bool {
	r.absentMu.Lock()
	defer r.absentMu.Unlock()
	if !root.Equal(r.absentRoot) {
		r.absentClasses.ClearAll()
		r.absentRoot = root
		return false
	}
	b := classHash.Bytes()
	return r.absentClasses.Test(b[:])
}

// markClassAbsent records classHash as proven absent at root.
func (r *Reader) markClassAbsent(root, classHash felt.Felt) {
	r.absentMu.Lock()
	defer r.absentMu.Unlock()
	if !root.Equal(r.absentRoot) {
		r.absentClasses.ClearAll()
		r.absentRoot = root
	}
	b := classHash.Bytes()
	r.absentClasses.Add(b[:])
}

// currentAnchor returns the anchor snapshot or ErrNotSynced.
func (r *Reader) currentAnchor() (l1.State, error) {
	state, ready := r.anchor.Current()
	if !ready {
		return l1.State{}, ErrNotSynced
	}
	return state, nil
}

// verifyContract fetches address's proof at the anchor and verifies it,
// returning the per-slot results for keys (may be empty).
func (r *Reader) verifyContract(ctx context.Context, anchorState l1.State, address felt.Felt, keys []felt.Felt) ([]proof.SlotResult, error) {
	block := starknet.AtNumber(anchorState.BlockNumber)
	out, err := r.provider.GetProof(ctx, block, address, keys)
	if err != nil {
		return nil, err
	}

	results, err := proof.VerifyContract(anchorState.Root, address, out)
	if err != nil {
		if errors.Is(err, proof.ErrContractNotDeployed) {
			return nil, ErrContractNotFound
		}
		r.metrics.VerificationFailureTotal.Inc()
		return nil, err
	}
	return results, nil
}

// StorageAt returns the verified value at (address, key). An uninitialised
// slot verifies as NonMember and returns felt.Zero: non-existence of a
// slot is not an error, only non-existence of the contract is.
func (r *Reader) StorageAt(ctx context.Context, address, key felt.Felt) (felt.Felt, error) {
	anchorState, err := r.currentAnchor()
	if err != nil {
		return felt.Felt{}, err
	}

	results, err := r.verifyContract(ctx, anchorState, address, []felt.Felt{key})
	if err != nil {
		return felt.Felt{}, err
	}
	// Exactly one slot proof, for the requested key, must come back.
	if len(results) != 1 || !results[0].Key.Equal(key) {
		r.metrics.VerificationFailureTotal.Inc()
		return felt.Felt{}, trie.ErrMalformedProof
	}
	if results[0].Membership == trie.NonMember {
		return felt.Zero, nil
	}
	return results[0].Value, nil
}

// Nonce returns the verified nonce of address, or ErrContractNotFound if
// address is not deployed at the anchor.
func (r *Reader) Nonce(ctx context.Context, address felt.Felt) (felt.Felt, error) {
	anchorState, err := r.currentAnchor()
	if err != nil {
		return felt.Felt{}, err
	}

	block := starknet.AtNumber(anchorState.BlockNumber)
	out, err := r.provider.GetProof(ctx, block, address, nil)
	if err != nil {
		return felt.Felt{}, err
	}
	if _, err := proof.VerifyContract(anchorState.Root, address, out); err != nil {
		if errors.Is(err, proof.ErrContractNotDeployed) {
			return felt.Felt{}, ErrContractNotFound
		}
		r.metrics.VerificationFailureTotal.Inc()
		return felt.Felt{}, err
	}
	return out.ContractData.Nonce, nil
}

// ClassHashAt returns the verified class hash deployed at address, or
// ErrContractNotFound.
func (r *Reader) ClassHashAt(ctx context.Context, address felt.Felt) (felt.Felt, error) {
	anchorState, err := r.currentAnchor()
	if err != nil {
		return felt.Felt{}, err
	}

	block := starknet.AtNumber(anchorState.BlockNumber)
	out, err := r.provider.GetProof(ctx, block, address, nil)
	if err != nil {
		return felt.Felt{}, err
	}
	if _, err := proof.VerifyContract(anchorState.Root, address, out); err != nil {
		if errors.Is(err, proof.ErrContractNotDeployed) {
			return felt.Felt{}, ErrContractNotFound
		}
		r.metrics.VerificationFailureTotal.Inc()
		return felt.Felt{}, err
	}
	return out.ContractData.ClassHash, nil
}

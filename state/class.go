package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eigerco/beerus-go/client/starknet"
	"github.com/eigerco/beerus-go/core/crypto"
	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/jsonrpc"
)

// classHashNotFoundCode is the starknet-specs application error code an
// upstream provider returns for `starknet_getClass` on an undeployed hash.
const classHashNotFoundCode = 28

// ErrClassHashMismatch means the class JSON the provider returned does not
// hash to the class hash it was fetched for: the provider handed back
// bytecode for a different contract.
var ErrClassHashMismatch = errors.New("state: class hash mismatch")

// sierraSelectors is the minimal shape of a Sierra contract class needed to
// recompute its class hash: the flattened felt program plus its entry
// point selectors, in declaration order. Legacy (pre-Sierra) classes carry
// no sierra_program and hash over their selectors alone.
type sierraSelectors struct {
	SierraProgram     []string `json:"sierra_program"`
	EntryPointsByType struct {
		External    []entryPointWire `json:"EXTERNAL"`
		L1Handler   []entryPointWire `json:"L1_HANDLER"`
		Constructor []entryPointWire `json:"CONSTRUCTOR"`
	} `json:"entry_points_by_type"`
}

type entryPointWire struct {
	Selector string `json:"selector"`
}

// recomputeClassHash hashes raw's program components with Poseidon, to be
// checked against the requested class hash before a fetched class is
// trusted.
func recomputeClassHash(raw []byte) (felt.Felt, error) {
	var class sierraSelectors
	if err := json.Unmarshal(raw, &class); err != nil {
		return felt.Felt{}, fmt.Errorf("state: decoding class for hashing: %w", err)
	}

	elements := make([]felt.Felt, 0, len(class.SierraProgram)+8)
	for _, hex := range class.SierraProgram {
		f, err := felt.FromHex(hex)
		if err != nil {
			return felt.Felt{}, fmt.Errorf("state: decoding sierra_program entry: %w", err)
		}
		elements = append(elements, f)
	}

	appendSelectors := func(eps []entryPointWire) error {
		for _, ep := range eps {
			f, err := felt.FromHex(ep.Selector)
			if err != nil {
				return fmt.Errorf("state: decoding entry point selector: %w", err)
			}
			elements = append(elements, f)
		}
		return nil
	}
	for _, eps := range [][]entryPointWire{
		class.EntryPointsByType.External,
		class.EntryPointsByType.L1Handler,
		class.EntryPointsByType.Constructor,
	} {
		if err := appendSelectors(eps); err != nil {
			return felt.Felt{}, err
		}
	}

	if len(elements) == 0 {
		elements = []felt.Felt{felt.Zero}
	}
	return crypto.Poseidon(elements), nil
}

// Class fetches, hash-verifies, and caches classHash's definition as of the
// current anchor's block. Concurrent callers requesting the same
// (block_hash, class_hash) collapse into a single provider round trip via
// singleflight.
func (r *Reader) Class(ctx context.Context, classHash felt.Felt) ([]byte, error) {
	anchorState, err := r.currentAnchor()
	if err != nil {
		return nil, err
	}
	return r.classAtBlock(ctx, anchorState.BlockNumber, anchorState.BlockHash, classHash)
}

// ClassAt resolves address's currently deployed class hash, then returns
// its hash-verified class definition.
func (r *Reader) ClassAt(ctx context.Context, address felt.Felt) ([]byte, error) {
	classHash, err := r.ClassHashAt(ctx, address)
	if err != nil {
		return nil, err
	}
	return r.Class(ctx, classHash)
}

func (r *Reader) classAtBlock(ctx context.Context, blockNumber uint64, blockHash, classHash felt.Felt) ([]byte, error) {
	key := classCacheKey{blockHash: blockHash, classHash: classHash}
	if cached, ok := r.classCache.Get(key); ok {
		return copyBytes(cached), nil
	}

	anchorState, err := r.currentAnchor()
	if err != nil {
		return nil, err
	}
	if r.classProvenAbsent(anchorState.Root, classHash) {
		return nil, ErrClassHashNotFound
	}

	sfKey := fmt.Sprintf("%s:%s", blockHash.ToHex(), classHash.ToHex())
	v, err, _ := r.sf.Do(sfKey, func() (any, error) {
		block := starknet.AtNumber(blockNumber)
		raw, err := r.provider.ContractClass(ctx, block, classHash)
		if err != nil {
			if isClassHashNotFound(err) {
				r.markClassAbsent(anchorState.Root, classHash)
				return nil, ErrClassHashNotFound
			}
			return nil, err
		}

		computed, err := recomputeClassHash(raw)
		if err != nil {
			return nil, err
		}
		if !computed.Equal(classHash) {
			r.metrics.VerificationFailureTotal.Inc()
			return nil, ErrClassHashMismatch
		}

		r.classCache.Add(key, []byte(raw))
		return []byte(raw), nil
	})
	if err != nil {
		return nil, err
	}
	return copyBytes(v.([]byte)), nil
}

// isClassHashNotFound reports whether err wraps the upstream's
// ClassHashNotFound application error.
func isClassHashNotFound(err error) bool {
	var rpcErr *jsonrpc.Error
	return errors.As(err, &rpcErr) && rpcErr.Code == classHashNotFoundCode
}

// copyBytes returns an independent copy of b so callers can't mutate a
// cached class definition through an aliased return value.
func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

package starknet

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/core/proof"
	"github.com/eigerco/beerus-go/core/trie"
)

// proofNodeWire is the externally-tagged wire shape of a ProofNode: exactly
// one of Binary or Edge is non-nil, matching pathfinder's
// `#[serde(rename_all = "snake_case")] enum ProofNode { Binary(..), Edge(..) }`.
type proofNodeWire struct {
	Binary *binaryWire `json:"binary,omitempty"`
	Edge   *edgeWire   `json:"edge,omitempty"`
}

type binaryWire struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type pathWire struct {
	Value string `json:"value"`
	Len   uint8  `json:"len"`
}

type edgeWire struct {
	Path  pathWire `json:"path"`
	Child string   `json:"child"`
}

func (w proofNodeWire) toNode() (trie.Node, error) {
	switch {
	case w.Binary != nil:
		left, err := felt.FromHex(w.Binary.Left)
		if err != nil {
			return nil, errors.Wrap(err, "decoding binary.left")
		}
		right, err := felt.FromHex(w.Binary.Right)
		if err != nil {
			return nil, errors.Wrap(err, "decoding binary.right")
		}
		return trie.NewBinaryNode(trie.Binary{Left: left, Right: right}), nil

	case w.Edge != nil:
		value, err := felt.FromHex(w.Edge.Path.Value)
		if err != nil {
			return nil, errors.Wrap(err, "decoding edge.path.value")
		}
		child, err := felt.FromHex(w.Edge.Child)
		if err != nil {
			return nil, errors.Wrap(err, "decoding edge.child")
		}
		return trie.NewEdgeNode(trie.Edge{
			Path:  trie.Path{Value: value, Len: w.Edge.Path.Len},
			Child: child,
		}), nil

	default:
		return nil, fmt.Errorf("proof node has neither binary nor edge variant set")
	}
}

func decodeProofNodes(raw []proofNodeWire) ([]trie.Node, error) {
	out := make([]trie.Node, len(raw))
	for i, w := range raw {
		n, err := w.toNode()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

type storageSlotWire struct {
	Key   string          `json:"key"`
	Value string          `json:"value"`
	Proof []proofNodeWire `json:"proof"`
}

type contractDataWire struct {
	ClassHash        string            `json:"class_hash"`
	Nonce            string            `json:"nonce"`
	Root             string            `json:"root"`
	StateHashVersion string            `json:"contract_state_hash_version"`
	StorageProofs    []storageSlotWire `json:"storage_proofs"`
}

type getProofOutputWire struct {
	ContractProof []proofNodeWire   `json:"contract_proof"`
	ContractData  *contractDataWire `json:"contract_data"`
}

// GetProof calls the one non-standard method this entire system depends
// on: `pathfinder_getProof(block_id, contract_address, keys[])`, returning
// the two-level (contract trie over storage tries) membership proof spec
// §4.2 verifies.
func (p *Provider) GetProof(ctx context.Context, block BlockID, address felt.Felt, keys []felt.Felt) (proof.GetProofOutput, error) {
	keyHexes := make([]string, len(keys))
	for i, k := range keys {
		keyHexes[i] = k.ToHex()
	}

	var wire getProofOutputWire
	params := []any{block, address.ToHex(), keyHexes}
	if err := p.raw.Call(ctx, "pathfinder_getProof", params, &wire, true); err != nil {
		return proof.GetProofOutput{}, errors.Wrap(err, "starknet: pathfinder_getProof")
	}

	contractProof, err := decodeProofNodes(wire.ContractProof)
	if err != nil {
		return proof.GetProofOutput{}, errors.Wrap(err, "decoding contract_proof")
	}

	out := proof.GetProofOutput{ContractProof: contractProof}
	if wire.ContractData == nil {
		return out, nil
	}

	cd := wire.ContractData
	classHash, err := felt.FromHex(cd.ClassHash)
	if err != nil {
		return proof.GetProofOutput{}, errors.Wrap(err, "decoding class_hash")
	}
	nonce, err := felt.FromHex(cd.Nonce)
	if err != nil {
		return proof.GetProofOutput{}, errors.Wrap(err, "decoding nonce")
	}
	root, err := felt.FromHex(cd.Root)
	if err != nil {
		return proof.GetProofOutput{}, errors.Wrap(err, "decoding root")
	}
	version, err := felt.FromHex(cd.StateHashVersion)
	if err != nil {
		return proof.GetProofOutput{}, errors.Wrap(err, "decoding contract_state_hash_version")
	}

	slots := make([]proof.StorageSlot, len(cd.StorageProofs))
	for i, s := range cd.StorageProofs {
		key, err := felt.FromHex(s.Key)
		if err != nil {
			return proof.GetProofOutput{}, errors.Wrapf(err, "decoding storage_proofs[%d].key", i)
		}
		value, err := felt.FromHex(s.Value)
		if err != nil {
			return proof.GetProofOutput{}, errors.Wrapf(err, "decoding storage_proofs[%d].value", i)
		}
		slotProof, err := decodeProofNodes(s.Proof)
		if err != nil {
			return proof.GetProofOutput{}, errors.Wrapf(err, "decoding storage_proofs[%d].proof", i)
		}
		slots[i] = proof.StorageSlot{Key: key, Value: value, Proof: slotProof}
	}

	out.ContractData = &proof.ContractData{
		ClassHash:        classHash,
		Nonce:            nonce,
		Root:             root,
		StateHashVersion: version,
		StorageProofs:    slots,
	}
	return out, nil
}

package starknet

import (
	"encoding/json"
	"errors"

	"github.com/eigerco/beerus-go/core/felt"
)

// BlockID selects which L2 block a provider call is scoped to. Exactly one
// of Number, Hash, Latest, or Pending is set.
type BlockID struct {
	Number  *uint64
	Hash    *felt.Felt
	Latest  bool
	Pending bool
}

// AtNumber builds a BlockID pinned to a specific block number, the form
// every verified read uses once the mediator has overridden the caller's
// requested block with the anchor's.
func AtNumber(n uint64) BlockID { return BlockID{Number: &n} }

// Latest and Pending are the two block tags a caller may request directly;
// Pending is rejected by the mediator before it ever reaches a provider
// call made on behalf of a verified method.
func Latest() BlockID  { return BlockID{Latest: true} }
func Pending() BlockID { return BlockID{Pending: true} }

// ErrAmbiguousBlockID means no selector field was set.
var ErrAmbiguousBlockID = errors.New("starknet: no block selector set")

// MarshalJSON renders the wire shape starknet-specs uses for `BLOCK_ID`:
// either a tag string or a {block_number: n} / {block_hash: h} object.
func (b BlockID) MarshalJSON() ([]byte, error) {
	switch {
	case b.Latest:
		return json.Marshal("latest")
	case b.Pending:
		return json.Marshal("pending")
	case b.Number != nil:
		return json.Marshal(struct {
			BlockNumber uint64 `json:"block_number"`
		}{*b.Number})
	case b.Hash != nil:
		return json.Marshal(struct {
			BlockHash string `json:"block_hash"`
		}{b.Hash.ToHex()})
	default:
		return nil, ErrAmbiguousBlockID
	}
}

// UnmarshalJSON accepts the same three wire shapes MarshalJSON produces, so
// a BlockID can round-trip through a caller-supplied request parameter.
func (b *BlockID) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch tag {
		case "latest":
			*b = Latest()
		case "pending":
			*b = Pending()
		default:
			return errors.New("starknet: unknown block tag " + tag)
		}
		return nil
	}

	var byNumber struct {
		BlockNumber *uint64 `json:"block_number"`
	}
	if err := json.Unmarshal(data, &byNumber); err == nil && byNumber.BlockNumber != nil {
		*b = AtNumber(*byNumber.BlockNumber)
		return nil
	}

	var byHash struct {
		BlockHash string `json:"block_hash"`
	}
	if err := json.Unmarshal(data, &byHash); err == nil && byHash.BlockHash != "" {
		h, err := felt.FromHex(byHash.BlockHash)
		if err != nil {
			return err
		}
		*b = BlockID{Hash: &h}
		return nil
	}

	return ErrAmbiguousBlockID
}

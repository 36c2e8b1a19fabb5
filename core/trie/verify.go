package trie

import (
	"errors"

	"github.com/eigerco/beerus-go/core/felt"
)

// Membership is the outcome of walking a proof to its claimed key.
type Membership int

const (
	// Member means the proof hashes up to root and terminates at value.
	Member Membership = iota
	// NonMember means the proof's edge diverges from the key before
	// reaching a leaf: a valid witness that no value exists there.
	NonMember
)

func (m Membership) String() string {
	if m == Member {
		return "Member"
	}
	return "NonMember"
}

// Sentinel verification failures returned by Verify.
var (
	// ErrHashMismatch means some node's claimed hash does not match the
	// hash the verifier computed, or the final hash does not match the
	// claimed value. The provider gave us data inconsistent with the
	// anchor; never return the value anyway.
	ErrHashMismatch = errors.New("trie: hash mismatch")
	// ErrMalformedProof means the proof ran out of key bits before an
	// edge's path was satisfied, or is otherwise structurally invalid.
	ErrMalformedProof = errors.New("trie: malformed proof")
)

// Verify walks proof starting from root against keyBits (the low 251
// significant bits of a Felt, most-significant-first), and determines
// whether value is present at that key.
//
// Algorithm: maintain (expectedHash, remaining) starting at
// (root, keyBits). For each node: its hash must equal expectedHash or the
// proof is rejected outright. A Binary node consumes one bit of remaining
// and selects a child. An Edge node must match remaining's next Len bits;
// a mismatch is a valid non-membership witness, a match consumes Len bits
// and descends to the edge's child. At the end, expectedHash must equal
// value for membership.
func Verify(root felt.Felt, keyBits [MaxPathLen]bool, value felt.Felt, proof []Node) (Membership, error) {
	expected := root
	remaining := keyBits[:]

	for _, node := range proof {
		if !node.Hash().Equal(expected) {
			return 0, ErrHashMismatch
		}

		switch n := node.(type) {
		case binaryNode:
			if len(remaining) < 1 {
				return 0, ErrMalformedProof
			}
			if remaining[0] {
				expected = n.Right
			} else {
				expected = n.Left
			}
			remaining = remaining[1:]

		case edgeNode:
			segLen := int(n.Path.Len)
			if segLen > len(remaining) {
				return 0, ErrMalformedProof
			}
			if !pathMatches(n.Path, remaining[:segLen]) {
				return NonMember, nil
			}
			expected = n.Child
			remaining = remaining[segLen:]

		default:
			return 0, ErrMalformedProof
		}
	}

	if expected.Equal(value) {
		return Member, nil
	}
	return 0, ErrHashMismatch
}

func pathMatches(p Path, remaining []bool) bool {
	bits := p.bitsBE()
	if len(bits) != len(remaining) {
		return false
	}
	for i := range bits {
		if bits[i] != remaining[i] {
			return false
		}
	}
	return true
}

// Package trie implements the generic binary Patricia-Merkle trie proof
// model and verifier StarkNet's state commitment is built from: Edge and
// Binary nodes, hashed with Pedersen, walked bit-by-bit against a key.
//
// This package knows nothing about contracts, storage slots, or the
// StarkNet-specific contract-state-hash composition; core/proof builds on
// top of it for that.
package trie

import (
	"fmt"

	"github.com/eigerco/beerus-go/core/crypto"
	"github.com/eigerco/beerus-go/core/felt"
)

// MaxPathLen is the widest a trie key segment can be: the low 251
// significant bits of a Felt.
const MaxPathLen = 251

// Path is a compressed key segment: the low `Len` bits of Value are
// significant, all higher bits are zero.
type Path struct {
	Value felt.Felt
	Len   uint8
}

// Equal reports whether two paths denote the same segment.
func (p Path) Equal(o Path) bool {
	return p.Len == o.Len && p.Value.Equal(o.Value)
}

// bitsBE returns the Len most-significant-first bits of the path's value.
func (p Path) bitsBE() []bool {
	full := p.Value.BitsBE()
	return full[felt.Bits-int(p.Len):]
}

// Binary is an interior trie node with two children.
type Binary struct {
	Left, Right felt.Felt
}

// Hash returns Pedersen(left, right).
func (b Binary) Hash() felt.Felt {
	return crypto.Pedersen(b.Left, b.Right)
}

// Edge is a compressed chain of single-child Binary nodes, represented as
// one child hash plus the path skipped to reach it.
type Edge struct {
	Path  Path
	Child felt.Felt
}

// Hash returns Pedersen(child, path.Value) + Felt(path.Len), field
// addition rather than concatenation, per the StarkNet trie definition.
func (e Edge) Hash() felt.Felt {
	h := crypto.Pedersen(e.Child, e.Path.Value)
	return h.Add(felt.FromUint64(uint64(e.Path.Len)))
}

// Node is a tagged union of Binary and Edge, the two proof node kinds.
type Node interface {
	Hash() felt.Felt
	isNode()
}

type binaryNode struct{ Binary }
type edgeNode struct{ Edge }

func (binaryNode) isNode() {}
func (edgeNode) isNode()   {}

// NewBinaryNode wraps a Binary as a Node.
func NewBinaryNode(b Binary) Node { return binaryNode{b} }

// NewEdgeNode wraps an Edge as a Node.
func NewEdgeNode(e Edge) Node { return edgeNode{e} }

// AsBinary type-asserts a Node to its Binary payload.
func AsBinary(n Node) (Binary, bool) {
	b, ok := n.(binaryNode)
	return b.Binary, ok
}

// AsEdge type-asserts a Node to its Edge payload.
func AsEdge(n Node) (Edge, bool) {
	e, ok := n.(edgeNode)
	return e.Edge, ok
}

func (n binaryNode) String() string {
	return fmt.Sprintf("Binary{left:%s right:%s}", n.Left, n.Right)
}

func (n edgeNode) String() string {
	return fmt.Sprintf("Edge{path:%d/%s child:%s}", n.Path.Len, n.Path.Value, n.Child)
}

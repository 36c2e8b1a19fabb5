// Package felt implements the 252-bit StarkNet field element used as the
// atomic value type throughout Beerus: trie keys, trie values, block
// hashes, contract addresses and class hashes are all Felts.
package felt

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Bits is the width of the big-endian bit view returned by BitsBE.
const Bits = 256

// Felt is a field element modulo the StarkNet prime
// 2**251 + 17*2**192 + 1, stored in Montgomery form via fp.Element.
type Felt struct {
	impl fp.Element
}

// Zero is the additive identity.
var Zero = Felt{}

// InvalidFeltError is returned when a hex string does not parse into a
// canonical field element (malformed, or out of range of the modulus).
type InvalidFeltError struct {
	Input string
	Err   error
}

func (e *InvalidFeltError) Error() string {
	return fmt.Sprintf("invalid felt %q: %v", e.Input, e.Err)
}

func (e *InvalidFeltError) Unwrap() error { return e.Err }

// FromHex parses a `0x`-prefixed hex string into a Felt. The input must be
// `0x` (or `0X`) followed by one or more hex digits with no separators, and
// its value must be below the field modulus.
func FromHex(s string) (Felt, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == s {
		return Felt{}, &InvalidFeltError{Input: s, Err: fmt.Errorf("missing 0x prefix")}
	}
	if trimmed == "" {
		return Felt{}, &InvalidFeltError{Input: s, Err: fmt.Errorf("empty hex body")}
	}
	if len(trimmed) > 64 {
		return Felt{}, &InvalidFeltError{Input: s, Err: fmt.Errorf("exceeds 252-bit field width")}
	}
	for _, c := range trimmed {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return Felt{}, &InvalidFeltError{Input: s, Err: fmt.Errorf("non-hex character %q", c)}
		}
	}

	var f Felt
	if _, err := f.impl.SetString(s); err != nil {
		return Felt{}, &InvalidFeltError{Input: s, Err: err}
	}
	// SetString reduces modulo the prime, so an input at or above the
	// modulus comes back as a different canonical value.
	digits := strings.TrimLeft(strings.ToLower(trimmed), "0")
	if digits == "" {
		digits = "0"
	}
	if f.ToHex() != "0x"+digits {
		return Felt{}, &InvalidFeltError{Input: s, Err: fmt.Errorf("exceeds the field modulus")}
	}
	return f, nil
}

// FromUint64 builds a Felt from a small unsigned integer.
func FromUint64(v uint64) Felt {
	var f Felt
	f.impl.SetUint64(v)
	return f
}

// SetBytesBE reduces 32 big-endian bytes modulo the field prime.
func SetBytesBE(b [32]byte) Felt {
	var f Felt
	f.impl.SetBytes(b[:])
	return f
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (f Felt) Bytes() [32]byte {
	return f.impl.Bytes()
}

// ToHex renders the canonical lowercase `0x`-prefixed hex form with leading
// zeroes trimmed, except the zero value which renders as "0x0".
func (f Felt) ToHex() string {
	b := f.impl.Bytes()
	hexDigits := fmt.Sprintf("%x", b[:])
	hexDigits = strings.TrimLeft(hexDigits, "0")
	if hexDigits == "" {
		hexDigits = "0"
	}
	return "0x" + hexDigits
}

func (f Felt) String() string { return f.ToHex() }

// MarshalJSON renders the canonical hex form as a JSON string, matching the
// wire format of every StarkNet JSON-RPC method this client speaks.
func (f Felt) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ToHex())
}

// UnmarshalJSON accepts either a `0x`-prefixed hex JSON string or a JSON
// number (some providers emit block numbers as felts this way).
func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n uint64
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return err
		}
		*f = FromUint64(n)
		return nil
	}
	parsed, err := FromHex(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Add returns f+g reduced modulo the field prime.
func (f Felt) Add(g Felt) Felt {
	var out Felt
	out.impl.Add(&f.impl, &g.impl)
	return out
}

// Equal reports whether f and g denote the same field element.
func (f Felt) Equal(g Felt) bool {
	return f.impl.Equal(&g.impl)
}

// IsZero reports whether f is the additive identity.
func (f Felt) IsZero() bool {
	return f.impl.IsZero()
}

// Cmp orders two Felts by their canonical big-endian byte representation.
func (f Felt) Cmp(g Felt) int {
	return f.impl.Cmp(&g.impl)
}

// BitsBE returns the 256-bit big-endian bit view of f, most-significant bit
// first. Only the low 251 bits are ever significant for a trie key; callers
// doing trie work slice off the top 5 bits themselves (BitsBE()[5:]).
func (f Felt) BitsBE() [Bits]bool {
	raw := f.impl.Bytes()
	bs := bitset.New(Bits)
	for byteIdx, b := range raw {
		for bitInByte := 0; bitInByte < 8; bitInByte++ {
			if b&(0x80>>uint(bitInByte)) != 0 {
				bs.Set(uint(byteIdx*8 + bitInByte))
			}
		}
	}
	var out [Bits]bool
	for i := 0; i < Bits; i++ {
		out[i] = bs.Test(uint(i))
	}
	return out
}

// TrieKeyBits returns the low 251 significant bits of f, most-significant
// bit first, as consumed by the binary Patricia trie walk.
func (f Felt) TrieKeyBits() [251]bool {
	all := f.BitsBE()
	var out [251]bool
	copy(out[:], all[5:])
	return out
}

// BitLen returns the number of significant bits in f (0 for the zero felt).
func (f Felt) BitLen() int {
	b := f.impl.Bytes()
	for i, byt := range b {
		if byt != 0 {
			return (len(b)-i-1)*8 + bits.Len8(byt)
		}
	}
	return 0
}

package state

import (
	"testing"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/jsonrpc"
)

func newTestBloomFilter() *bloom.BloomFilter {
	return bloom.NewWithEstimates(absentClassesEstimate, absentClassesFP)
}

func TestRecomputeClassHashIsDeterministic(t *testing.T) {
	raw := []byte(`{
		"sierra_program": ["0x1", "0x2", "0x3"],
		"entry_points_by_type": {
			"EXTERNAL": [{"selector": "0xa", "function_idx": 0}],
			"L1_HANDLER": [],
			"CONSTRUCTOR": [{"selector": "0xb", "function_idx": 1}]
		}
	}`)

	h1, err := recomputeClassHash(raw)
	require.NoError(t, err)
	h2, err := recomputeClassHash(raw)
	require.NoError(t, err)
	require.True(t, h1.Equal(h2))
	require.False(t, h1.IsZero())
}

func TestRecomputeClassHashSensitiveToProgram(t *testing.T) {
	a := []byte(`{"sierra_program": ["0x1", "0x2"], "entry_points_by_type": {"EXTERNAL": [], "L1_HANDLER": [], "CONSTRUCTOR": []}}`)
	b := []byte(`{"sierra_program": ["0x1", "0x3"], "entry_points_by_type": {"EXTERNAL": [], "L1_HANDLER": [], "CONSTRUCTOR": []}}`)

	ha, err := recomputeClassHash(a)
	require.NoError(t, err)
	hb, err := recomputeClassHash(b)
	require.NoError(t, err)
	require.False(t, ha.Equal(hb))
}

func TestRecomputeClassHashEmptyClassIsZeroElementHash(t *testing.T) {
	h, err := recomputeClassHash([]byte(`{}`))
	require.NoError(t, err)
	require.False(t, h.IsZero())
}

func TestCopyBytesIsIndependent(t *testing.T) {
	original := []byte{1, 2, 3}
	dup := copyBytes(original)
	dup[0] = 99
	require.Equal(t, byte(1), original[0])
}

func mustFelt(t *testing.T, hex string) felt.Felt {
	t.Helper()
	f, err := felt.FromHex(hex)
	require.NoError(t, err)
	return f
}

func TestClassProvenAbsentTracksCurrentRootOnly(t *testing.T) {
	r := &Reader{absentClasses: newTestBloomFilter()}
	root := mustFelt(t, "0x1")
	classHash := mustFelt(t, "0xdead")

	require.False(t, r.classProvenAbsent(root, classHash))
	r.markClassAbsent(root, classHash)
	require.True(t, r.classProvenAbsent(root, classHash))

	otherRoot := mustFelt(t, "0x2")
	require.False(t, r.classProvenAbsent(otherRoot, classHash))
}

func TestIsClassHashNotFoundMatchesUpstreamCode(t *testing.T) {
	wrapped := errors.Wrap(&jsonrpc.Error{Code: classHashNotFoundCode, Message: "class hash not found"}, "starknet: getClass")
	require.True(t, isClassHashNotFound(wrapped))
	require.False(t, isClassHashNotFound(errors.New("some other failure")))
}

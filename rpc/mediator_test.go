package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eigerco/beerus-go/client/starknet"
	"github.com/eigerco/beerus-go/core/crypto"
	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/core/trie"
	"github.com/eigerco/beerus-go/exec"
	"github.com/eigerco/beerus-go/l1"
	"github.com/eigerco/beerus-go/metrics"
	"github.com/eigerco/beerus-go/state"
)

func mustFelt(t *testing.T, hex string) felt.Felt {
	t.Helper()
	f, err := felt.FromHex(hex)
	require.NoError(t, err)
	return f
}

func TestRejectPending(t *testing.T) {
	require.Nil(t, rejectPending(starknet.Latest()))
	require.Nil(t, rejectPending(starknet.AtNumber(5)))
	require.Equal(t, errPendingNotSupported, rejectPending(starknet.Pending()))
}

func TestToRPCErrorMapsSentinels(t *testing.T) {
	require.Equal(t, errNotSynced, toRPCError(state.ErrNotSynced))
	require.Equal(t, errContractNotFound, toRPCError(state.ErrContractNotFound))
	require.Equal(t, errVerificationFailed, toRPCError(trie.ErrHashMismatch))
	require.Equal(t, errVerificationFailed, toRPCError(trie.ErrMalformedProof))
	require.Equal(t, errVerificationFailed, toRPCError(state.ErrClassHashMismatch))
	require.Equal(t, errClassHashNotFound, toRPCError(state.ErrClassHashNotFound))
	require.Nil(t, toRPCError(nil))
}

// capturingServer records the last method/params it received and answers
// with whatever canned response is registered for that method.
type capturingServer struct {
	lastMethod string
	lastParams json.RawMessage
	responses  map[string]any
}

func (s *capturingServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.lastMethod = req.Method
		s.lastParams = req.Params

		result, ok := s.responses[req.Method]
		if !ok {
			http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
			return
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

type constantStateReader struct{ state l1.State }

func (c *constantStateReader) ReadState(ctx context.Context) (l1.State, error) {
	return c.state, nil
}

func newTestMediator(t *testing.T, responses map[string]any, anchorState l1.State) (*Mediator, *capturingServer) {
	t.Helper()
	srv := &capturingServer{responses: responses}
	ts := httptest.NewServer(srv.handler(t))
	t.Cleanup(ts.Close)

	provider, err := starknet.NewProvider(ts.URL, ts.Client())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)

	anchor := l1.NewAnchor(&constantStateReader{state: anchorState}, zap.NewNop(), m)
	require.NoError(t, anchor.Start(context.Background(), time.Hour))

	reader, err := state.NewReader(provider, anchor, m)
	require.NoError(t, err)

	executor := exec.NewExecutor(reader, nil)
	med := New(anchor, provider, reader, executor, zap.NewNop(), m)
	return med, srv
}

func TestMediatorBlockNumberReturnsAnchorSnapshot(t *testing.T) {
	med, _ := newTestMediator(t, nil, l1.State{BlockNumber: 42, BlockHash: mustFelt(t, "0x1"), Root: mustFelt(t, "0x2")})

	n, rpcErr := med.blockNumber(context.Background())
	require.Nil(t, rpcErr)
	require.Equal(t, uint64(42), n)
}

func TestMediatorGetStorageAtRejectsPending(t *testing.T) {
	med, _ := newTestMediator(t, nil, l1.State{BlockNumber: 1})

	_, rpcErr := med.getStorageAt(context.Background(), mustFelt(t, "0x1"), mustFelt(t, "0x2"), starknet.Pending())
	require.Equal(t, errPendingNotSupported, rpcErr)
}

func TestMediatorGetStorageAtVerifiesAgainstAnchor(t *testing.T) {
	address := mustFelt(t, "0x1")
	key := mustFelt(t, "0x2")
	value := mustFelt(t, "0x3")
	classHash := mustFelt(t, "0xabc")
	nonce := felt.Zero

	storageEdge := trie.NewEdgeNode(trie.Edge{Path: trie.Path{Value: key, Len: trie.MaxPathLen}, Child: value})
	storageRoot := storageEdge.Hash()
	stateHash := crypto.Pedersen(crypto.Pedersen(crypto.Pedersen(classHash, storageRoot), nonce), felt.Zero)
	contractEdge := trie.NewEdgeNode(trie.Edge{Path: trie.Path{Value: address, Len: trie.MaxPathLen}, Child: stateHash})
	anchorRoot := contractEdge.Hash()

	responses := map[string]any{
		"pathfinder_getProof": map[string]any{
			"contract_proof": []any{
				map[string]any{"edge": map[string]any{
					"path":  map[string]any{"value": address.ToHex(), "len": trie.MaxPathLen},
					"child": stateHash.ToHex(),
				}},
			},
			"contract_data": map[string]any{
				"class_hash":                  classHash.ToHex(),
				"nonce":                       nonce.ToHex(),
				"root":                        storageRoot.ToHex(),
				"contract_state_hash_version": felt.Zero.ToHex(),
				"storage_proofs": []any{
					map[string]any{
						"key":   key.ToHex(),
						"value": value.ToHex(),
						"proof": []any{map[string]any{"edge": map[string]any{
							"path":  map[string]any{"value": key.ToHex(), "len": trie.MaxPathLen},
							"child": value.ToHex(),
						}}},
					},
				},
			},
		},
	}

	med, _ := newTestMediator(t, responses, l1.State{BlockNumber: 10, BlockHash: mustFelt(t, "0x99"), Root: anchorRoot})

	got, rpcErr := med.getStorageAt(context.Background(), address, key, starknet.Latest())
	require.Nil(t, rpcErr)
	require.True(t, got.Equal(value))
}

func TestMediatorForwardWithForcedBlockIDOverridesCallerBlockID(t *testing.T) {
	responses := map[string]any{
		"starknet_getBlockWithTxHashes": map[string]any{"status": "ACCEPTED_ON_L2"},
	}
	med, srv := newTestMediator(t, responses, l1.State{BlockNumber: 123})

	callerParams, err := json.Marshal([]any{"pending"})
	require.NoError(t, err)

	handler := med.forwardWithForcedBlockID("starknet_getBlockWithTxHashes")
	_, rpcErr := handler(context.Background(), callerParams)
	require.Nil(t, rpcErr)

	var forwarded []json.RawMessage
	require.NoError(t, json.Unmarshal(srv.lastParams, &forwarded))
	require.Len(t, forwarded, 1)

	var blockID starknet.BlockID
	require.NoError(t, json.Unmarshal(forwarded[0], &blockID))
	require.NotNil(t, blockID.Number)
	require.Equal(t, uint64(123), *blockID.Number)
}

func TestMediatorSpecVersionReturnsPinnedConstant(t *testing.T) {
	med, _ := newTestMediator(t, nil, l1.State{})

	version, rpcErr := med.specVersion(context.Background())
	require.Nil(t, rpcErr)
	require.Equal(t, starknet.SpecVersion, version)
}

// Package rpc implements the mediator: the dispatch table that serves the
// same JSON-RPC 0.7.1 surface as the upstream provider, answering each
// method one of four ways — proxied, anchored, verified, or executed
// locally.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eigerco/beerus-go/client/starknet"
	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/exec"
	"github.com/eigerco/beerus-go/jsonrpc"
	"github.com/eigerco/beerus-go/l1"
	"github.com/eigerco/beerus-go/metrics"
	"github.com/eigerco/beerus-go/state"
)

// Mediator wires the verified-read/anchor/execution layers to a
// jsonrpc.Server's dispatch table. One Mediator serves one upstream L2
// provider.
type Mediator struct {
	anchor   *l1.Anchor
	provider *starknet.Provider
	reader   *state.Reader
	executor *exec.Executor
	log      *zap.Logger
	m        *metrics.Registry
}

// New constructs a Mediator. It does not register routes; call Register.
func New(anchor *l1.Anchor, provider *starknet.Provider, reader *state.Reader, executor *exec.Executor, log *zap.Logger, m *metrics.Registry) *Mediator {
	return &Mediator{anchor: anchor, provider: provider, reader: reader, executor: executor, log: log, m: m}
}

// Register binds every dispatch-table method onto srv.
func (med *Mediator) Register(srv *jsonrpc.Server) {
	srv.RegisterMethod(jsonrpc.Method{Name: "starknet_specVersion", Handler: med.specVersion})
	srv.RegisterMethod(jsonrpc.Method{Name: "starknet_chainId", Handler: med.chainID})
	srv.RegisterMethod(jsonrpc.Method{Name: "starknet_blockNumber", Handler: med.blockNumber})
	srv.RegisterMethod(jsonrpc.Method{Name: "starknet_blockHashAndNumber", Handler: med.blockHashAndNumber})

	srv.RegisterMethod(jsonrpc.Method{
		Name:    "starknet_getStorageAt",
		Params:  []jsonrpc.Parameter{{Name: "contract_address"}, {Name: "key"}, {Name: "block_id"}},
		Handler: med.getStorageAt,
	})
	srv.RegisterMethod(jsonrpc.Method{
		Name:    "starknet_getNonce",
		Params:  []jsonrpc.Parameter{{Name: "block_id"}, {Name: "contract_address"}},
		Handler: med.getNonce,
	})
	srv.RegisterMethod(jsonrpc.Method{
		Name:    "starknet_getClassHashAt",
		Params:  []jsonrpc.Parameter{{Name: "block_id"}, {Name: "contract_address"}},
		Handler: med.getClassHashAt,
	})
	srv.RegisterMethod(jsonrpc.Method{
		Name:    "starknet_getClass",
		Params:  []jsonrpc.Parameter{{Name: "block_id"}, {Name: "class_hash"}},
		Handler: med.getClass,
	})
	srv.RegisterMethod(jsonrpc.Method{
		Name:    "starknet_getClassAt",
		Params:  []jsonrpc.Parameter{{Name: "block_id"}, {Name: "contract_address"}},
		Handler: med.getClassAt,
	})

	srv.RegisterMethod(jsonrpc.Method{
		Name:    "starknet_call",
		Params:  []jsonrpc.Parameter{{Name: "request"}, {Name: "block_id"}},
		Handler: med.call,
	})
	srv.RegisterMethod(jsonrpc.Method{
		Name:    "starknet_estimateFee",
		Params:  []jsonrpc.Parameter{{Name: "request"}, {Name: "simulation_flags"}, {Name: "block_id"}},
		Handler: med.estimateFee,
	})

	for _, method := range forcedBlockIDMethods {
		srv.RegisterRawMethod(method, med.forwardWithForcedBlockID(method))
	}
	for _, method := range verbatimProxyMethods {
		srv.RegisterRawMethod(method, med.forwardVerbatim(method, true))
	}
	for _, method := range verbatimWriteMethods {
		srv.RegisterRawMethod(method, med.forwardVerbatim(method, false))
	}
}

// forcedBlockIDMethods are proxied with the caller's block_id silently
// replaced by the anchor's block number.
var forcedBlockIDMethods = []string{
	"starknet_getBlockWithTxHashes",
	"starknet_getBlockWithTxs",
	"starknet_getStateUpdate",
	"starknet_getBlockTransactionCount",
	"starknet_getTransactionByBlockIdAndIndex",
}

// verbatimProxyMethods are unverifiable or best-effort; forwarded unchanged.
var verbatimProxyMethods = []string{
	"starknet_getTransactionByHash",
	"starknet_getTransactionReceipt",
	"starknet_getTransactionStatus",
	"starknet_getEvents",
	"starknet_syncing",
	"starknet_estimateMessageFee",
}

// verbatimWriteMethods mutate upstream state and cannot be verified; they
// are forwarded at most once, never retried idempotently.
var verbatimWriteMethods = []string{
	"starknet_addInvokeTransaction",
	"starknet_addDeclareTransaction",
	"starknet_addDeployAccountTransaction",
}

func (med *Mediator) specVersion(ctx context.Context) (string, *jsonrpc.Error) {
	return starknet.SpecVersion, nil
}

func (med *Mediator) chainID(ctx context.Context) (string, *jsonrpc.Error) {
	defer med.observeLatency("starknet_chainId")()
	id, err := med.provider.ChainID(ctx)
	if err != nil {
		return "", toRPCError(err)
	}
	return id.ToHex(), nil
}

// observeLatency starts a per-method timer; the caller defers the returned
// func to record the observation into the shared provider-latency
// histogram.
func (med *Mediator) observeLatency(method string) func() {
	timer := prometheus.NewTimer(med.m.ProviderLatency.WithLabelValues(method))
	return func() { timer.ObserveDuration() }
}

func (med *Mediator) blockNumber(ctx context.Context) (uint64, *jsonrpc.Error) {
	anchorState, ready := med.anchor.Current()
	if !ready {
		return 0, errNotSynced
	}
	return anchorState.BlockNumber, nil
}

type blockHashAndNumberResult struct {
	BlockHash   string `json:"block_hash"`
	BlockNumber uint64 `json:"block_number"`
}

func (med *Mediator) blockHashAndNumber(ctx context.Context) (blockHashAndNumberResult, *jsonrpc.Error) {
	anchorState, ready := med.anchor.Current()
	if !ready {
		return blockHashAndNumberResult{}, errNotSynced
	}
	return blockHashAndNumberResult{BlockHash: anchorState.BlockHash.ToHex(), BlockNumber: anchorState.BlockNumber}, nil
}

// rejectPending refuses a verified read whose caller asked for the pending
// block: the anchor's root applies to one past block only, never to an
// in-progress one.
func rejectPending(block starknet.BlockID) *jsonrpc.Error {
	if block.Pending {
		return errPendingNotSupported
	}
	return nil
}

func (med *Mediator) getStorageAt(ctx context.Context, contractAddress, key felt.Felt, block starknet.BlockID) (felt.Felt, *jsonrpc.Error) {
	if rpcErr := rejectPending(block); rpcErr != nil {
		return felt.Felt{}, rpcErr
	}
	defer med.observeLatency("starknet_getStorageAt")()
	value, err := med.reader.StorageAt(ctx, contractAddress, key)
	if err != nil {
		return felt.Felt{}, toRPCError(err)
	}
	return value, nil
}

func (med *Mediator) getNonce(ctx context.Context, block starknet.BlockID, contractAddress felt.Felt) (felt.Felt, *jsonrpc.Error) {
	if rpcErr := rejectPending(block); rpcErr != nil {
		return felt.Felt{}, rpcErr
	}
	defer med.observeLatency("starknet_getNonce")()
	nonce, err := med.reader.Nonce(ctx, contractAddress)
	if err != nil {
		return felt.Felt{}, toRPCError(err)
	}
	return nonce, nil
}

func (med *Mediator) getClassHashAt(ctx context.Context, block starknet.BlockID, contractAddress felt.Felt) (felt.Felt, *jsonrpc.Error) {
	if rpcErr := rejectPending(block); rpcErr != nil {
		return felt.Felt{}, rpcErr
	}
	defer med.observeLatency("starknet_getClassHashAt")()
	classHash, err := med.reader.ClassHashAt(ctx, contractAddress)
	if err != nil {
		return felt.Felt{}, toRPCError(err)
	}
	return classHash, nil
}

func (med *Mediator) getClass(ctx context.Context, block starknet.BlockID, classHash felt.Felt) (json.RawMessage, *jsonrpc.Error) {
	if rpcErr := rejectPending(block); rpcErr != nil {
		return nil, rpcErr
	}
	defer med.observeLatency("starknet_getClass")()
	raw, err := med.reader.Class(ctx, classHash)
	if err != nil {
		return nil, classNotFoundIfMismatch(err)
	}
	return raw, nil
}

func (med *Mediator) getClassAt(ctx context.Context, block starknet.BlockID, contractAddress felt.Felt) (json.RawMessage, *jsonrpc.Error) {
	if rpcErr := rejectPending(block); rpcErr != nil {
		return nil, rpcErr
	}
	defer med.observeLatency("starknet_getClassAt")()
	raw, err := med.reader.ClassAt(ctx, contractAddress)
	if err != nil {
		return nil, classNotFoundIfMismatch(err)
	}
	return raw, nil
}

type functionCallParam struct {
	ContractAddress    felt.Felt   `json:"contract_address"`
	EntryPointSelector felt.Felt   `json:"entry_point_selector"`
	Calldata           []felt.Felt `json:"calldata"`
}

func (med *Mediator) call(ctx context.Context, request functionCallParam, block starknet.BlockID) ([]felt.Felt, *jsonrpc.Error) {
	if rpcErr := rejectPending(block); rpcErr != nil {
		return nil, rpcErr
	}
	defer med.observeLatency("starknet_call")()
	result, err := med.executor.Call(ctx, request.ContractAddress, request.EntryPointSelector, request.Calldata)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

type feeEstimateResult struct {
	GasConsumed string `json:"gas_consumed"`
	GasPrice    string `json:"gas_price"`
	OverallFee  string `json:"overall_fee"`
}

type broadcastedTxn struct {
	SenderAddress felt.Felt `json:"sender_address"`
}

func (med *Mediator) estimateFee(ctx context.Context, request []json.RawMessage, simulationFlags []string, block starknet.BlockID) ([]feeEstimateResult, *jsonrpc.Error) {
	if rpcErr := rejectPending(block); rpcErr != nil {
		return nil, rpcErr
	}
	defer med.observeLatency("starknet_estimateFee")()

	results := make([]feeEstimateResult, len(request))
	for i, raw := range request {
		var txn broadcastedTxn
		if err := json.Unmarshal(raw, &txn); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "malformed broadcasted transaction", Data: err.Error()}
		}

		estimate, err := med.executor.EstimateFee(ctx, txn.SenderAddress, raw)
		if err != nil {
			return nil, toRPCError(err)
		}
		results[i] = feeEstimateResult{
			GasConsumed: estimate.GasConsumed.ToHex(),
			GasPrice:    estimate.GasPrice.ToHex(),
			OverallFee:  estimate.OverallFee.ToHex(),
		}
	}
	return results, nil
}

// forwardWithForcedBlockID proxies method, replacing whatever block_id the
// caller supplied (the method's first param, per starknet-specs) with the
// anchor's current block number.
func (med *Mediator) forwardWithForcedBlockID(method string) jsonrpc.RawHandler {
	return func(ctx context.Context, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		anchorState, ready := med.anchor.Current()
		if !ready {
			return nil, errNotSynced
		}

		var positional []json.RawMessage
		if len(params) > 0 {
			if err := json.Unmarshal(params, &positional); err != nil {
				return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "params is not an array", Data: err.Error()}
			}
		}
		forced, err := json.Marshal(starknet.AtNumber(anchorState.BlockNumber))
		if err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: err.Error()}
		}
		if len(positional) == 0 {
			positional = []json.RawMessage{forced}
		} else {
			positional[0] = forced
		}

		rewritten, err := json.Marshal(positional)
		if err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: err.Error()}
		}

		raw, err := med.provider.Forward(ctx, method, rewritten, true)
		if err != nil {
			return nil, toRPCError(err)
		}
		return raw, nil
	}
}

// forwardVerbatim proxies method's params unchanged.
func (med *Mediator) forwardVerbatim(method string, idempotent bool) jsonrpc.RawHandler {
	return func(ctx context.Context, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
		raw, err := med.provider.Forward(ctx, method, params, idempotent)
		if err != nil {
			return nil, toRPCError(err)
		}
		return raw, nil
	}
}

package starknet

import (
	"context"
	"encoding/json"
	"net/http"

	junorpc "github.com/NethermindEth/starknet.go/rpc"
	"github.com/pkg/errors"

	"github.com/eigerco/beerus-go/core/felt"
	"github.com/eigerco/beerus-go/jsonrpc"
)

// SpecVersion is the StarkNet JSON-RPC spec version this client is pinned
// to; Provider.SpecVersion lets the node startup check compare it against
// whatever the upstream actually reports.
const SpecVersion = "0.7.1"

// FunctionCall mirrors starknet-specs' FUNCTION_CALL: the entry point and
// calldata for a `starknet_call`.
type FunctionCall struct {
	ContractAddress    felt.Felt
	EntryPointSelector felt.Felt
	Calldata           []felt.Felt
}

// Provider speaks to one upstream L2 JSON-RPC node: the pinned 0.7.1
// standard method set via a raw jsonrpc.Client (every method name here is
// exactly the one named in starknet-specs, the same surface juno's
// `rpc/chain.go` implements server-side), plus a typed starknet.go
// `rpc.Provider` used only by Call for `starknet_call`.
type Provider struct {
	raw   *jsonrpc.Client
	typed *junorpc.Provider
}

// NewProvider dials url twice: once as a raw jsonrpc.Client (retry-wrapped
// standard calls) and once through starknet.go's typed client (used only
// for Call).
func NewProvider(url string, httpClient *http.Client) (*Provider, error) {
	typed, err := junorpc.NewProvider(url)
	if err != nil {
		return nil, errors.Wrap(err, "starknet: constructing typed provider")
	}
	return &Provider{
		raw:   jsonrpc.NewClient(url, httpClient),
		typed: typed,
	}, nil
}

// SpecVersion fetches the upstream's reported JSON-RPC spec version, used
// once at startup for the SpecMismatch fatal check.
func (p *Provider) SpecVersion(ctx context.Context) (string, error) {
	var version string
	if err := p.raw.Call(ctx, "starknet_specVersion", []any{}, &version, true); err != nil {
		return "", errors.Wrap(err, "starknet: specVersion")
	}
	return version, nil
}

// ChainID returns the upstream's configured chain ID.
func (p *Provider) ChainID(ctx context.Context) (felt.Felt, error) {
	var hex string
	if err := p.raw.Call(ctx, "starknet_chainId", []any{}, &hex, true); err != nil {
		return felt.Felt{}, errors.Wrap(err, "starknet: chainId")
	}
	return felt.FromHex(hex)
}

// Nonce returns the nonce of address at block, without any proof: the raw
// provider value the verifier will check against a `pathfinder_getProof`
// call separately.
func (p *Provider) Nonce(ctx context.Context, block BlockID, address felt.Felt) (felt.Felt, error) {
	var hex string
	if err := p.raw.Call(ctx, "starknet_getNonce", []any{block, address.ToHex()}, &hex, true); err != nil {
		return felt.Felt{}, errors.Wrap(err, "starknet: getNonce")
	}
	return felt.FromHex(hex)
}

// StorageAt returns the raw (unverified) storage value at address/key.
func (p *Provider) StorageAt(ctx context.Context, block BlockID, address, key felt.Felt) (felt.Felt, error) {
	var hex string
	if err := p.raw.Call(ctx, "starknet_getStorageAt", []any{address.ToHex(), key.ToHex(), block}, &hex, true); err != nil {
		return felt.Felt{}, errors.Wrap(err, "starknet: getStorageAt")
	}
	return felt.FromHex(hex)
}

// ClassHashAt returns the raw (unverified) class hash deployed at address.
func (p *Provider) ClassHashAt(ctx context.Context, block BlockID, address felt.Felt) (felt.Felt, error) {
	var hex string
	if err := p.raw.Call(ctx, "starknet_getClassHashAt", []any{block, address.ToHex()}, &hex, true); err != nil {
		return felt.Felt{}, errors.Wrap(err, "starknet: getClassHashAt")
	}
	return felt.FromHex(hex)
}

// ContractClass returns the raw, provider-supplied class definition (Sierra
// or legacy encoding, undetermined at this layer) for classHash.
func (p *Provider) ContractClass(ctx context.Context, block BlockID, classHash felt.Felt) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := p.raw.Call(ctx, "starknet_getClass", []any{block, classHash.ToHex()}, &raw, true); err != nil {
		return nil, errors.Wrap(err, "starknet: getClass")
	}
	return raw, nil
}

// ContractClassAt returns the raw class definition deployed at address.
func (p *Provider) ContractClassAt(ctx context.Context, block BlockID, address felt.Felt) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := p.raw.Call(ctx, "starknet_getClassAt", []any{block, address.ToHex()}, &raw, true); err != nil {
		return nil, errors.Wrap(err, "starknet: getClassAt")
	}
	return raw, nil
}

// EstimateFee returns the raw fee estimate response for a simulated
// transaction set, undecoded.
func (p *Provider) EstimateFee(ctx context.Context, block BlockID, broadcastedTxns []json.RawMessage, simulationFlags []string) (json.RawMessage, error) {
	var raw json.RawMessage
	params := []any{broadcastedTxns, simulationFlags, block}
	if err := p.raw.Call(ctx, "starknet_estimateFee", params, &raw, true); err != nil {
		return nil, errors.Wrap(err, "starknet: estimateFee")
	}
	return raw, nil
}

// Forward issues method with params exactly as given and returns the raw
// result, undecoded. Used for upstream methods this client never needs to
// inspect: proxied verbatim by the mediator.
func (p *Provider) Forward(ctx context.Context, method string, params json.RawMessage, idempotent bool) (json.RawMessage, error) {
	var positional []any
	if len(params) > 0 {
		if err := json.Unmarshal(params, &positional); err != nil {
			return nil, errors.Wrapf(err, "starknet: forwarding %s: params is not an array", method)
		}
	}
	var raw json.RawMessage
	if err := p.raw.Call(ctx, method, positional, &raw, idempotent); err != nil {
		return nil, errors.Wrapf(err, "starknet: forwarding %s", method)
	}
	return raw, nil
}

// Call executes a read-only contract call through starknet.go's typed
// provider, converting between this repo's core/felt.Felt and the juno
// felt.Felt type starknet.go's RPC surface speaks.
func (p *Provider) Call(ctx context.Context, call FunctionCall, block BlockID) ([]felt.Felt, error) {
	opt, err := blockIDCallOpt(block)
	if err != nil {
		return nil, err
	}

	result, err := p.typed.Call(ctx, junorpc.FunctionCall{
		ContractAddress:    toJunoFelt(call.ContractAddress),
		EntryPointSelector: toJunoFelt(call.EntryPointSelector),
		Calldata:           toJunoFelts(call.Calldata),
	}, opt)
	if err != nil {
		return nil, errors.Wrap(err, "starknet: call")
	}
	return toCoreFelts(result), nil
}

func blockIDCallOpt(block BlockID) (junorpc.BlockID, error) {
	switch {
	case block.Latest:
		return junorpc.WithBlockTag("latest"), nil
	case block.Pending:
		return junorpc.WithBlockTag("pending"), nil
	case block.Number != nil:
		return junorpc.WithBlockNumber(*block.Number), nil
	case block.Hash != nil:
		return junorpc.WithBlockHash(toJunoFelt(*block.Hash)), nil
	default:
		return junorpc.BlockID{}, ErrAmbiguousBlockID
	}
}

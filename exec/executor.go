package exec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/eigerco/beerus-go/core/felt"
)

// ErrEngineNotConfigured means this build was wired without a Cairo VM
// engine: local execution is unavailable, though every other verified read
// still works.
var ErrEngineNotConfigured = errors.New("exec: no execution engine configured")

// Reader is the subset of state.Reader the executor needs: resolving a
// callee's class hash and fetching its verified definition. Declared here
// rather than imported as a concrete type so exec has no hard dependency on
// state's LRU/singleflight internals, only on the read contract.
type Reader interface {
	StateView
	Class(ctx context.Context, classHash felt.Felt) ([]byte, error)
}

// Executor runs read-only calls and fee estimates locally: resolve the
// callee's class, load and decode it, then execute against a state view
// whose every read is independently verified.
type Executor struct {
	reader Reader
	engine Engine
}

// NewExecutor constructs an Executor over reader and engine.
func NewExecutor(reader Reader, engine Engine) *Executor {
	return &Executor{reader: reader, engine: engine}
}

// Call resolves contractAddress's class, decodes it, and runs entryPoint
// against the reader's verified state view. Only read-only execution is
// supported; state-mutating transactions are out of scope for verification.
func (e *Executor) Call(ctx context.Context, contractAddress, entryPointSelector felt.Felt, calldata []felt.Felt) ([]felt.Felt, error) {
	if e.engine == nil {
		return nil, ErrEngineNotConfigured
	}
	class, err := e.resolveClass(ctx, contractAddress)
	if err != nil {
		return nil, err
	}
	return e.engine.Call(ctx, class, entryPointSelector, calldata, e.reader)
}

// EstimateFee decodes the class transaction targets and hands the
// simulation to the engine against the verified state view.
func (e *Executor) EstimateFee(ctx context.Context, contractAddress felt.Felt, transaction json.RawMessage) (FeeEstimate, error) {
	if e.engine == nil {
		return FeeEstimate{}, ErrEngineNotConfigured
	}
	class, err := e.resolveClass(ctx, contractAddress)
	if err != nil {
		return FeeEstimate{}, err
	}
	return e.engine.EstimateFee(ctx, class, transaction, e.reader)
}

func (e *Executor) resolveClass(ctx context.Context, contractAddress felt.Felt) (DecodedClass, error) {
	classHash, err := e.reader.ClassHashAt(ctx, contractAddress)
	if err != nil {
		return DecodedClass{}, fmt.Errorf("exec: resolving class hash: %w", err)
	}

	raw, err := e.reader.Class(ctx, classHash)
	if err != nil {
		return DecodedClass{}, fmt.Errorf("exec: loading class: %w", err)
	}

	class, err := DecodeClass(raw)
	if err != nil {
		return DecodedClass{}, err
	}
	return class, nil
}

package exec

import (
	"context"
	"encoding/json"

	"github.com/eigerco/beerus-go/core/felt"
)

// Engine is the local contract-execution backend: something that can run a
// decoded class's entry point against a read-only view of state. This
// repo's trust-minimization boundary ends at state.Reader's verified reads;
// the Cairo VM that actually interprets bytecode is an external
// collaborator, satisfied by whatever Cairo VM binding the node is built
// with.
type Engine interface {
	Call(ctx context.Context, class DecodedClass, entryPointSelector felt.Felt, calldata []felt.Felt, reads StateView) ([]felt.Felt, error)
	EstimateFee(ctx context.Context, class DecodedClass, transaction json.RawMessage, reads StateView) (FeeEstimate, error)
}

// StateView is the minimal read surface an Engine needs: every read it
// performs during execution must be a verified fetch, never a raw
// unverified provider value.
type StateView interface {
	StorageAt(ctx context.Context, address, key felt.Felt) (felt.Felt, error)
	Nonce(ctx context.Context, address felt.Felt) (felt.Felt, error)
	ClassHashAt(ctx context.Context, address felt.Felt) (felt.Felt, error)
}

// FeeEstimate is the decoded result of a simulated transaction.
type FeeEstimate struct {
	GasConsumed felt.Felt
	GasPrice    felt.Felt
	OverallFee  felt.Felt
}

package rpc

import (
	"errors"

	"github.com/eigerco/beerus-go/core/proof"
	"github.com/eigerco/beerus-go/core/trie"
	"github.com/eigerco/beerus-go/jsonrpc"
	"github.com/eigerco/beerus-go/state"
)

// Reserved application error codes this service returns on top of the
// standard JSON-RPC codes already defined in the jsonrpc package.
const (
	codeVerificationFailed = 41
	codeContractNotFound   = 20
	codeClassHashNotFound  = 28
	codeNotSynced          = jsonrpc.CodeInternalError
)

var (
	errPendingNotSupported = &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "pending not supported"}
	errVerificationFailed  = &jsonrpc.Error{Code: codeVerificationFailed, Message: "proof verification failed"}
	errNotSynced           = &jsonrpc.Error{Code: codeNotSynced, Message: "anchor not synced"}
	errContractNotFound    = &jsonrpc.Error{Code: codeContractNotFound, Message: "contract not found"}
	errClassHashNotFound   = &jsonrpc.Error{Code: codeClassHashNotFound, Message: "class hash not found"}
)

// toRPCError maps an internal verification/read error to the JSON-RPC error
// the mediator returns. Never returns nil for a non-nil err, and never lets
// a HashMismatch/ClassHashMismatch reach the caller as anything but
// VerificationFailed.
func toRPCError(err error) *jsonrpc.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, state.ErrNotSynced):
		return errNotSynced
	case errors.Is(err, state.ErrContractNotFound):
		return errContractNotFound
	case errors.Is(err, state.ErrClassHashNotFound):
		return errClassHashNotFound
	case errors.Is(err, state.ErrClassHashMismatch):
		return errVerificationFailed
	case errors.Is(err, proof.ErrContractNotDeployed):
		return errContractNotFound
	case errors.Is(err, trie.ErrHashMismatch):
		return errVerificationFailed
	case errors.Is(err, trie.ErrMalformedProof):
		return errVerificationFailed
	default:
		return &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: err.Error()}
	}
}

// classNotFoundIfMismatch narrows a class-lookup failure for getClass/
// getClassAt specifically: ClassHashNotFound is its own outcome, distinct
// from a general VerificationFailed, when the class simply doesn't exist
// upstream versus existing but hashing wrong.
func classNotFoundIfMismatch(err error) *jsonrpc.Error {
	if errors.Is(err, state.ErrClassHashMismatch) {
		return errVerificationFailed
	}
	return toRPCError(err)
}

package l1

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/eigerco/beerus-go/core/felt"
)

// coreContractABI is the minimal slice of the StarkGate core contract's ABI
// this client calls: the three read-only accessors that describe the
// currently finalized L2 state.
const coreContractABI = `[
	{"constant":true,"inputs":[],"name":"stateRoot","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"stateBlockNumber","outputs":[{"name":"","type":"int256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"stateBlockHash","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

// ContractCaller is the subset of an Ethereum execution client this package
// needs: a read-only eth_call. go-ethereum's *ethclient.Client and
// bind.ContractBackend both satisfy it; the consensus/execution light
// client supplying verified L1 state is itself an external collaborator
// out of scope here, so only this narrow call surface is depended on
// directly.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// CoreContract reads the L2 state root/block-number/block-hash triple off
// the network's L1 core contract.
type CoreContract struct {
	caller  ContractCaller
	address common.Address
	abi     abi.ABI
}

// NewCoreContract builds a reader for address, calling out through caller.
func NewCoreContract(caller ContractCaller, address common.Address) (*CoreContract, error) {
	parsed, err := abi.JSON(strings.NewReader(coreContractABI))
	if err != nil {
		return nil, errors.Wrap(err, "l1: parsing core contract abi")
	}
	return &CoreContract{caller: caller, address: address, abi: parsed}, nil
}

// ReadState fetches the (block_number, block_hash, root) triple as it
// currently stands on L1.
func (c *CoreContract) ReadState(ctx context.Context) (State, error) {
	root, err := c.callUint256(ctx, "stateRoot")
	if err != nil {
		return State{}, errors.Wrap(err, "l1: stateRoot")
	}
	blockNumber, err := c.callUint256(ctx, "stateBlockNumber")
	if err != nil {
		return State{}, errors.Wrap(err, "l1: stateBlockNumber")
	}
	blockHash, err := c.callUint256(ctx, "stateBlockHash")
	if err != nil {
		return State{}, errors.Wrap(err, "l1: stateBlockHash")
	}

	return State{
		BlockNumber: blockNumber.Uint64(),
		BlockHash:   felt.SetBytesBE(bigToBytes(blockHash)),
		Root:        felt.SetBytesBE(bigToBytes(root)),
	}, nil
}

func (c *CoreContract) callUint256(ctx context.Context, method string) (*big.Int, error) {
	data, err := c.abi.Pack(method)
	if err != nil {
		return nil, errors.Wrapf(err, "packing %s", method)
	}

	raw, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "calling %s", method)
	}

	var out *big.Int
	if err := c.abi.UnpackIntoInterface(&out, method, raw); err != nil {
		return nil, errors.Wrapf(err, "unpacking %s", method)
	}
	return out, nil
}

func bigToBytes(v *big.Int) [32]byte {
	var out [32]byte
	v.FillBytes(out[:])
	return out
}

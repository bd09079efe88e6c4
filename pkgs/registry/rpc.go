package registry

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RPC is the ledger transport collaborator. The gateway treats it as a
// black box exposing read-call, write-call, and event-query primitives.
//
// Implementations classify transport errors with the failures package:
// connection-level problems as RpcUnavailable and oversized log queries as
// RangeTooLarge. The gateway never interprets raw transport error strings.
type RPC interface {
	// Call executes a side-effect-free read against a contract.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// EstimateGas estimates the gas units the call would consume.
	EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error)

	// SendTransaction signs and broadcasts a write with the given gas
	// limit, returning the transaction id. Nonce sequencing is the
	// transport's responsibility.
	SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error)

	// WaitForReceipt blocks until the transaction is included or ctx
	// expires.
	WaitForReceipt(ctx context.Context, txID common.Hash) (*Receipt, error)

	// QueryLogs fetches event logs for one topic over an inclusive block
	// range.
	QueryLogs(ctx context.Context, address common.Address, topic common.Hash, fromHeight, toHeight uint64) ([]types.Log, error)

	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)
}

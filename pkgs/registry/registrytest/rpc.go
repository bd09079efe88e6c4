// Package registrytest provides an in-memory RPC transport that answers
// real ABI-encoded registry calls, so component tests exercise the same
// encode/decode paths as production without a chain.
package registrytest

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
)

// StoredRecord mirrors the contract's storage for one prediction.
type StoredRecord struct {
	PredictionHash [32]byte
	InputHash      [32]byte
	ModelVersion   string
	ContentPointer string
	Reporter       common.Address
	Timestamp      uint64
	BlockHeight    uint64
}

// FakeRPC is an in-memory ledger transport. Zero value is not usable; use
// NewFakeRPC.
type FakeRPC struct {
	mu sync.Mutex

	abi      abi.ABI
	eventSig common.Hash

	// Contract state
	Records      map[[32]byte]StoredRecord
	Reporters    map[common.Address]bool
	Admins       map[common.Address]bool
	ReporterRole [32]byte
	AdminRole    [32]byte

	// Event log
	Logs []types.Log
	Head uint64

	// RangeLimit, when non-zero, rejects log queries spanning more blocks
	// with a RangeTooLarge failure, like capped public endpoints do.
	RangeLimit uint64

	// Injected faults
	CallErr     error
	EstimateErr error
	SendErr     error

	// Behavior knobs
	GasEstimate uint64
	Receipts    map[common.Hash]*registry.Receipt

	// Recorded traffic
	EstimateCalls int
	SendCalls     int
	CallCount     int
	LastGasLimit  uint64
	LastSentData  []byte
	QueryWindows  [][2]uint64
}

// NewFakeRPC creates a fake with empty contract state.
func NewFakeRPC() *FakeRPC {
	parsed, err := abi.JSON(strings.NewReader(registry.RegistryABI))
	if err != nil {
		panic(fmt.Sprintf("registrytest: bad ABI: %v", err))
	}

	f := &FakeRPC{
		abi:         parsed,
		eventSig:    crypto.Keccak256Hash([]byte(parsed.Events[registry.PredictionRecordedEvent].Sig)),
		Records:     make(map[[32]byte]StoredRecord),
		Reporters:   make(map[common.Address]bool),
		Admins:      make(map[common.Address]bool),
		GasEstimate: 100000,
		Receipts:    make(map[common.Hash]*registry.Receipt),
	}
	copy(f.ReporterRole[:], crypto.Keccak256([]byte("REPORTER_ROLE")))
	// AdminRole stays all-zero, matching OpenZeppelin's DEFAULT_ADMIN_ROLE.
	return f
}

// AddLog appends a PredictionRecorded event to the fake chain's log at the
// record's block height and advances the head if needed.
func (f *FakeRPC) AddLog(rec StoredRecord, txID common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()

	event := f.abi.Events[registry.PredictionRecordedEvent]
	data, err := event.Inputs.NonIndexed().Pack(
		rec.InputHash,
		rec.ModelVersion,
		rec.ContentPointer,
		new(big.Int).SetUint64(rec.Timestamp),
		new(big.Int).SetUint64(rec.BlockHeight),
	)
	if err != nil {
		panic(fmt.Sprintf("registrytest: failed to pack event: %v", err))
	}

	f.Logs = append(f.Logs, types.Log{
		Topics: []common.Hash{
			f.eventSig,
			common.Hash(rec.PredictionHash),
			common.BytesToHash(rec.Reporter.Bytes()),
		},
		Data:        data,
		BlockNumber: rec.BlockHeight,
		TxHash:      txID,
	})
	if rec.BlockHeight > f.Head {
		f.Head = rec.BlockHeight
	}
}

// Call dispatches an ABI-encoded read to the in-memory contract state.
func (f *FakeRPC) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CallCount++
	if f.CallErr != nil {
		return nil, f.CallErr
	}

	method, err := f.abi.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown method selector: %w", err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("bad call data: %w", err)
	}

	switch method.Name {
	case "getPrediction":
		rec := f.Records[args[0].([32]byte)]
		return method.Outputs.Pack(
			rec.PredictionHash,
			rec.InputHash,
			rec.ModelVersion,
			rec.ContentPointer,
			rec.Reporter,
			new(big.Int).SetUint64(rec.Timestamp),
			new(big.Int).SetUint64(rec.BlockHeight),
		)
	case "isRecorded":
		_, ok := f.Records[args[0].([32]byte)]
		return method.Outputs.Pack(ok)
	case "hasRole":
		role := args[0].([32]byte)
		account := args[1].(common.Address)
		if role == f.ReporterRole {
			return method.Outputs.Pack(f.Reporters[account])
		}
		if role == f.AdminRole {
			return method.Outputs.Pack(f.Admins[account])
		}
		return method.Outputs.Pack(false)
	case "REPORTER_ROLE":
		return method.Outputs.Pack(f.ReporterRole)
	case "DEFAULT_ADMIN_ROLE":
		return method.Outputs.Pack(f.AdminRole)
	default:
		return nil, fmt.Errorf("unexpected read method %s", method.Name)
	}
}

func (f *FakeRPC) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.EstimateCalls++
	if f.EstimateErr != nil {
		return 0, f.EstimateErr
	}
	return f.GasEstimate, nil
}

func (f *FakeRPC) SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SendCalls++
	if f.SendErr != nil {
		return common.Hash{}, f.SendErr
	}
	f.LastGasLimit = gasLimit
	f.LastSentData = append([]byte(nil), data...)

	return crypto.Keccak256Hash(data, []byte{byte(f.SendCalls)}), nil
}

// WaitForReceipt polls for a seeded receipt and blocks until ctx expires if
// none appears, mimicking a transaction that never lands.
func (f *FakeRPC) WaitForReceipt(ctx context.Context, txID common.Hash) (*registry.Receipt, error) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		f.mu.Lock()
		receipt := f.Receipts[txID]
		f.mu.Unlock()

		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, failures.Wrap(failures.ConfirmationTimeout, ctx.Err(), "no receipt for %s", txID.Hex())
		case <-ticker.C:
		}
	}
}

// SeedReceiptForLastSend registers a receipt for the most recently sent
// transaction.
func (f *FakeRPC) SeedReceiptForLastSend(receipt *registry.Receipt) common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()

	txID := crypto.Keccak256Hash(f.LastSentData, []byte{byte(f.SendCalls)})
	f.Receipts[txID] = receipt
	return txID
}

// SeedReceipt registers a receipt for an arbitrary transaction id.
func (f *FakeRPC) SeedReceipt(txID common.Hash, receipt *registry.Receipt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Receipts[txID] = receipt
}

func (f *FakeRPC) QueryLogs(ctx context.Context, address common.Address, topic common.Hash, fromHeight, toHeight uint64) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.QueryWindows = append(f.QueryWindows, [2]uint64{fromHeight, toHeight})

	if f.RangeLimit > 0 && toHeight-fromHeight+1 > f.RangeLimit {
		return nil, failures.New(failures.RangeTooLarge, "window %d-%d exceeds %d blocks", fromHeight, toHeight, f.RangeLimit)
	}

	var matched []types.Log
	for _, lg := range f.Logs {
		if lg.BlockNumber < fromHeight || lg.BlockNumber > toHeight {
			continue
		}
		if len(lg.Topics) > 0 && !bytes.Equal(lg.Topics[0].Bytes(), topic.Bytes()) {
			continue
		}
		matched = append(matched, lg)
	}
	return matched, nil
}

func (f *FakeRPC) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Head, nil
}

// Package registry wraps the PredictionRegistry contract with typed read,
// write, and event-query operations. All results flow back as typed values
// or classified failures, never as raw transport errors.
package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/identifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/metrics"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
)

// PredictionRecordedEvent is the event signature consumed by the history
// synchronizer.
const PredictionRecordedEvent = "PredictionRecorded"

// Gateway binds the PredictionRegistry contract to a transport and a
// connection manager.
type Gateway struct {
	rpc      RPC
	wallet   *wallet.Manager
	contract common.Address
	abi      abi.ABI
	eventSig common.Hash

	// Max block span per log query window. Wider caller ranges are split
	// and concatenated transparently.
	batchSize uint64

	roleMu       sync.Mutex
	reporterRole *[32]byte
	adminRole    *[32]byte
}

// Config for the Gateway.
type Config struct {
	RPC             RPC
	Wallet          *wallet.Manager
	ContractAddress common.Address
	EventBatchSize  uint64
}

// NewGateway creates a gateway bound to the registry contract.
func NewGateway(cfg *Config) (*Gateway, error) {
	if cfg.RPC == nil {
		return nil, fmt.Errorf("RPC transport is required")
	}
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("wallet manager is required")
	}
	if cfg.EventBatchSize == 0 {
		return nil, fmt.Errorf("event batch size must be greater than zero")
	}

	registryABI, err := abi.JSON(strings.NewReader(RegistryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to load registry ABI: %w", err)
	}

	event, ok := registryABI.Events[PredictionRecordedEvent]
	if !ok {
		return nil, fmt.Errorf("ABI does not contain %s event", PredictionRecordedEvent)
	}

	return &Gateway{
		rpc:       cfg.RPC,
		wallet:    cfg.Wallet,
		contract:  cfg.ContractAddress,
		abi:       registryABI,
		eventSig:  crypto.Keccak256Hash([]byte(event.Sig)),
		batchSize: cfg.EventBatchSize,
	}, nil
}

// Contract returns the bound registry address.
func (g *Gateway) Contract() common.Address {
	return g.contract
}

// ReadRecord fetches the authoritative record for a prediction hash. A nil
// record (with nil error) means the ledger holds no record: the stored
// predictionHash field is the all-zero sentinel.
func (g *Gateway) ReadRecord(ctx context.Context, predictionHash identifier.Identifier) (*PredictionRecord, error) {
	out, err := g.read(ctx, "getPrediction", predictionHash.Bytes32())
	if err != nil {
		return nil, err
	}

	record := &PredictionRecord{
		PredictionHash: identifier.FromBytes32(out[0].([32]byte)),
		InputHash:      identifier.FromBytes32(out[1].([32]byte)),
		ModelVersion:   out[2].(string),
		ContentPointer: out[3].(string),
		Reporter:       out[4].(common.Address),
		Timestamp:      out[5].(*big.Int).Uint64(),
		BlockHeight:    out[6].(*big.Int).Uint64(),
	}

	if record.PredictionHash.IsZero() {
		return nil, nil
	}
	return record, nil
}

// IsRecorded reports whether a record exists for the hash.
func (g *Gateway) IsRecorded(ctx context.Context, predictionHash identifier.Identifier) (bool, error) {
	out, err := g.read(ctx, "isRecorded", predictionHash.Bytes32())
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// HasRole checks an account against a role identifier.
func (g *Gateway) HasRole(ctx context.Context, role [32]byte, account common.Address) (bool, error) {
	out, err := g.read(ctx, "hasRole", role, account)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// ReporterRole returns the contract's reporter role identifier. The value
// is a contract constant, so it is fetched once and reused.
func (g *Gateway) ReporterRole(ctx context.Context) ([32]byte, error) {
	g.roleMu.Lock()
	defer g.roleMu.Unlock()
	if g.reporterRole != nil {
		return *g.reporterRole, nil
	}

	out, err := g.read(ctx, "REPORTER_ROLE")
	if err != nil {
		return [32]byte{}, err
	}
	role := out[0].([32]byte)
	g.reporterRole = &role
	return role, nil
}

// AdminRole returns the contract's admin role identifier.
func (g *Gateway) AdminRole(ctx context.Context) ([32]byte, error) {
	g.roleMu.Lock()
	defer g.roleMu.Unlock()
	if g.adminRole != nil {
		return *g.adminRole, nil
	}

	out, err := g.read(ctx, "DEFAULT_ADMIN_ROLE")
	if err != nil {
		return [32]byte{}, err
	}
	role := out[0].([32]byte)
	g.adminRole = &role
	return role, nil
}

// EstimateGas estimates gas units for the exact call parameters, from the
// connected account.
func (g *Gateway) EstimateGas(ctx context.Context, call WriteCall) (uint64, error) {
	from, err := g.wallet.Credential()
	if err != nil {
		return 0, err
	}

	data, err := g.abi.Pack(call.Method, call.Args...)
	if err != nil {
		return 0, fmt.Errorf("failed to pack %s call: %w", call.Method, err)
	}

	estimate, err := g.rpc.EstimateGas(ctx, from, g.contract, data)
	metrics.ObserveCall("estimateGas", err)
	return estimate, err
}

// Submit signs and broadcasts a write call with the given gas limit. Fails
// with NoSigner unless the wallet is connected on the target network. The
// gateway never retries a write.
func (g *Gateway) Submit(ctx context.Context, call WriteCall, gasLimit uint64) (common.Hash, error) {
	from, err := g.wallet.Credential()
	if err != nil {
		return common.Hash{}, err
	}

	data, err := g.abi.Pack(call.Method, call.Args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s call: %w", call.Method, err)
	}

	txID, err := g.rpc.SendTransaction(ctx, g.contract, data, gasLimit)
	metrics.ObserveCall(call.Method, err)
	if err != nil {
		if failures.KindOf(err) != "" {
			return common.Hash{}, err
		}
		return common.Hash{}, failures.Wrap(failures.RpcUnavailable, err, "failed to broadcast %s", call.Method)
	}

	log.WithFields(log.Fields{
		"tx_id":     txID.Hex(),
		"method":    call.Method,
		"from":      from.Hex(),
		"gas_limit": gasLimit,
	}).Info("Transaction broadcast")

	return txID, nil
}

// WaitForReceipt blocks until inclusion or ctx expiry.
func (g *Gateway) WaitForReceipt(ctx context.Context, txID common.Hash) (*Receipt, error) {
	return g.rpc.WaitForReceipt(ctx, txID)
}

// ChainHead returns the current block height.
func (g *Gateway) ChainHead(ctx context.Context) (uint64, error) {
	head, err := g.rpc.BlockNumber(ctx)
	if err != nil {
		if failures.KindOf(err) != "" {
			return 0, err
		}
		return 0, failures.Wrap(failures.RpcUnavailable, err, "failed to read chain head")
	}
	return head, nil
}

// QueryEvents fetches PredictionRecorded history over an inclusive height
// range, in log order. Wide ranges are split into windows of the configured
// batch size; a window the transport still rejects as too large is halved
// until it fits. Callers never observe RangeTooLarge.
func (g *Gateway) QueryEvents(ctx context.Context, fromHeight, toHeight uint64) ([]HistoryEntry, error) {
	if toHeight < fromHeight {
		return nil, nil
	}

	var entries []HistoryEntry
	for start := fromHeight; start <= toHeight; {
		end := start + g.batchSize - 1
		if end > toHeight || end < start {
			end = toHeight
		}

		window, err := g.queryWindow(ctx, start, end)
		if err != nil {
			return nil, err
		}
		entries = append(entries, window...)

		if end == toHeight {
			break
		}
		start = end + 1
	}

	return entries, nil
}

// queryWindow fetches one window, subdividing on RangeTooLarge.
func (g *Gateway) queryWindow(ctx context.Context, fromHeight, toHeight uint64) ([]HistoryEntry, error) {
	logs, err := g.rpc.QueryLogs(ctx, g.contract, g.eventSig, fromHeight, toHeight)
	if err != nil {
		if failures.IsKind(err, failures.RangeTooLarge) && toHeight > fromHeight {
			mid := fromHeight + (toHeight-fromHeight)/2
			log.WithFields(log.Fields{
				"from": fromHeight,
				"to":   toHeight,
				"mid":  mid,
			}).Debug("Log window too large, splitting")

			lower, err := g.queryWindow(ctx, fromHeight, mid)
			if err != nil {
				return nil, err
			}
			upper, err := g.queryWindow(ctx, mid+1, toHeight)
			if err != nil {
				return nil, err
			}
			return append(lower, upper...), nil
		}
		if failures.KindOf(err) != "" {
			return nil, err
		}
		return nil, failures.Wrap(failures.RpcUnavailable, err, "log query failed for blocks %d-%d", fromHeight, toHeight)
	}

	entries := make([]HistoryEntry, 0, len(logs))
	for _, lg := range logs {
		entry, err := g.decodeEvent(lg)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"block": lg.BlockNumber,
				"tx":    lg.TxHash.Hex(),
			}).Warn("Skipping undecodable event")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// decodeEvent unpacks one PredictionRecorded log. predictionHash and
// reporter are indexed topics; the rest rides in the data payload.
func (g *Gateway) decodeEvent(lg types.Log) (HistoryEntry, error) {
	if len(lg.Topics) < 3 {
		return HistoryEntry{}, fmt.Errorf("expected 3 topics, got %d", len(lg.Topics))
	}

	out, err := g.abi.Unpack(PredictionRecordedEvent, lg.Data)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to unpack event data: %w", err)
	}

	return HistoryEntry{
		PredictionRecord: PredictionRecord{
			PredictionHash: identifier.FromBytes32([32]byte(lg.Topics[1])),
			InputHash:      identifier.FromBytes32(out[0].([32]byte)),
			ModelVersion:   out[1].(string),
			ContentPointer: out[2].(string),
			Reporter:       common.BytesToAddress(lg.Topics[2].Bytes()),
			Timestamp:      out[3].(*big.Int).Uint64(),
			BlockHeight:    out[4].(*big.Int).Uint64(),
		},
		TransactionID: lg.TxHash,
	}, nil
}

// read packs a view call, executes it, and unpacks the result.
func (g *Gateway) read(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	raw, err := g.rpc.Call(ctx, g.contract, data)
	metrics.ObserveCall(method, err)
	if err != nil {
		if failures.KindOf(err) != "" {
			return nil, err
		}
		return nil, failures.Wrap(failures.RpcUnavailable, err, "%s call failed", method)
	}

	out, err := g.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

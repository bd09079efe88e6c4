package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/identifier"
)

// PredictionRecord is the immutable on-chain record of one AI prediction.
// Written exactly once by an authorized reporter, never mutated.
type PredictionRecord struct {
	PredictionHash identifier.Identifier `json:"predictionHash"`
	InputHash      identifier.Identifier `json:"inputHash"`
	ModelVersion   string                `json:"modelVersion"`
	ContentPointer string                `json:"contentPointer,omitempty"`
	Reporter       common.Address        `json:"reporter"`
	Timestamp      uint64                `json:"timestamp"`
	BlockHeight    uint64                `json:"blockHeight"`
}

// HistoryEntry is a PredictionRecord as observed in the event log, plus the
// transaction that emitted it. The unique key across a history set is
// PredictionHash.
type HistoryEntry struct {
	PredictionRecord
	TransactionID common.Hash `json:"transactionId"`
}

// Receipt is the ledger's acknowledgement of a submitted write.
type Receipt struct {
	BlockHeight uint64
	GasUsed     uint64
	Reverted    bool
}

// WriteCall names a contract write method and its arguments.
type WriteCall struct {
	Method string
	Args   []interface{}
}

// RecordPredictionCall builds the write call anchoring a new record.
func RecordPredictionCall(predictionHash, inputHash identifier.Identifier, modelVersion, contentPointer string) WriteCall {
	return WriteCall{
		Method: "recordPrediction",
		Args: []interface{}{
			predictionHash.Bytes32(),
			inputHash.Bytes32(),
			modelVersion,
			contentPointer,
		},
	}
}

// GrantReporterCall builds the admin call granting the reporter role.
func GrantReporterCall(account common.Address) WriteCall {
	return WriteCall{Method: "grantReporter", Args: []interface{}{account}}
}

// RevokeReporterCall builds the admin call revoking the reporter role.
func RevokeReporterCall(account common.Address) WriteCall {
	return WriteCall{Method: "revokeReporter", Args: []interface{}{account}}
}

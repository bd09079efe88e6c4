// Package verifier cross-checks a locally held record identifier against
// the authoritative on-chain copy.
package verifier

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/events"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/identifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/metrics"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
)

// Verdict is the result of one verification.
type Verdict string

const (
	Verified Verdict = "verified"
	Mismatch Verdict = "mismatch"
	NotFound Verdict = "not_found"
)

// Result pairs a verdict with the on-chain record (nil for NotFound).
type Result struct {
	Verdict Verdict
	Record  *registry.PredictionRecord
}

// Verifier re-verifies records against the ledger.
type Verifier struct {
	gateway *registry.Gateway
	sink    events.Sink
}

// NewVerifier creates a verifier.
func NewVerifier(gateway *registry.Gateway, sink events.Sink) *Verifier {
	return &Verifier{gateway: gateway, sink: sink}
}

// Verify performs exactly one ledger read and never caches its verdict:
// trusting a stale answer defeats the point of verification. Identifier
// comparison happens on parsed bytes, so hex-case differences never cause
// a mismatch.
func (v *Verifier) Verify(ctx context.Context, localHash identifier.Identifier) (*Result, error) {
	record, err := v.gateway.ReadRecord(ctx, localHash)
	if err != nil {
		return nil, err
	}

	result := &Result{Record: record}
	switch {
	case record == nil:
		result.Verdict = NotFound
	case record.PredictionHash.Equal(localHash):
		result.Verdict = Verified
	default:
		result.Verdict = Mismatch
	}

	metrics.Verifications.WithLabelValues(string(result.Verdict)).Inc()
	events.Emit(v.sink, events.Event{
		Type:           events.EventRecordVerified,
		PredictionHash: localHash.Hex(),
		Verdict:        string(result.Verdict),
	})
	log.WithFields(log.Fields{
		"hash":    localHash.Hex(),
		"verdict": result.Verdict,
	}).Info("Record verified")

	return result, nil
}

// Package submitter drives one record submission from draft to terminal
// outcome: validate, estimate gas, broadcast, confirm. Every attempt is an
// independent state machine; a failed attempt is never retried implicitly,
// since blind re-submission of a write risks a duplicate record.
package submitter

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/events"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/identifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/metrics"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/roles"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
)

// Phase is a submission's position in its lifecycle.
type Phase string

const (
	PhaseDraft             Phase = "draft"
	PhaseValidating        Phase = "validating"
	PhaseEstimating        Phase = "estimating"
	PhaseAwaitingSignature Phase = "awaiting_signature"
	PhasePending           Phase = "pending"
	PhaseConfirmed         Phase = "confirmed"
	PhaseFailed            Phase = "failed"
)

// gasMarginNumerator / gasMarginDenominator apply the +20% safety margin
// (ceiling) to the gas estimate, absorbing ledger-state drift between
// estimation and inclusion.
const (
	gasMarginNumerator   = 120
	gasMarginDenominator = 100
)

// Draft holds the writable fields of one submission attempt. Owned by the
// pipeline for the duration of the attempt, never persisted.
type Draft struct {
	PredictionHash identifier.Identifier
	InputHash      identifier.Identifier
	ModelVersion   string
	ContentPointer string
}

// Outcome is the terminal result of a confirmed submission.
type Outcome struct {
	TransactionID common.Hash
	BlockHeight   uint64
	GasUsed       uint64
}

// Submission is the handle returned once a transaction is broadcast. The
// caller is not blocked on confirmation; Wait observes the outcome.
type Submission struct {
	txID common.Hash

	mu      sync.Mutex
	phase   Phase
	outcome *Outcome
	err     error
	done    chan struct{}
}

// TransactionID returns the broadcast transaction id.
func (s *Submission) TransactionID() common.Hash {
	return s.txID
}

// Phase returns the submission's current lifecycle phase.
func (s *Submission) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Wait blocks until the submission reaches a terminal phase or ctx expires.
// Expiry surfaces as ConfirmationTimeout: an unknown outcome, not a
// rollback. The transaction may still be included later.
func (s *Submission) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.outcome, s.err
	case <-ctx.Done():
		return nil, failures.Wrap(failures.ConfirmationTimeout, ctx.Err(),
			"gave up waiting for %s", s.txID.Hex())
	}
}

func (s *Submission) settle(phase Phase, outcome *Outcome, err error) {
	s.mu.Lock()
	s.phase = phase
	s.outcome = outcome
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

// Config for the Pipeline.
type Config struct {
	Gateway  *registry.Gateway
	Resolver *roles.Resolver
	Wallet   *wallet.Manager
	Sink     events.Sink // optional

	// ConfirmationTimeout bounds the background receipt wait.
	ConfirmationTimeout time.Duration
}

// Pipeline validates, estimates, submits, and confirms write transactions.
type Pipeline struct {
	gateway             *registry.Gateway
	resolver            *roles.Resolver
	wallet              *wallet.Manager
	sink                events.Sink
	confirmationTimeout time.Duration
}

// NewPipeline creates a submission pipeline.
func NewPipeline(cfg *Config) *Pipeline {
	timeout := cfg.ConfirmationTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Pipeline{
		gateway:             cfg.Gateway,
		resolver:            cfg.Resolver,
		wallet:              cfg.Wallet,
		sink:                cfg.Sink,
		confirmationTimeout: timeout,
	}
}

// Submit runs one draft through the pipeline and returns a Submission
// handle as soon as the transaction is broadcast. Validation failures
// (MissingField, Unauthorized) are detected locally before any call that
// could cost gas.
func (p *Pipeline) Submit(ctx context.Context, draft Draft) (*Submission, error) {
	// Validating
	if err := p.validate(ctx, draft); err != nil {
		events.Emit(p.sink, events.Event{
			Type:           events.EventSubmissionRejected,
			PredictionHash: draft.PredictionHash.Hex(),
			ModelVersion:   draft.ModelVersion,
			Reason:         err.Error(),
		})
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	events.Emit(p.sink, events.Event{
		Type:           events.EventSubmissionValidated,
		PredictionHash: draft.PredictionHash.Hex(),
		ModelVersion:   draft.ModelVersion,
	})

	call := registry.RecordPredictionCall(draft.PredictionHash, draft.InputHash, draft.ModelVersion, draft.ContentPointer)
	return p.submit(ctx, call, draft.PredictionHash.Hex(), draft.ModelVersion)
}

// SubmitAdmin runs a reporter-administration write (grant/revoke) through
// the estimate-broadcast-confirm stages. The caller must hold the admin
// role; the contract enforces it and estimation fails otherwise.
func (p *Pipeline) SubmitAdmin(ctx context.Context, call registry.WriteCall) (*Submission, error) {
	account, err := p.wallet.Credential()
	if err != nil {
		return nil, err
	}

	isAdmin, err := p.resolver.IsAdmin(ctx, account)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, failures.New(failures.Unauthorized, "account %s lacks the admin role", account.Hex())
	}

	return p.submit(ctx, call, "", "")
}

// IsDuplicate reports whether a record already exists for the draft's
// prediction hash. Offered as a pre-submission convenience; the ledger
// itself is the authority and rejects duplicates on inclusion.
func (p *Pipeline) IsDuplicate(ctx context.Context, draft Draft) (bool, error) {
	return p.gateway.IsRecorded(ctx, draft.PredictionHash)
}

// validate applies the local checks that must reject before gas is spent.
func (p *Pipeline) validate(ctx context.Context, draft Draft) error {
	if draft.PredictionHash.IsZero() {
		return failures.New(failures.MissingField, "predictionHash is required")
	}
	if draft.InputHash.IsZero() {
		return failures.New(failures.MissingField, "inputHash is required")
	}
	if draft.ModelVersion == "" {
		return failures.New(failures.MissingField, "modelVersion is required")
	}

	account, err := p.wallet.Credential()
	if err != nil {
		return err
	}

	status := p.wallet.Status()
	authorized, err := p.resolver.IsAuthorizedReporter(ctx, account, status.NetworkID)
	if err != nil {
		return err
	}
	if !authorized {
		return failures.New(failures.Unauthorized, "account %s lacks the reporter role", account.Hex())
	}

	return nil
}

// submit runs the estimate-broadcast-confirm stages shared by record and
// admin writes.
func (p *Pipeline) submit(ctx context.Context, call registry.WriteCall, predictionHash, modelVersion string) (*Submission, error) {
	// Estimating
	estimate, err := p.gateway.EstimateGas(ctx, call)
	if err != nil {
		if failures.KindOf(err) == failures.NoSigner {
			return nil, err
		}
		metrics.Submissions.WithLabelValues("estimation_failed").Inc()
		return nil, failures.Wrap(failures.EstimationFailed, err,
			"gas estimation for %s failed, the call would likely revert", call.Method)
	}

	gasLimit := (estimate*gasMarginNumerator + gasMarginDenominator - 1) / gasMarginDenominator

	log.WithFields(log.Fields{
		"method":    call.Method,
		"estimate":  estimate,
		"gas_limit": gasLimit,
	}).Debug("Gas estimated")

	// AwaitingSignature -> Pending
	txID, err := p.gateway.Submit(ctx, call, gasLimit)
	if err != nil {
		metrics.Submissions.WithLabelValues("broadcast_failed").Inc()
		return nil, err
	}

	events.Emit(p.sink, events.Event{
		Type:           events.EventSubmissionBroadcast,
		PredictionHash: predictionHash,
		ModelVersion:   modelVersion,
		TransactionID:  txID.Hex(),
	})

	submission := &Submission{
		txID:  txID,
		phase: PhasePending,
		done:  make(chan struct{}),
	}

	go p.confirm(submission, predictionHash, modelVersion)

	return submission, nil
}

// confirm tracks one pending submission to its terminal phase.
func (p *Pipeline) confirm(s *Submission, predictionHash, modelVersion string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.confirmationTimeout)
	defer cancel()

	started := time.Now()
	receipt, err := p.gateway.WaitForReceipt(ctx, s.txID)
	if err != nil {
		metrics.Submissions.WithLabelValues("timeout").Inc()
		events.Emit(p.sink, events.Event{
			Type:           events.EventSubmissionFailed,
			PredictionHash: predictionHash,
			TransactionID:  s.txID.Hex(),
			Reason:         err.Error(),
		})
		log.WithError(err).WithField("tx_id", s.txID.Hex()).Warn("Confirmation wait expired, outcome unknown")
		s.settle(PhaseFailed, nil, err)
		return
	}

	if receipt.Reverted {
		metrics.Submissions.WithLabelValues("reverted").Inc()
		revertErr := failures.New(failures.TransactionReverted, "transaction %s reverted at block %d",
			s.txID.Hex(), receipt.BlockHeight)
		events.Emit(p.sink, events.Event{
			Type:           events.EventSubmissionFailed,
			PredictionHash: predictionHash,
			TransactionID:  s.txID.Hex(),
			BlockHeight:    receipt.BlockHeight,
			Reason:         revertErr.Error(),
		})
		log.WithFields(log.Fields{
			"tx_id": s.txID.Hex(),
			"block": receipt.BlockHeight,
		}).Error("Transaction reverted")
		s.settle(PhaseFailed, nil, revertErr)
		return
	}

	metrics.Submissions.WithLabelValues("confirmed").Inc()
	metrics.SubmissionDuration.Observe(time.Since(started).Seconds())

	outcome := &Outcome{
		TransactionID: s.txID,
		BlockHeight:   receipt.BlockHeight,
		GasUsed:       receipt.GasUsed,
	}
	events.Emit(p.sink, events.Event{
		Type:           events.EventSubmissionConfirmed,
		PredictionHash: predictionHash,
		ModelVersion:   modelVersion,
		TransactionID:  s.txID.Hex(),
		BlockHeight:    receipt.BlockHeight,
	})
	log.WithFields(log.Fields{
		"tx_id":    s.txID.Hex(),
		"block":    receipt.BlockHeight,
		"gas_used": receipt.GasUsed,
	}).Info("Submission confirmed")

	s.settle(PhaseConfirmed, outcome, nil)
}

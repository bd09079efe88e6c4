package submitter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/identifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry/registrytest"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/roles"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/submitter"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet/wallettest"
)

var (
	testChain    = wallet.ChainMetadata{ChainID: 11155111, Name: "Sepolia Testnet"}
	reporterAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

type fixture struct {
	rpc      *registrytest.FakeRPC
	manager  *wallet.Manager
	pipeline *submitter.Pipeline
}

func newFixture(t *testing.T, connect bool) *fixture {
	t.Helper()

	rpc := registrytest.NewFakeRPC()
	rpc.Reporters[reporterAddr] = true

	provider := wallettest.NewFakeProvider(testChain.ChainID, reporterAddr)
	manager := wallet.NewManager(provider, testChain)
	t.Cleanup(manager.Close)

	if connect {
		_, err := manager.Connect(context.Background())
		require.NoError(t, err)
	}

	gateway, err := registry.NewGateway(&registry.Config{
		RPC:             rpc,
		Wallet:          manager,
		ContractAddress: common.HexToAddress("0x01"),
		EventBatchSize:  1000,
	})
	require.NoError(t, err)

	resolver := roles.NewResolver(gateway, manager)
	t.Cleanup(resolver.Close)

	pipeline := submitter.NewPipeline(&submitter.Config{
		Gateway:             gateway,
		Resolver:            resolver,
		Wallet:              manager,
		ConfirmationTimeout: 5 * time.Second,
	})

	return &fixture{rpc: rpc, manager: manager, pipeline: pipeline}
}

func validDraft() submitter.Draft {
	return submitter.Draft{
		PredictionHash: identifier.HashString("prediction"),
		InputHash:      identifier.HashString("input"),
		ModelVersion:   "v1.0.0",
		ContentPointer: "QmExample",
	}
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	f := newFixture(t, true)

	cases := []struct {
		name   string
		mutate func(*submitter.Draft)
	}{
		{"prediction hash", func(d *submitter.Draft) { d.PredictionHash = identifier.Zero }},
		{"input hash", func(d *submitter.Draft) { d.InputHash = identifier.Zero }},
		{"model version", func(d *submitter.Draft) { d.ModelVersion = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)

			_, err := f.pipeline.Submit(context.Background(), draft)
			assert.Equal(t, failures.MissingField, failures.KindOf(err))
			assert.Zero(t, f.rpc.EstimateCalls)
			assert.Zero(t, f.rpc.SendCalls)
		})
	}
}

func TestSubmitRejectsUnauthorizedBeforeAnyGasSpend(t *testing.T) {
	f := newFixture(t, true)
	delete(f.rpc.Reporters, reporterAddr)

	_, err := f.pipeline.Submit(context.Background(), validDraft())
	assert.Equal(t, failures.Unauthorized, failures.KindOf(err))
	assert.Zero(t, f.rpc.EstimateCalls, "unauthorized drafts must not reach estimation")
	assert.Zero(t, f.rpc.SendCalls)
}

func TestSubmitRequiresConnectedWallet(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.pipeline.Submit(context.Background(), validDraft())
	assert.Equal(t, failures.NoSigner, failures.KindOf(err))
}

func TestSubmitAppliesGasMargin(t *testing.T) {
	f := newFixture(t, true)
	f.rpc.GasEstimate = 100000

	submission, err := f.pipeline.Submit(context.Background(), validDraft())
	require.NoError(t, err)
	require.NotNil(t, submission)

	assert.Equal(t, uint64(120000), f.rpc.LastGasLimit)
}

func TestSubmitGasMarginRoundsUp(t *testing.T) {
	f := newFixture(t, true)
	f.rpc.GasEstimate = 21001

	_, err := f.pipeline.Submit(context.Background(), validDraft())
	require.NoError(t, err)

	// 21001 * 1.2 = 25201.2, ceiling.
	assert.Equal(t, uint64(25202), f.rpc.LastGasLimit)
}

func TestSubmitWrapsEstimationFailure(t *testing.T) {
	f := newFixture(t, true)
	f.rpc.EstimateErr = errors.New("execution reverted: record exists")

	_, err := f.pipeline.Submit(context.Background(), validDraft())
	assert.Equal(t, failures.EstimationFailed, failures.KindOf(err))
	assert.Zero(t, f.rpc.SendCalls)
}

func TestSubmitConfirms(t *testing.T) {
	f := newFixture(t, true)

	submission, err := f.pipeline.Submit(context.Background(), validDraft())
	require.NoError(t, err)
	assert.Equal(t, submitter.PhasePending, submission.Phase())

	f.rpc.SeedReceipt(submission.TransactionID(), &registry.Receipt{
		BlockHeight: 4242,
		GasUsed:     87000,
	})

	outcome, err := submission.Wait(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, submitter.PhaseConfirmed, submission.Phase())
	assert.Equal(t, submission.TransactionID(), outcome.TransactionID)
	assert.Equal(t, uint64(4242), outcome.BlockHeight)
	assert.Equal(t, uint64(87000), outcome.GasUsed)
}

func TestSubmitSurfacesRevert(t *testing.T) {
	f := newFixture(t, true)

	submission, err := f.pipeline.Submit(context.Background(), validDraft())
	require.NoError(t, err)

	f.rpc.SeedReceipt(submission.TransactionID(), &registry.Receipt{
		BlockHeight: 100,
		Reverted:    true,
	})

	outcome, err := submission.Wait(context.Background())
	assert.Nil(t, outcome)
	assert.Equal(t, failures.TransactionReverted, failures.KindOf(err))
	assert.Equal(t, submitter.PhaseFailed, submission.Phase())
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	f := newFixture(t, true)

	// A pipeline with a very short confirmation window and no receipt ever
	// seeded settles as failed with an unknown outcome.
	gateway := mustGateway(t, f)
	resolver := roles.NewResolver(gateway, f.manager)
	t.Cleanup(resolver.Close)

	short := submitter.NewPipeline(&submitter.Config{
		Gateway:             gateway,
		Resolver:            resolver,
		Wallet:              f.manager,
		ConfirmationTimeout: 50 * time.Millisecond,
	})

	submission, err := short.Submit(context.Background(), validDraft())
	require.NoError(t, err)

	outcome, err := submission.Wait(context.Background())
	assert.Nil(t, outcome)
	assert.Equal(t, failures.ConfirmationTimeout, failures.KindOf(err))
	assert.Equal(t, submitter.PhaseFailed, submission.Phase())
}

func mustGateway(t *testing.T, f *fixture) *registry.Gateway {
	t.Helper()
	gw, err := registry.NewGateway(&registry.Config{
		RPC:             f.rpc,
		Wallet:          f.manager,
		ContractAddress: common.HexToAddress("0x01"),
		EventBatchSize:  1000,
	})
	require.NoError(t, err)
	return gw
}

func TestWaitHonoursCallerContext(t *testing.T) {
	f := newFixture(t, true)

	submission, err := f.pipeline.Submit(context.Background(), validDraft())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = submission.Wait(ctx)
	assert.Equal(t, failures.ConfirmationTimeout, failures.KindOf(err))
}

func TestIsDuplicate(t *testing.T) {
	f := newFixture(t, true)
	draft := validDraft()

	dup, err := f.pipeline.IsDuplicate(context.Background(), draft)
	require.NoError(t, err)
	assert.False(t, dup)

	f.rpc.Records[draft.PredictionHash.Bytes32()] = registrytest.StoredRecord{
		PredictionHash: draft.PredictionHash.Bytes32(),
	}

	dup, err = f.pipeline.IsDuplicate(context.Background(), draft)
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestSubmitAdminRequiresAdminRole(t *testing.T) {
	f := newFixture(t, true)

	call := registry.GrantReporterCall(common.HexToAddress("0x02"))
	_, err := f.pipeline.SubmitAdmin(context.Background(), call)
	assert.Equal(t, failures.Unauthorized, failures.KindOf(err))
	assert.Zero(t, f.rpc.EstimateCalls)
}

func TestSubmitAdminGrantsReporter(t *testing.T) {
	f := newFixture(t, true)
	f.rpc.Admins[reporterAddr] = true

	call := registry.GrantReporterCall(common.HexToAddress("0x02"))
	submission, err := f.pipeline.SubmitAdmin(context.Background(), call)
	require.NoError(t, err)

	f.rpc.SeedReceipt(submission.TransactionID(), &registry.Receipt{BlockHeight: 9})

	outcome, err := submission.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), outcome.BlockHeight)
	assert.Equal(t, 1, f.rpc.SendCalls)
}

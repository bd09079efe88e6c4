package verifier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/identifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry/registrytest"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/verifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet/wallettest"
)

var testChain = wallet.ChainMetadata{ChainID: 11155111, Name: "Sepolia Testnet"}

func newVerifier(t *testing.T, rpc *registrytest.FakeRPC) *verifier.Verifier {
	t.Helper()

	provider := wallettest.NewFakeProvider(testChain.ChainID)
	manager := wallet.NewManager(provider, testChain)
	t.Cleanup(manager.Close)

	gateway, err := registry.NewGateway(&registry.Config{
		RPC:             rpc,
		Wallet:          manager,
		ContractAddress: common.HexToAddress("0x01"),
		EventBatchSize:  1000,
	})
	require.NoError(t, err)

	return verifier.NewVerifier(gateway, nil)
}

func TestVerifyNotFound(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	v := newVerifier(t, rpc)

	result, err := v.Verify(context.Background(), identifier.HashString("missing"))
	require.NoError(t, err)

	assert.Equal(t, verifier.NotFound, result.Verdict)
	assert.Nil(t, result.Record)
}

func TestVerifyMatch(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	hash := identifier.HashString("known")
	rpc.Records[hash.Bytes32()] = registrytest.StoredRecord{
		PredictionHash: hash.Bytes32(),
		ModelVersion:   "v1.0.0",
		Timestamp:      1700000000,
	}
	v := newVerifier(t, rpc)

	result, err := v.Verify(context.Background(), hash)
	require.NoError(t, err)

	assert.Equal(t, verifier.Verified, result.Verdict)
	require.NotNil(t, result.Record)
	assert.Equal(t, hash, result.Record.PredictionHash)
}

func TestVerifyMismatch(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	local := identifier.HashString("local")
	// The ledger answers the query but holds a different identifier.
	rpc.Records[local.Bytes32()] = registrytest.StoredRecord{
		PredictionHash: identifier.HashString("tampered").Bytes32(),
		ModelVersion:   "v1.0.0",
	}
	v := newVerifier(t, rpc)

	result, err := v.Verify(context.Background(), local)
	require.NoError(t, err)

	assert.Equal(t, verifier.Mismatch, result.Verdict)
	require.NotNil(t, result.Record)
}

func TestVerifyPerformsSingleRead(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	hash := identifier.HashString("known")
	rpc.Records[hash.Bytes32()] = registrytest.StoredRecord{PredictionHash: hash.Bytes32()}
	v := newVerifier(t, rpc)

	_, err := v.Verify(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, 1, rpc.CallCount)

	// Verdicts are never cached; each call reads again.
	_, err = v.Verify(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, 2, rpc.CallCount)
}

func TestVerifyPropagatesTransportFailure(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	rpc.CallErr = errors.New("connection refused")
	v := newVerifier(t, rpc)

	result, err := v.Verify(context.Background(), identifier.HashString("x"))
	assert.Nil(t, result)
	assert.Equal(t, failures.RpcUnavailable, failures.KindOf(err))
}

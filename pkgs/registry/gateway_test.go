package registry_test

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
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet/wallettest"
)

var (
	testChain    = wallet.ChainMetadata{ChainID: 11155111, Name: "Sepolia Testnet"}
	reporterAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	contractAddr = common.HexToAddress("0x550C0d0063c6d3fA6de9F1055Db5917800892F10")
)

func newConnectedManager(t *testing.T) *wallet.Manager {
	t.Helper()
	provider := wallettest.NewFakeProvider(testChain.ChainID, reporterAddr)
	m := wallet.NewManager(provider, testChain)
	t.Cleanup(m.Close)

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	return m
}

func newDisconnectedManager(t *testing.T) *wallet.Manager {
	t.Helper()
	provider := wallettest.NewFakeProvider(testChain.ChainID, reporterAddr)
	m := wallet.NewManager(provider, testChain)
	t.Cleanup(m.Close)
	return m
}

func newGateway(t *testing.T, rpc *registrytest.FakeRPC, m *wallet.Manager) *registry.Gateway {
	t.Helper()
	gw, err := registry.NewGateway(&registry.Config{
		RPC:             rpc,
		Wallet:          m,
		ContractAddress: contractAddr,
		EventBatchSize:  1000,
	})
	require.NoError(t, err)
	return gw
}

func TestReadRecordAbsent(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newConnectedManager(t))

	record, err := gw.ReadRecord(context.Background(), identifier.HashString("never written"))
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestReadRecordRoundTrip(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newConnectedManager(t))

	predictionHash := identifier.HashString("prediction")
	inputHash := identifier.HashString("input")
	rpc.Records[predictionHash.Bytes32()] = registrytest.StoredRecord{
		PredictionHash: predictionHash.Bytes32(),
		InputHash:      inputHash.Bytes32(),
		ModelVersion:   "v1.0.0",
		ContentPointer: "QmExample",
		Reporter:       reporterAddr,
		Timestamp:      1700000000,
		BlockHeight:    42,
	}

	record, err := gw.ReadRecord(context.Background(), predictionHash)
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, predictionHash, record.PredictionHash)
	assert.Equal(t, inputHash, record.InputHash)
	assert.Equal(t, "v1.0.0", record.ModelVersion)
	assert.Equal(t, "QmExample", record.ContentPointer)
	assert.Equal(t, reporterAddr, record.Reporter)
	assert.Equal(t, uint64(1700000000), record.Timestamp)
	assert.Equal(t, uint64(42), record.BlockHeight)
}

func TestReadRecordTransportFailure(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	rpc.CallErr = errors.New("connection refused")
	gw := newGateway(t, rpc, newConnectedManager(t))

	_, err := gw.ReadRecord(context.Background(), identifier.HashString("x"))
	assert.Equal(t, failures.RpcUnavailable, failures.KindOf(err))
}

func TestIsRecorded(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newConnectedManager(t))

	hash := identifier.HashString("recorded")
	rpc.Records[hash.Bytes32()] = registrytest.StoredRecord{PredictionHash: hash.Bytes32()}

	recorded, err := gw.IsRecorded(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = gw.IsRecorded(context.Background(), identifier.HashString("other"))
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestReporterRoleFetchedOnce(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newConnectedManager(t))

	first, err := gw.ReporterRole(context.Background())
	require.NoError(t, err)
	calls := rpc.CallCount

	second, err := gw.ReporterRole(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, calls, rpc.CallCount, "role constant should be cached")
}

func TestHasRole(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	rpc.Reporters[reporterAddr] = true
	gw := newGateway(t, rpc, newConnectedManager(t))

	role, err := gw.ReporterRole(context.Background())
	require.NoError(t, err)

	ok, err := gw.HasRole(context.Background(), role, reporterAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gw.HasRole(context.Background(), role, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitRequiresConnection(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newDisconnectedManager(t))

	call := registry.RecordPredictionCall(
		identifier.HashString("p"), identifier.HashString("i"), "v1", "")

	_, err := gw.Submit(context.Background(), call, 100000)
	assert.Equal(t, failures.NoSigner, failures.KindOf(err))
	assert.Zero(t, rpc.SendCalls)
}

func TestSubmitBroadcastsWithGasLimit(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newConnectedManager(t))

	call := registry.RecordPredictionCall(
		identifier.HashString("p"), identifier.HashString("i"), "v1", "")

	txID, err := gw.Submit(context.Background(), call, 120000)
	require.NoError(t, err)

	assert.NotEqual(t, common.Hash{}, txID)
	assert.Equal(t, 1, rpc.SendCalls)
	assert.Equal(t, uint64(120000), rpc.LastGasLimit)
}

func TestQueryEventsDecodesHistory(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newConnectedManager(t))

	predictionHash := identifier.HashString("event")
	txID := common.HexToHash("0xdead")
	rpc.AddLog(registrytest.StoredRecord{
		PredictionHash: predictionHash.Bytes32(),
		InputHash:      identifier.HashString("in").Bytes32(),
		ModelVersion:   "v2.1.0",
		ContentPointer: "QmCid",
		Reporter:       reporterAddr,
		Timestamp:      1700000100,
		BlockHeight:    7,
	}, txID)

	entries, err := gw.QueryEvents(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, predictionHash, entry.PredictionHash)
	assert.Equal(t, "v2.1.0", entry.ModelVersion)
	assert.Equal(t, "QmCid", entry.ContentPointer)
	assert.Equal(t, reporterAddr, entry.Reporter)
	assert.Equal(t, uint64(1700000100), entry.Timestamp)
	assert.Equal(t, uint64(7), entry.BlockHeight)
	assert.Equal(t, txID, entry.TransactionID)
}

func TestQueryEventsSplitsWideRanges(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw, err := registry.NewGateway(&registry.Config{
		RPC:             rpc,
		Wallet:          newConnectedManager(t),
		ContractAddress: contractAddr,
		EventBatchSize:  100,
	})
	require.NoError(t, err)

	for i := uint64(1); i <= 5; i++ {
		rpc.AddLog(registrytest.StoredRecord{
			PredictionHash: identifier.HashString(string(rune('a' + i))).Bytes32(),
			ModelVersion:   "v1",
			Reporter:       reporterAddr,
			Timestamp:      1000 + i,
			BlockHeight:    i * 50,
		}, common.Hash{byte(i)})
	}

	entries, err := gw.QueryEvents(context.Background(), 0, 250)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	// Windows must cover the range in order without overlap.
	for _, window := range rpc.QueryWindows {
		assert.LessOrEqual(t, window[1]-window[0]+1, uint64(100))
	}
	// Order preserved across windows.
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].BlockHeight, entries[i].BlockHeight)
	}
}

func TestQueryEventsSubdividesOnRangeTooLarge(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	rpc.RangeLimit = 40

	gw, err := registry.NewGateway(&registry.Config{
		RPC:             rpc,
		Wallet:          newConnectedManager(t),
		ContractAddress: contractAddr,
		EventBatchSize:  100,
	})
	require.NoError(t, err)

	rpc.AddLog(registrytest.StoredRecord{
		PredictionHash: identifier.HashString("low").Bytes32(),
		ModelVersion:   "v1",
		Reporter:       reporterAddr,
		Timestamp:      1,
		BlockHeight:    10,
	}, common.Hash{1})
	rpc.AddLog(registrytest.StoredRecord{
		PredictionHash: identifier.HashString("high").Bytes32(),
		ModelVersion:   "v1",
		Reporter:       reporterAddr,
		Timestamp:      2,
		BlockHeight:    90,
	}, common.Hash{2})

	entries, err := gw.QueryEvents(context.Background(), 0, 99)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(10), entries[0].BlockHeight)
	assert.Equal(t, uint64(90), entries[1].BlockHeight)
}

func TestQueryEventsEmptyRange(t *testing.T) {
	rpc := registrytest.NewFakeRPC()
	gw := newGateway(t, rpc, newConnectedManager(t))

	entries, err := gw.QueryEvents(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, rpc.QueryWindows)
}

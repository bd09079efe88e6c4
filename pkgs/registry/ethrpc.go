package registry

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
)

const receiptPollInterval = 2 * time.Second

// EthRPC implements the RPC transport over a JSON-RPC endpoint using
// ethclient. When constructed with a private key it signs outgoing writes;
// without one it serves reads only.
type EthRPC struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// DialEthRPC connects to a JSON-RPC endpoint. privateKeyHex may be empty
// for read-only use.
func DialEthRPC(ctx context.Context, rpcURL, privateKeyHex string, chainID uint64) (*EthRPC, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, failures.Wrap(failures.RpcUnavailable, err, "failed to connect to %s", rpcURL)
	}

	rpc := &EthRPC{
		client:  client,
		chainID: new(big.Int).SetUint64(chainID),
	}

	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		rpc.key = key
		rpc.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return rpc, nil
}

// SignerAddress returns the address derived from the configured key, or the
// zero address in read-only mode.
func (e *EthRPC) SignerAddress() common.Address {
	return e.from
}

// ChainID reads the chain id from the endpoint.
func (e *EthRPC) ChainID(ctx context.Context) (uint64, error) {
	id, err := e.client.ChainID(ctx)
	if err != nil {
		return 0, failures.Wrap(failures.RpcUnavailable, err, "failed to read chain id")
	}
	return id.Uint64(), nil
}

// Call executes a read-only contract call.
func (e *EthRPC) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &to, Data: data}
	raw, err := e.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, failures.Wrap(failures.RpcUnavailable, err, "contract call failed")
	}
	return raw, nil
}

// EstimateGas estimates gas units for the exact call parameters.
func (e *EthRPC) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	msg := ethereum.CallMsg{From: from, To: &to, Data: data}
	return e.client.EstimateGas(ctx, msg)
}

// SendTransaction signs and broadcasts a write.
func (e *EthRPC) SendTransaction(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	if e.key == nil {
		return common.Hash{}, failures.New(failures.NoSigner, "transport has no signing key")
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return common.Hash{}, failures.Wrap(failures.RpcUnavailable, err, "failed to get nonce")
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, failures.Wrap(failures.RpcUnavailable, err, "failed to get gas price")
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), e.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, failures.Wrap(failures.RpcUnavailable, err, "failed to send transaction")
	}

	return signedTx.Hash(), nil
}

// WaitForReceipt polls for inclusion until ctx expires. Expiry means
// unknown outcome, not rollback: the transaction may still land later.
func (e *EthRPC) WaitForReceipt(ctx context.Context, txID common.Hash) (*Receipt, error) {
	for {
		receipt, err := e.client.TransactionReceipt(ctx, txID)
		if err == nil {
			return &Receipt{
				BlockHeight: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
				Reverted:    receipt.Status == types.ReceiptStatusFailed,
			}, nil
		}
		if err != ethereum.NotFound {
			log.WithError(err).WithField("tx_id", txID.Hex()).Debug("Receipt poll failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, failures.Wrap(failures.ConfirmationTimeout, ctx.Err(), "no receipt for %s", txID.Hex())
		case <-time.After(receiptPollInterval):
		}
	}
}

// QueryLogs fetches logs for one topic over an inclusive block range.
func (e *EthRPC) QueryLogs(ctx context.Context, address common.Address, topic common.Hash, fromHeight, toHeight uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{{topic}},
		FromBlock: new(big.Int).SetUint64(fromHeight),
		ToBlock:   new(big.Int).SetUint64(toHeight),
	}

	logs, err := e.client.FilterLogs(ctx, query)
	if err != nil {
		if isRangeError(err) {
			return nil, failures.Wrap(failures.RangeTooLarge, err, "log query window %d-%d rejected", fromHeight, toHeight)
		}
		return nil, failures.Wrap(failures.RpcUnavailable, err, "log query failed")
	}
	return logs, nil
}

// BlockNumber returns the current chain head.
func (e *EthRPC) BlockNumber(ctx context.Context) (uint64, error) {
	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return 0, failures.Wrap(failures.RpcUnavailable, err, "failed to read block number")
	}
	return head, nil
}

// Close closes the underlying client.
func (e *EthRPC) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// isRangeError recognizes provider responses rejecting a log query for
// covering too many blocks or results. Wording varies per provider.
func isRangeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"block range",
		"query returned more than",
		"too many results",
		"exceed maximum block range",
		"range too large",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

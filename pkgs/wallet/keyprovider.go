package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
)

// NetworkFunc reports the chain id of the active endpoint.
type NetworkFunc func(ctx context.Context) (uint64, error)

// KeyProvider is the headless Provider: one local ECDSA key over a fixed
// RPC endpoint. There is no user to prompt, so RequestAccounts and Accounts
// behave identically, and there is no network to switch.
type KeyProvider struct {
	account common.Address
	hasKey  bool
	network NetworkFunc
}

// NewKeyProvider derives the account from a hex private key. An empty key
// yields a provider with no accounts (read-only sessions).
func NewKeyProvider(privateKeyHex string, network NetworkFunc) (*KeyProvider, error) {
	p := &KeyProvider{network: network}

	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		p.account = crypto.PubkeyToAddress(key.PublicKey)
		p.hasKey = true
	}

	return p, nil
}

func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return p.Accounts(ctx)
}

func (p *KeyProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	if !p.hasKey {
		return nil, nil
	}
	return []common.Address{p.account}, nil
}

func (p *KeyProvider) ActiveNetwork(ctx context.Context) (uint64, error) {
	if p.network == nil {
		return 0, failures.New(failures.ProviderUnavailable, "no network reader configured")
	}
	return p.network(ctx)
}

// SwitchNetwork cannot repoint a fixed RPC endpoint.
func (p *KeyProvider) SwitchNetwork(ctx context.Context, chainID uint64) error {
	return fmt.Errorf("key provider is bound to a fixed endpoint, cannot switch to chain %d", chainID)
}

func (p *KeyProvider) AddNetwork(ctx context.Context, meta ChainMetadata) error {
	return fmt.Errorf("key provider cannot add networks")
}

// OnAccountsChanged never fires: a local key does not change underneath us.
func (p *KeyProvider) OnAccountsChanged(handler func([]common.Address)) func() {
	return func() {}
}

func (p *KeyProvider) OnNetworkChanged(handler func(uint64)) func() {
	return func() {}
}

package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ChainMetadata is the canonical description of a network, carried on an
// add-network request when the provider does not know the target chain.
type ChainMetadata struct {
	ChainID          uint64
	Name             string
	RPCURL           string
	CurrencyName     string
	CurrencySymbol   string
	CurrencyDecimals int
	ExplorerURL      string
}

// SepoliaMetadata is the default target network.
var SepoliaMetadata = ChainMetadata{
	ChainID:          11155111,
	Name:             "Sepolia Testnet",
	RPCURL:           "https://rpc.sepolia.org",
	CurrencyName:     "Sepolia ETH",
	CurrencySymbol:   "SEP",
	CurrencyDecimals: 18,
	ExplorerURL:      "https://sepolia.etherscan.io",
}

// ErrUnknownNetwork is returned by SwitchNetwork when the provider has no
// configuration for the requested chain. The manager reacts by issuing an
// add-network request and retrying the switch.
var ErrUnknownNetwork = errors.New("unknown network")

// Provider is the wallet/network collaborator. It is always an explicitly
// injected handle; no component reaches for ambient global state.
//
// Implementations classify their own failures (user declined, transport
// down) using the failures package so the manager never has to interpret
// provider-specific error strings.
type Provider interface {
	// RequestAccounts asks the user for account access. May prompt.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	// ActiveNetwork returns the chain id the provider is currently on.
	ActiveNetwork(ctx context.Context) (uint64, error)

	// SwitchNetwork asks the provider to move to the given chain. Returns
	// ErrUnknownNetwork if the chain is not configured.
	SwitchNetwork(ctx context.Context, chainID uint64) error

	// AddNetwork registers a chain with the provider.
	AddNetwork(ctx context.Context, meta ChainMetadata) error

	// OnAccountsChanged subscribes to account change notifications. The
	// returned function cancels the subscription.
	OnAccountsChanged(handler func([]common.Address)) (unsubscribe func())

	// OnNetworkChanged subscribes to network change notifications.
	OnNetworkChanged(handler func(chainID uint64)) (unsubscribe func())
}

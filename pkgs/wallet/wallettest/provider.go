// Package wallettest provides a scriptable wallet provider for tests.
package wallettest

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
)

// FakeProvider is a scriptable wallet.Provider. Fields may be adjusted
// between calls; notification pushes invoke subscribed handlers
// synchronously, like a real provider callback.
type FakeProvider struct {
	mu sync.Mutex

	AccountList []common.Address
	NetworkID   uint64

	RequestErr error
	NetworkErr error
	SwitchErr  error
	AddErr     error

	// KnownNetworks drives SwitchNetwork: switching to an unlisted chain
	// returns wallet.ErrUnknownNetwork until AddNetwork registers it.
	KnownNetworks map[uint64]bool

	SwitchCalls int
	AddCalls    int

	accountHandlers map[int]func([]common.Address)
	networkHandlers map[int]func(uint64)
	nextID          int
}

// NewFakeProvider creates a provider with the given accounts and network.
func NewFakeProvider(network uint64, accounts ...common.Address) *FakeProvider {
	return &FakeProvider{
		AccountList:     accounts,
		NetworkID:       network,
		KnownNetworks:   map[uint64]bool{network: true},
		accountHandlers: make(map[int]func([]common.Address)),
		networkHandlers: make(map[int]func(uint64)),
	}
}

func (p *FakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RequestErr != nil {
		return nil, p.RequestErr
	}
	return p.AccountList, nil
}

func (p *FakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return p.RequestAccounts(ctx)
}

func (p *FakeProvider) ActiveNetwork(ctx context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NetworkErr != nil {
		return 0, p.NetworkErr
	}
	return p.NetworkID, nil
}

func (p *FakeProvider) SwitchNetwork(ctx context.Context, chainID uint64) error {
	p.mu.Lock()
	p.SwitchCalls++
	if p.SwitchErr != nil {
		err := p.SwitchErr
		p.mu.Unlock()
		return err
	}
	if !p.KnownNetworks[chainID] {
		p.mu.Unlock()
		return wallet.ErrUnknownNetwork
	}
	p.NetworkID = chainID
	p.mu.Unlock()

	p.PushNetworkChanged(chainID)
	return nil
}

func (p *FakeProvider) AddNetwork(ctx context.Context, meta wallet.ChainMetadata) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AddCalls++
	if p.AddErr != nil {
		return p.AddErr
	}
	p.KnownNetworks[meta.ChainID] = true
	return nil
}

func (p *FakeProvider) OnAccountsChanged(handler func([]common.Address)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.accountHandlers[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.accountHandlers, id)
	}
}

func (p *FakeProvider) OnNetworkChanged(handler func(uint64)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.networkHandlers[id] = handler
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.networkHandlers, id)
	}
}

// PushAccountsChanged delivers an account-changed notification.
func (p *FakeProvider) PushAccountsChanged(accounts []common.Address) {
	p.mu.Lock()
	p.AccountList = accounts
	handlers := make([]func([]common.Address), 0, len(p.accountHandlers))
	for _, h := range p.accountHandlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(accounts)
	}
}

// PushNetworkChanged delivers a network-changed notification.
func (p *FakeProvider) PushNetworkChanged(chainID uint64) {
	p.mu.Lock()
	p.NetworkID = chainID
	handlers := make([]func(uint64), 0, len(p.networkHandlers))
	for _, h := range p.networkHandlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(chainID)
	}
}

// Package wallet owns wallet-connection and network-identity state. All
// connection transitions flow through the Manager; nothing else in the
// client mutates connection state.
package wallet

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/failures"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateWrongNetwork
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateWrongNetwork:
		return "wrong_network"
	default:
		return "unknown"
	}
}

// Status is a snapshot of connection state. Account and NetworkID are only
// meaningful for StateConnected and StateWrongNetwork.
type Status struct {
	State     State
	Account   common.Address
	NetworkID uint64
}

// CanWrite reports whether write and role-check operations are permitted:
// connected, on the target network.
func (s Status) CanWrite() bool {
	return s.State == StateConnected
}

// CanRead reports whether read operations are permitted. WrongNetwork
// blocks writes but still permits reads.
func (s Status) CanRead() bool {
	return s.State == StateConnected || s.State == StateWrongNetwork
}

// Manager is the connection state machine. It subscribes to the provider's
// account-changed and network-changed notifications for its lifetime and
// keeps Status consistent with them.
type Manager struct {
	provider Provider
	target   ChainMetadata

	mu        sync.Mutex
	status    Status
	observers map[int]func(Status)
	nextObsID int

	unsubAccounts func()
	unsubNetwork  func()
}

// NewManager creates a manager in the Disconnected state and subscribes to
// provider notifications. Close releases the subscriptions.
func NewManager(provider Provider, target ChainMetadata) *Manager {
	m := &Manager{
		provider:  provider,
		target:    target,
		status:    Status{State: StateDisconnected},
		observers: make(map[int]func(Status)),
	}

	if provider != nil {
		m.unsubAccounts = provider.OnAccountsChanged(m.handleAccountsChanged)
		m.unsubNetwork = provider.OnNetworkChanged(m.handleNetworkChanged)
	}

	return m
}

// Status returns the current connection snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// TargetNetwork returns the single supported chain.
func (m *Manager) TargetNetwork() ChainMetadata {
	return m.target
}

// Connect requests account access from the provider and transitions to
// Connected, or WrongNetwork if the provider is on a different chain.
func (m *Manager) Connect(ctx context.Context) (Status, error) {
	if m.provider == nil {
		return Status{State: StateDisconnected}, failures.New(failures.ProviderUnavailable, "no wallet provider configured")
	}

	m.setState(Status{State: StateConnecting})

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		m.setState(Status{State: StateDisconnected})
		if failures.KindOf(err) != "" {
			return Status{State: StateDisconnected}, err
		}
		return Status{State: StateDisconnected}, failures.Wrap(failures.ProviderUnavailable, err, "account request failed")
	}
	if len(accounts) == 0 {
		m.setState(Status{State: StateDisconnected})
		return Status{State: StateDisconnected}, failures.New(failures.NoAccounts, "provider returned no accounts")
	}

	return m.finishConnect(ctx, accounts[0])
}

// ResumeSession probes for already-authorized accounts without prompting
// and connects if any exist. This is the explicit opt-in replacement for
// connect-on-startup side effects.
func (m *Manager) ResumeSession(ctx context.Context) (Status, error) {
	if m.provider == nil {
		return Status{State: StateDisconnected}, failures.New(failures.ProviderUnavailable, "no wallet provider configured")
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		return m.Status(), failures.Wrap(failures.ProviderUnavailable, err, "account probe failed")
	}
	if len(accounts) == 0 {
		return m.Status(), nil
	}

	m.setState(Status{State: StateConnecting})
	return m.finishConnect(ctx, accounts[0])
}

func (m *Manager) finishConnect(ctx context.Context, account common.Address) (Status, error) {
	networkID, err := m.provider.ActiveNetwork(ctx)
	if err != nil {
		m.setState(Status{State: StateDisconnected})
		return Status{State: StateDisconnected}, failures.Wrap(failures.ProviderUnavailable, err, "failed to read active network")
	}

	status := Status{Account: account, NetworkID: networkID}
	if networkID == m.target.ChainID {
		status.State = StateConnected
	} else {
		status.State = StateWrongNetwork
		log.WithFields(log.Fields{
			"active": networkID,
			"target": m.target.ChainID,
		}).Warn("Connected on wrong network")
	}

	m.setState(status)
	log.WithFields(log.Fields{
		"account": account.Hex(),
		"network": networkID,
		"state":   status.State.String(),
	}).Info("Wallet connected")

	return status, nil
}

// Disconnect transitions to Disconnected and notifies observers so cached
// authorization state is cleared. Idempotent, never fails.
func (m *Manager) Disconnect() {
	m.setState(Status{State: StateDisconnected})
}

// RequestNetworkSwitch asks the provider to move to the target chain,
// issuing an add-network request first if the chain is unknown. On failure
// the connection state is left unchanged.
func (m *Manager) RequestNetworkSwitch(ctx context.Context) error {
	if m.provider == nil {
		return failures.New(failures.NetworkSwitchFailed, "no wallet provider configured")
	}

	err := m.provider.SwitchNetwork(ctx, m.target.ChainID)
	if err == ErrUnknownNetwork {
		log.WithField("chain_id", m.target.ChainID).Info("Target network unknown to provider, adding it")
		if addErr := m.provider.AddNetwork(ctx, m.target); addErr != nil {
			return failures.Wrap(failures.NetworkSwitchFailed, addErr, "failed to add target network")
		}
		err = m.provider.SwitchNetwork(ctx, m.target.ChainID)
	}
	if err != nil {
		return failures.Wrap(failures.NetworkSwitchFailed, err, "failed to switch to chain %d", m.target.ChainID)
	}

	// The provider reports the change via the network-changed notification;
	// re-read here as well so callers observe the new state immediately.
	if networkID, nerr := m.provider.ActiveNetwork(ctx); nerr == nil {
		m.handleNetworkChanged(networkID)
	}

	return nil
}

// Credential returns the account usable for signing writes. Fails with
// NoSigner unless connected on the target network.
func (m *Manager) Credential() (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status.State != StateConnected {
		return common.Address{}, failures.New(failures.NoSigner, "writes require a connection on chain %d (state: %s)",
			m.target.ChainID, m.status.State)
	}
	return m.status.Account, nil
}

// Subscribe registers an observer invoked on every state transition, under
// the transition lock, so cache invalidation completes before the next
// state-dependent operation observes the new state. The returned function
// cancels the registration.
func (m *Manager) Subscribe(observer func(Status)) func() {
	m.mu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = observer
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// Close cancels the provider subscriptions.
func (m *Manager) Close() {
	if m.unsubAccounts != nil {
		m.unsubAccounts()
	}
	if m.unsubNetwork != nil {
		m.unsubNetwork()
	}
}

// handleAccountsChanged reacts to provider notifications. An empty account
// list is equivalent to Disconnect.
func (m *Manager) handleAccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		log.Info("Provider reported zero accounts, disconnecting")
		m.Disconnect()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.State == StateDisconnected || m.status.State == StateConnecting {
		return
	}
	if m.status.Account == accounts[0] {
		return
	}

	next := m.status
	next.Account = accounts[0]
	m.applyLocked(next)
	log.WithField("account", accounts[0].Hex()).Info("Active account changed")
}

// handleNetworkChanged re-derives Connected/WrongNetwork from the reported
// chain id.
func (m *Manager) handleNetworkChanged(networkID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.State == StateDisconnected || m.status.State == StateConnecting {
		return
	}

	next := m.status
	next.NetworkID = networkID
	if networkID == m.target.ChainID {
		next.State = StateConnected
	} else {
		next.State = StateWrongNetwork
	}
	if next == m.status {
		return
	}

	m.applyLocked(next)
	log.WithFields(log.Fields{
		"network": networkID,
		"state":   next.State.String(),
	}).Info("Active network changed")
}

func (m *Manager) setState(next Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next == m.status {
		return
	}
	m.applyLocked(next)
}

// applyLocked commits a transition and notifies observers. Callers hold mu.
func (m *Manager) applyLocked(next Status) {
	m.status = next
	for _, observer := range m.observers {
		observer(next)
	}
}

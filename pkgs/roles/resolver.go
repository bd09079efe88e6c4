// Package roles derives reporter authorization from the ledger's access
// control state, with per-connection-epoch caching.
package roles

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
)

type cacheKey struct {
	account   common.Address
	networkID uint64
}

// Resolver answers reporter-authorization queries. Results are cached per
// (account, network) pair and dropped whenever the connection state
// machine's account or network changes, so callers never act on a verdict
// from a previous connection epoch.
type Resolver struct {
	gateway *registry.Gateway

	mu    sync.Mutex
	cache map[cacheKey]bool

	unsubscribe func()
}

// NewResolver creates a resolver and registers it for cache invalidation on
// every connection state transition.
func NewResolver(gateway *registry.Gateway, manager *wallet.Manager) *Resolver {
	r := &Resolver{
		gateway: gateway,
		cache:   make(map[cacheKey]bool),
	}
	if manager != nil {
		r.unsubscribe = manager.Subscribe(func(wallet.Status) {
			r.Invalidate()
		})
	}
	return r
}

// IsAuthorizedReporter reports whether the account holds the reporter role
// on the given network.
func (r *Resolver) IsAuthorizedReporter(ctx context.Context, account common.Address, networkID uint64) (bool, error) {
	key := cacheKey{account: account, networkID: networkID}

	r.mu.Lock()
	if authorized, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return authorized, nil
	}
	r.mu.Unlock()

	role, err := r.gateway.ReporterRole(ctx)
	if err != nil {
		return false, err
	}

	authorized, err := r.gateway.HasRole(ctx, role, account)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	r.cache[key] = authorized
	r.mu.Unlock()

	log.WithFields(log.Fields{
		"account":    account.Hex(),
		"network":    networkID,
		"authorized": authorized,
	}).Debug("Reporter role resolved")

	return authorized, nil
}

// IsAdmin reports whether the account holds the admin role. Admin status is
// read fresh on every call, never cached.
func (r *Resolver) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	role, err := r.gateway.AdminRole(ctx)
	if err != nil {
		return false, err
	}
	return r.gateway.HasRole(ctx, role, account)
}

// Invalidate drops all cached verdicts.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[cacheKey]bool)
	r.mu.Unlock()
}

// Close cancels the connection-state subscription.
func (r *Resolver) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

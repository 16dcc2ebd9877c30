package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/copybot/storage"
	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// REGISTRY - Watched wallet CRUD on top of the selected store
// ═══════════════════════════════════════════════════════════════════════════════

var (
	ErrInvalidAddress  = errors.New("invalid wallet address")
	ErrInvalidStatus   = errors.New("invalid wallet status")
	ErrDuplicateWallet = storage.ErrDuplicateWallet
	ErrWalletNotFound  = storage.ErrWalletNotFound
)

// NormalizeAddress validates a 0x-prefixed 40 hex char address and lowercases it
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if len(address) != 42 || !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return strings.ToLower(address), nil
}

type Registry struct {
	store storage.WalletStore
}

// NewRegistry wraps a wallet store
func NewRegistry(store storage.WalletStore) *Registry {
	return &Registry{store: store}
}

// Add registers a new active wallet. Duplicates are rejected case-insensitively.
func (r *Registry) Add(ctx context.Context, address, name string) (*types.WatchedWallet, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	w := &types.WatchedWallet{
		Address: addr,
		Name:    strings.TrimSpace(name),
		Status:  types.WalletActive,
		AddedAt: time.Now().UTC(),
	}
	if err := r.store.InsertWallet(ctx, w); err != nil {
		if errors.Is(err, storage.ErrDuplicateWallet) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateWallet, addr)
		}
		return nil, err
	}

	log.Info().Str("address", addr).Str("name", w.Name).Msg("➕ Wallet added")
	return w, nil
}

// Remove deletes a wallet; false if it was not registered
func (r *Registry) Remove(ctx context.Context, address string) (bool, error) {
	return r.store.DeleteWallet(ctx, strings.ToLower(strings.TrimSpace(address)))
}

// SetStatus toggles active/paused; false if the wallet is unknown
func (r *Registry) SetStatus(ctx context.Context, address string, status types.WalletStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return r.store.SetStatus(ctx, strings.ToLower(strings.TrimSpace(address)), status)
}

// UpdateStats replaces the wallet's performance snapshot
func (r *Registry) UpdateStats(ctx context.Context, address string, stats types.WalletStats) (bool, error) {
	return r.store.UpdateStats(ctx, strings.ToLower(strings.TrimSpace(address)), stats)
}

// UpdateLastChecked touches every known address; unknown ones are ignored
func (r *Registry) UpdateLastChecked(ctx context.Context, addresses []string) error {
	lower := make([]string, 0, len(addresses))
	for _, a := range addresses {
		lower = append(lower, strings.ToLower(a))
	}
	return r.store.TouchLastChecked(ctx, lower, time.Now().UTC())
}

// Get returns a single wallet
func (r *Registry) Get(ctx context.Context, address string) (*types.WatchedWallet, error) {
	return r.store.GetWallet(ctx, strings.ToLower(strings.TrimSpace(address)))
}

// GetActive returns wallets that should be polled
func (r *Registry) GetActive(ctx context.Context) ([]types.WatchedWallet, error) {
	return r.store.ListWallets(ctx, true)
}

// GetAll returns every registered wallet
func (r *Registry) GetAll(ctx context.Context) ([]types.WatchedWallet, error) {
	return r.store.ListWallets(ctx, false)
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STORES - Backend-agnostic persistence for wallets and signals
// ═══════════════════════════════════════════════════════════════════════════════
//
// Backend is picked once by Open:
//   DATABASE_URL reachable → relational (postgres / sqlite via gorm)
//   otherwise              → JSON files under the data directory
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	ErrDuplicateWallet = errors.New("wallet already exists")
	ErrWalletNotFound  = errors.New("wallet not found")
)

const (
	BackendRelational = "relational"
	BackendFile       = "file"
)

// WalletStore persists watched wallets keyed by lowercase address
type WalletStore interface {
	InsertWallet(ctx context.Context, w *types.WatchedWallet) error
	DeleteWallet(ctx context.Context, address string) (bool, error)
	GetWallet(ctx context.Context, address string) (*types.WatchedWallet, error)
	ListWallets(ctx context.Context, activeOnly bool) ([]types.WatchedWallet, error)
	SetStatus(ctx context.Context, address string, status types.WalletStatus) (bool, error)
	UpdateStats(ctx context.Context, address string, stats types.WalletStats) (bool, error)
	TouchLastChecked(ctx context.Context, addresses []string, at time.Time) error
}

// SignalStore is a write sink for emitted signals
type SignalStore interface {
	SaveSignal(ctx context.Context, sig *types.CopySignal) error
}

// Options configures Open
type Options struct {
	DatabaseURL  string
	MaxOpenConns int
	DataDir      string
	WalletsFile  string
}

// Stores bundles the selected backend
type Stores struct {
	Backend string
	Wallets WalletStore
	Signals SignalStore // nil on the file backend
	DB      *Database   // nil on the file backend
}

// Open selects the backend. An unreachable database degrades to the file
// store; only a broken file store is an error.
func Open(opts Options) (*Stores, error) {
	if opts.DatabaseURL != "" {
		db, err := NewDatabase(opts.DatabaseURL, opts.MaxOpenConns)
		if err == nil {
			return &Stores{
				Backend: BackendRelational,
				Wallets: db,
				Signals: db,
				DB:      db,
			}, nil
		}
		log.Warn().Err(err).Msg("Database unavailable, falling back to file store")
	}

	walletsFile := opts.WalletsFile
	if walletsFile == "" {
		walletsFile = "wallets.json"
	}
	fs, err := OpenFileStore(filepath.Join(opts.DataDir, walletsFile))
	if err != nil {
		return nil, err
	}

	return &Stores{
		Backend: BackendFile,
		Wallets: fs,
	}, nil
}

// Close releases the database connection, if any
func (s *Stores) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

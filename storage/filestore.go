package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// FILE STORE - JSON-backed wallet registry used when no database is configured
// ═══════════════════════════════════════════════════════════════════════════════

type walletFile struct {
	Wallets []types.WatchedWallet `json:"wallets"`
}

// FileStore keeps the whole registry in memory and rewrites the file on
// every mutation
type FileStore struct {
	mu      sync.RWMutex
	path    string
	wallets []types.WatchedWallet
}

// OpenFileStore loads path, starting empty if it does not exist
func OpenFileStore(path string) (*FileStore, error) {
	var f walletFile
	if _, err := readJSON(path, &f); err != nil {
		return nil, err
	}

	log.Debug().Str("path", path).Int("wallets", len(f.Wallets)).Msg("Wallet file store loaded")

	return &FileStore{
		path:    path,
		wallets: f.Wallets,
	}, nil
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) InsertWallet(_ context.Context, w *types.WatchedWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(w.Address) >= 0 {
		return ErrDuplicateWallet
	}

	s.wallets = append(s.wallets, *w)
	if err := s.save(); err != nil {
		s.wallets = s.wallets[:len(s.wallets)-1]
		return err
	}
	return nil
}

func (s *FileStore) DeleteWallet(_ context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(address)
	if i < 0 {
		return false, nil
	}

	prev := s.wallets
	next := make([]types.WatchedWallet, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	s.wallets = next

	if err := s.save(); err != nil {
		s.wallets = prev
		return false, err
	}
	return true, nil
}

func (s *FileStore) GetWallet(_ context.Context, address string) (*types.WatchedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(address)
	if i < 0 {
		return nil, ErrWalletNotFound
	}
	w := s.wallets[i]
	return &w, nil
}

func (s *FileStore) ListWallets(_ context.Context, activeOnly bool) ([]types.WatchedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.WatchedWallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		if activeOnly && w.Status != types.WalletActive {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *FileStore) SetStatus(_ context.Context, address string, status types.WalletStatus) (bool, error) {
	return s.mutate(address, func(w *types.WatchedWallet) {
		w.Status = status
	})
}

func (s *FileStore) UpdateStats(_ context.Context, address string, stats types.WalletStats) (bool, error) {
	if stats.LastUpdated.IsZero() {
		stats.LastUpdated = time.Now().UTC()
	}
	return s.mutate(address, func(w *types.WatchedWallet) {
		st := stats
		w.Stats = &st
	})
}

func (s *FileStore) TouchLastChecked(_ context.Context, addresses []string, at time.Time) error {
	if len(addresses) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := false
	for _, addr := range addresses {
		if i := s.indexOf(addr); i >= 0 {
			t := at
			s.wallets[i].LastCheckedAt = &t
			touched = true
		}
	}
	if !touched {
		return nil
	}
	return s.save()
}

func (s *FileStore) mutate(address string, fn func(w *types.WatchedWallet)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(address)
	if i < 0 {
		return false, nil
	}

	prev := s.wallets[i]
	fn(&s.wallets[i])
	if err := s.save(); err != nil {
		s.wallets[i] = prev
		return false, err
	}
	return true, nil
}

// indexOf requires s.mu to be held
func (s *FileStore) indexOf(address string) int {
	for i := range s.wallets {
		if s.wallets[i].Address == address {
			return i
		}
	}
	return -1
}

// save requires s.mu to be held
func (s *FileStore) save() error {
	return writeJSON(s.path, walletFile{Wallets: s.wallets})
}

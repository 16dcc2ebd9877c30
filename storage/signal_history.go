package storage

import (
	"sync"

	"github.com/web3guy0/copybot/types"
)

// DefaultSignalHistoryLimit caps the signal history file
const DefaultSignalHistoryLimit = 100

type signalFile struct {
	Signals []*types.CopySignal `json:"signals"`
}

// SignalHistory is a bounded, newest-first signal log backed by a JSON file
type SignalHistory struct {
	mu      sync.RWMutex
	path    string
	limit   int
	signals []*types.CopySignal
}

// OpenSignalHistory loads path, starting empty if it does not exist
func OpenSignalHistory(path string, limit int) (*SignalHistory, error) {
	if limit <= 0 {
		limit = DefaultSignalHistoryLimit
	}

	var f signalFile
	if _, err := readJSON(path, &f); err != nil {
		return nil, err
	}
	if len(f.Signals) > limit {
		f.Signals = f.Signals[:limit]
	}

	return &SignalHistory{
		path:    path,
		limit:   limit,
		signals: f.Signals,
	}, nil
}

// Append puts sig at the front and drops the oldest entries beyond the cap
func (h *SignalHistory) Append(sig *types.CopySignal) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make([]*types.CopySignal, 0, len(h.signals)+1)
	next = append(next, sig)
	next = append(next, h.signals...)
	if len(next) > h.limit {
		next = next[:h.limit]
	}

	if err := writeJSON(h.path, signalFile{Signals: next}); err != nil {
		return err
	}
	h.signals = next
	return nil
}

// Recent returns up to limit signals, newest first
func (h *SignalHistory) Recent(limit int) []*types.CopySignal {
	return h.filter(limit, func(*types.CopySignal) bool { return true })
}

// Follows returns up to limit FOLLOW signals, newest first
func (h *SignalHistory) Follows(limit int) []*types.CopySignal {
	return h.filter(limit, (*types.CopySignal).IsFollow)
}

// Len returns the number of stored signals
func (h *SignalHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.signals)
}

func (h *SignalHistory) filter(limit int, keep func(*types.CopySignal) bool) []*types.CopySignal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*types.CopySignal, 0)
	for _, sig := range h.signals {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(sig) {
			out = append(out, sig)
		}
	}
	return out
}

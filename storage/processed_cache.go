package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PROCESSED CACHE - Trade ids already evaluated in the current epoch
// ═══════════════════════════════════════════════════════════════════════════════
//
// The whole set is dropped when the epoch exceeds maxAge instead of aging
// entries one by one. A trade seen right before a reset may produce one more
// signal after it.
//
// ═══════════════════════════════════════════════════════════════════════════════

// DefaultProcessedMaxAge is the epoch length
const DefaultProcessedMaxAge = 24 * time.Hour

type processedFile struct {
	TradeIDs    []string  `json:"tradeIds"`
	LastCleanup time.Time `json:"lastCleanup"`
}

// ProcessedCache is safe for concurrent use
type ProcessedCache struct {
	mu          sync.Mutex
	path        string
	maxAge      time.Duration
	ids         map[string]struct{}
	lastCleanup time.Time
}

// OpenProcessedCache loads the persisted set and resets it if the epoch expired
func OpenProcessedCache(path string, maxAge time.Duration) (*ProcessedCache, error) {
	if maxAge <= 0 {
		maxAge = DefaultProcessedMaxAge
	}

	var f processedFile
	found, err := readJSON(path, &f)
	if err != nil {
		return nil, err
	}

	c := &ProcessedCache{
		path:        path,
		maxAge:      maxAge,
		ids:         make(map[string]struct{}, len(f.TradeIDs)),
		lastCleanup: f.LastCleanup,
	}
	for _, id := range f.TradeIDs {
		c.ids[id] = struct{}{}
	}
	if !found || c.lastCleanup.IsZero() {
		c.lastCleanup = time.Now().UTC()
	}

	if time.Since(c.lastCleanup) > maxAge {
		log.Info().
			Int("entries", len(c.ids)).
			Time("epoch", c.lastCleanup).
			Msg("🧹 Processed trade cache expired, resetting")
		if err := c.Cleanup(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// IsProcessed reports whether id was marked in this epoch
func (c *ProcessedCache) IsProcessed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.ids[id]
	return ok
}

// MarkProcessed records id and persists the set
func (c *ProcessedCache) MarkProcessed(id string) error {
	return c.MarkProcessedBatch([]string{id})
}

// MarkProcessedBatch records ids and persists the set once
func (c *ProcessedCache) MarkProcessedBatch(ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.ids[id]; ok {
			continue
		}
		c.ids[id] = struct{}{}
		added = append(added, id)
	}
	if len(added) == 0 {
		return nil
	}

	if err := c.save(); err != nil {
		for _, id := range added {
			delete(c.ids, id)
		}
		return err
	}
	return nil
}

// Cleanup clears the set and starts a new epoch
func (c *ProcessedCache) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ids = make(map[string]struct{})
	c.lastCleanup = time.Now().UTC()
	return c.save()
}

// Len returns the number of ids in the current epoch
func (c *ProcessedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// EpochStart returns when the current epoch began
func (c *ProcessedCache) EpochStart() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCleanup
}

// save requires c.mu to be held
func (c *ProcessedCache) save() error {
	ids := make([]string, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return writeJSON(c.path, processedFile{
		TradeIDs:    ids,
		LastCleanup: c.lastCleanup,
	})
}

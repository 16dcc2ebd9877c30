package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/copybot/feeds"
	"github.com/web3guy0/copybot/storage"
	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MONITOR - One poll cycle over every active wallet
// ═══════════════════════════════════════════════════════════════════════════════
//
// Per wallet (sequential):
//   FETCH → window → unprocessed → EVALUATE → EMIT → MARK, one trade at a time
//
// After all wallets: bulk last-checked touch.
// A wallet failure is logged and the cycle moves on.
//
// ═══════════════════════════════════════════════════════════════════════════════

// TradeSource fetches a wallet's recent raw trades
type TradeSource interface {
	FetchTrades(ctx context.Context, wallet string, limit int) ([]feeds.RawTrade, error)
}

// Evaluator scores one trade
type Evaluator interface {
	Evaluate(trade types.WalletTrade, wallet types.WatchedWallet) *types.CopySignal
}

type MonitorConfig struct {
	TradeFetchLimit int
	TradeWindow     time.Duration // 0 disables the age filter
}

// DefaultMonitorConfig returns the reference limits
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		TradeFetchLimit: 50,
		TradeWindow:     60 * time.Minute,
	}
}

// CycleResult summarizes one RunCycle call
type CycleResult struct {
	Signals        []*types.CopySignal
	WalletsChecked int
	WalletErrors   int
	TradesFetched  int
	TradesNew      int
	TradesSkipped  int // malformed or outside the window
	StartedAt      time.Time
	Duration       time.Duration
}

// Partition splits the cycle's signals into FOLLOW and IGNORE
func (r *CycleResult) Partition() (follow, ignore []*types.CopySignal) {
	for _, sig := range r.Signals {
		if sig.IsFollow() {
			follow = append(follow, sig)
		} else {
			ignore = append(ignore, sig)
		}
	}
	return follow, ignore
}

type Monitor struct {
	registry *Registry
	source   TradeSource
	cache    *storage.ProcessedCache
	engine   Evaluator
	emitter  *Emitter
	notifier Notifier
	cfg      MonitorConfig
}

// NewMonitor wires the pipeline
func NewMonitor(
	registry *Registry,
	source TradeSource,
	cache *storage.ProcessedCache,
	engine Evaluator,
	emitter *Emitter,
	cfg MonitorConfig,
) *Monitor {
	if cfg.TradeFetchLimit <= 0 {
		cfg.TradeFetchLimit = DefaultMonitorConfig().TradeFetchLimit
	}
	return &Monitor{
		registry: registry,
		source:   source,
		cache:    cache,
		engine:   engine,
		emitter:  emitter,
		cfg:      cfg,
	}
}

// SetNotifier enables the end-of-cycle summary
func (m *Monitor) SetNotifier(n Notifier) {
	m.notifier = n
}

// RunCycle checks every active wallet once. Only a registry failure is
// returned; per-wallet errors are logged.
func (m *Monitor) RunCycle(ctx context.Context) (*CycleResult, error) {
	res := &CycleResult{StartedAt: time.Now().UTC()}

	wallets, err := m.registry.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active wallets: %w", err)
	}

	if len(wallets) == 0 {
		log.Info().Msg("No active wallets to check")
		res.Duration = time.Since(res.StartedAt)
		return res, nil
	}

	log.Info().Int("wallets", len(wallets)).Msg("🔍 Checking wallets")

	checked := make([]string, 0, len(wallets))
	for _, w := range wallets {
		checked = append(checked, w.Address)
		res.WalletsChecked++

		signals, err := m.checkWallet(ctx, w, res)
		if err != nil {
			res.WalletErrors++
			log.Warn().Err(err).Str("wallet", w.Label()).Msg("Wallet check failed")
			continue
		}
		res.Signals = append(res.Signals, signals...)
	}

	if err := m.registry.UpdateLastChecked(ctx, checked); err != nil {
		log.Error().Err(err).Msg("Failed to update last checked timestamps")
	}

	res.Duration = time.Since(res.StartedAt)
	follow, ignore := res.Partition()

	log.Info().
		Int("wallets", res.WalletsChecked).
		Int("errors", res.WalletErrors).
		Int("new_trades", res.TradesNew).
		Int("follow", len(follow)).
		Int("ignore", len(ignore)).
		Dur("took", res.Duration).
		Msg("✅ Cycle complete")

	if m.notifier != nil && len(follow) > 0 {
		if err := m.notifier.NotifyCycleSummary(res); err != nil {
			log.Warn().Err(err).Msg("Failed to send cycle summary")
		}
	}

	return res, nil
}

func (m *Monitor) checkWallet(ctx context.Context, w types.WatchedWallet, res *CycleResult) ([]*types.CopySignal, error) {
	raws, err := m.source.FetchTrades(ctx, w.Address, m.cfg.TradeFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	res.TradesFetched += len(raws)
	if len(raws) == 0 {
		return nil, nil
	}

	trades, malformed := feeds.NormalizeBatch(raws, w.Address)
	if malformed > 0 {
		res.TradesSkipped += malformed
		log.Warn().Str("wallet", w.Label()).Int("skipped", malformed).Msg("Skipped malformed trades")
	}

	var cutoff time.Time
	if m.cfg.TradeWindow > 0 {
		cutoff = time.Now().Add(-m.cfg.TradeWindow)
	}

	fresh := make([]types.WalletTrade, 0, len(trades))
	batch := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if !cutoff.IsZero() && t.Timestamp.Before(cutoff) {
			res.TradesSkipped++
			continue
		}
		if _, dup := batch[t.ID]; dup || m.cache.IsProcessed(t.ID) {
			continue
		}
		batch[t.ID] = struct{}{}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		log.Debug().Str("wallet", w.Label()).Msg("No new trades")
		return nil, nil
	}

	res.TradesNew += len(fresh)
	log.Info().Str("wallet", w.Label()).Int("new", len(fresh)).Msg("📥 New trades")

	signals := make([]*types.CopySignal, 0, len(fresh))
	for _, t := range fresh {
		sig := m.engine.Evaluate(t, w)
		m.emitter.Emit(ctx, sig)
		if err := m.cache.MarkProcessed(t.ID); err != nil {
			// Not durable: the trade will be evaluated again next cycle
			log.Error().Err(err).Str("trade", t.ID).Msg("Failed to mark trade processed")
		}
		signals = append(signals, sig)
	}

	return signals, nil
}

package core

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/web3guy0/copybot/feeds"
	"github.com/web3guy0/copybot/storage"
	"github.com/web3guy0/copybot/strategy"
	"github.com/web3guy0/copybot/types"
)

const otherWallet = "0x2222222222222222222222222222222222222222"

type fakeSource struct {
	trades map[string][]feeds.RawTrade
	errs   map[string]error
	calls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		trades: make(map[string][]feeds.RawTrade),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (s *fakeSource) FetchTrades(_ context.Context, wallet string, _ int) ([]feeds.RawTrade, error) {
	s.calls[wallet]++
	if err := s.errs[wallet]; err != nil {
		return nil, err
	}
	return s.trades[wallet], nil
}

func rawTrade(id, side, size string, at time.Time) feeds.RawTrade {
	return feeds.RawTrade{
		ID:        id,
		Market:    "0xcond",
		AssetID:   "1",
		Side:      side,
		Outcome:   "Yes",
		Price:     "0.5",
		Size:      feeds.FlexString(size),
		MatchTime: feeds.FlexString(strconv.FormatInt(at.Unix(), 10)),
		Title:     "Will it rain?",
	}
}

type monitorFixture struct {
	registry *Registry
	source   *fakeSource
	cache    *storage.ProcessedCache
	history  *storage.SignalHistory
	monitor  *Monitor
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()
	dir := t.TempDir()

	fs, err := storage.OpenFileStore(filepath.Join(dir, "wallets.json"))
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	cache, err := storage.OpenProcessedCache(filepath.Join(dir, "processed.json"), time.Hour)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	history, err := storage.OpenSignalHistory(filepath.Join(dir, "signals.json"), 0)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}

	f := &monitorFixture{
		registry: NewRegistry(fs),
		source:   newFakeSource(),
		cache:    cache,
		history:  history,
	}
	f.monitor = NewMonitor(
		f.registry,
		f.source,
		cache,
		strategy.NewCopyEngine(strategy.DefaultCopyConfig()),
		NewEmitter(history, nil, nil),
		DefaultMonitorConfig(),
	)
	return f
}

func TestMonitor_DedupAcrossCycles(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)

	if _, err := f.registry.Add(ctx, whaleLower, "Whale"); err != nil {
		t.Fatalf("add: %v", err)
	}
	now := time.Now()
	f.source.trades[whaleLower] = []feeds.RawTrade{
		rawTrade("t1", "BUY", "200", now.Add(-2*time.Minute)),
		rawTrade("t2", "SELL", "200", now.Add(-time.Minute)),
	}

	res, err := f.monitor.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if len(res.Signals) != 2 || res.TradesNew != 2 {
		t.Fatalf("expected 2 signals, got %d", len(res.Signals))
	}
	follow, ignore := res.Partition()
	if len(follow) != 1 || len(ignore) != 1 {
		t.Errorf("expected 1 FOLLOW and 1 IGNORE, got %d/%d", len(follow), len(ignore))
	}
	if res.Signals[0].Trade.ID != "t1" {
		t.Errorf("trades not processed oldest first")
	}
	if !f.cache.IsProcessed("t1") || !f.cache.IsProcessed("t2") {
		t.Error("trades not marked processed")
	}

	res, err = f.monitor.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(res.Signals) != 0 || res.TradesNew != 0 {
		t.Errorf("processed trades re-evaluated: %d signals", len(res.Signals))
	}
	if f.history.Len() != 2 {
		t.Errorf("expected 2 signals in history, got %d", f.history.Len())
	}
}

func TestMonitor_WalletErrorIsolated(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)

	for _, addr := range []string{whaleLower, otherWallet} {
		if _, err := f.registry.Add(ctx, addr, ""); err != nil {
			t.Fatalf("add %s: %v", addr, err)
		}
	}
	f.source.errs[whaleLower] = errors.New("API error 500")
	f.source.trades[otherWallet] = []feeds.RawTrade{
		rawTrade("o1", "BUY", "400", time.Now().Add(-time.Minute)),
	}

	res, err := f.monitor.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.WalletsChecked != 2 || res.WalletErrors != 1 {
		t.Errorf("checked=%d errors=%d", res.WalletsChecked, res.WalletErrors)
	}
	if len(res.Signals) != 1 || res.Signals[0].Wallet != otherWallet {
		t.Errorf("healthy wallet not processed: %+v", res.Signals)
	}

	// Every iterated wallet is touched, including the failing one
	all, _ := f.registry.GetAll(ctx)
	for _, w := range all {
		if w.LastCheckedAt == nil {
			t.Errorf("%s last checked not updated", w.Address)
		}
	}
}

func TestMonitor_WindowAndMalformed(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)

	if _, err := f.registry.Add(ctx, whaleLower, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	now := time.Now()
	bad := rawTrade("bad", "BUY", "oops", now)
	f.source.trades[whaleLower] = []feeds.RawTrade{
		rawTrade("old", "BUY", "200", now.Add(-3*time.Hour)),
		bad,
		rawTrade("new", "BUY", "200", now.Add(-time.Minute)),
		rawTrade("new", "BUY", "200", now.Add(-time.Minute)),
	}

	res, err := f.monitor.RunCycle(ctx)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(res.Signals) != 1 || res.Signals[0].Trade.ID != "new" {
		t.Fatalf("expected only the fresh trade once, got %d signals", len(res.Signals))
	}
	if res.TradesSkipped != 2 {
		t.Errorf("expected 2 skipped (old + malformed), got %d", res.TradesSkipped)
	}
	if f.cache.IsProcessed("old") {
		t.Error("out-of-window trade was marked processed")
	}
}

func TestMonitor_PausedAndEmpty(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)

	res, err := f.monitor.RunCycle(ctx)
	if err != nil || res.WalletsChecked != 0 {
		t.Fatalf("empty registry: %+v %v", res, err)
	}

	if _, err := f.registry.Add(ctx, whaleLower, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.registry.SetStatus(ctx, whaleLower, types.WalletPaused); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if _, err := f.monitor.RunCycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if f.source.calls[whaleLower] != 0 {
		t.Error("paused wallet was polled")
	}
}

func TestMonitor_SummaryOnlyWithFollows(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t)
	n := &recordingNotifier{}
	f.monitor.SetNotifier(n)

	if _, err := f.registry.Add(ctx, whaleLower, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	f.source.trades[whaleLower] = []feeds.RawTrade{
		rawTrade("small", "BUY", "10", time.Now().Add(-time.Minute)),
	}

	if _, err := f.monitor.RunCycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(n.summaries) != 0 {
		t.Error("summary sent without FOLLOW signals")
	}

	f.source.trades[whaleLower] = []feeds.RawTrade{
		rawTrade("big", "BUY", "400", time.Now().Add(-time.Minute)),
	}
	if _, err := f.monitor.RunCycle(ctx); err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(n.summaries) != 1 {
		t.Errorf("expected 1 summary, got %d", len(n.summaries))
	}
}

package strategy

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// COPY ENGINE - Scores a watched wallet's trade into a FOLLOW/IGNORE signal
// ═══════════════════════════════════════════════════════════════════════════════
//
// Evaluation is a fold over an ordered rule list:
//   confidence = clamp(0.5 + Σ delta, 0, 1)
//   action     = FOLLOW unless any verdict blocks
//
// Rule order only affects the order of reasons.
//
// ═══════════════════════════════════════════════════════════════════════════════

const baseConfidence = 0.5

// CopyConfig holds the scoring thresholds and sizing parameters
type CopyConfig struct {
	MinNotionalUSD   decimal.Decimal
	MinWalletROI     float64
	MinWalletWinRate float64
	CopyRatio        decimal.Decimal
	MinTradeSize     decimal.Decimal
	MaxTradeSize     decimal.Decimal
	MaxSlippagePct   decimal.Decimal
}

// DefaultCopyConfig returns the reference thresholds
func DefaultCopyConfig() CopyConfig {
	return CopyConfig{
		MinNotionalUSD:   decimal.NewFromInt(50),
		MinWalletROI:     0.05,
		MinWalletWinRate: 0.50,
		CopyRatio:        decimal.NewFromFloat(0.1),
		MinTradeSize:     decimal.NewFromInt(5),
		MaxTradeSize:     decimal.NewFromInt(100),
		MaxSlippagePct:   decimal.NewFromFloat(0.05),
	}
}

// Verdict is one rule's contribution to a signal
type Verdict struct {
	Delta  float64
	Block  bool
	Reason string
}

// Rule evaluates one aspect of a trade. It may return zero or more verdicts.
type Rule struct {
	Name string
	Eval func(trade types.WalletTrade, wallet types.WatchedWallet, cfg CopyConfig) []Verdict
}

// CopyEngine is stateless apart from its configuration; Evaluate is safe for
// concurrent use.
type CopyEngine struct {
	cfg   CopyConfig
	rules []Rule
}

// NewCopyEngine creates an engine with the standard rule set
func NewCopyEngine(cfg CopyConfig) *CopyEngine {
	return &CopyEngine{
		cfg:   cfg,
		rules: DefaultRules(),
	}
}

// Config returns the engine thresholds
func (e *CopyEngine) Config() CopyConfig {
	return e.cfg
}

// Rules returns the ordered rule list
func (e *CopyEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate scores a trade against the wallet profile. Always returns a signal.
func (e *CopyEngine) Evaluate(trade types.WalletTrade, wallet types.WatchedWallet) *types.CopySignal {
	confidence := baseConfidence
	follow := true
	reasons := make([]string, 0, len(e.rules)+1)

	for _, rule := range e.rules {
		for _, v := range rule.Eval(trade, wallet, e.cfg) {
			confidence += v.Delta
			if v.Block {
				follow = false
			}
			if v.Reason != "" {
				reasons = append(reasons, v.Reason)
			}
		}
	}

	confidence = clamp(confidence, 0, 1)

	sig := &types.CopySignal{
		ID:         NewSignalID(wallet.Address, time.Now()),
		Wallet:     wallet.Address,
		WalletName: wallet.Name,
		Trade:      trade,
		Action:     types.ActionIgnore,
		Confidence: confidence,
		Reasons:    reasons,
		CreatedAt:  time.Now().UTC(),
	}

	if follow {
		size := e.SuggestedSize(trade.Notional)
		maxPrice := e.MaxPrice(trade.Price)
		sig.Action = types.ActionFollow
		sig.SuggestedSize = &size
		sig.MaxPrice = &maxPrice
	}

	return sig
}

// SuggestedSize = clamp(notional × copyRatio, min, max), 2dp
func (e *CopyEngine) SuggestedSize(notional decimal.Decimal) decimal.Decimal {
	size := notional.Mul(e.cfg.CopyRatio)
	if size.LessThan(e.cfg.MinTradeSize) {
		size = e.cfg.MinTradeSize
	}
	if size.GreaterThan(e.cfg.MaxTradeSize) {
		size = e.cfg.MaxTradeSize
	}
	return size.Round(2)
}

// MaxPrice is the price ceiling for a copy order
func (e *CopyEngine) MaxPrice(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Add(e.cfg.MaxSlippagePct))
}

// ═══════════════════════════════════════════════════════════════════════════════
// RULES
// ═══════════════════════════════════════════════════════════════════════════════

// DefaultRules returns the rule set in evaluation order
func DefaultRules() []Rule {
	return []Rule{
		{Name: "size_floor", Eval: sizeFloorRule},
		{Name: "wallet_quality", Eval: walletQualityRule},
		{Name: "side", Eval: sideRule},
	}
}

func sizeFloorRule(trade types.WalletTrade, _ types.WatchedWallet, cfg CopyConfig) []Verdict {
	if trade.Notional.LessThan(cfg.MinNotionalUSD) {
		// Blocks only; confidence is left alone
		return []Verdict{{
			Block:  true,
			Reason: fmt.Sprintf("Trade too small: $%s < $%s minimum", trade.Notional.StringFixed(2), cfg.MinNotionalUSD.StringFixed(2)),
		}}
	}
	return []Verdict{{
		Delta:  0.1,
		Reason: fmt.Sprintf("Trade size OK: $%s", trade.Notional.StringFixed(2)),
	}}
}

func walletQualityRule(_ types.WalletTrade, wallet types.WatchedWallet, cfg CopyConfig) []Verdict {
	stats := wallet.Stats
	if stats == nil {
		return []Verdict{{Reason: "No wallet stats available, trusting anyway"}}
	}

	verdicts := make([]Verdict, 0, 2)

	if stats.ROI >= cfg.MinWalletROI {
		verdicts = append(verdicts, Verdict{
			Delta:  0.2,
			Reason: fmt.Sprintf("Good ROI: %s", pct(stats.ROI)),
		})
	} else {
		verdicts = append(verdicts, Verdict{
			Delta:  -0.1,
			Reason: fmt.Sprintf("Low ROI: %s < %s", pct(stats.ROI), pct(cfg.MinWalletROI)),
		})
	}

	if stats.WinRate >= cfg.MinWalletWinRate {
		verdicts = append(verdicts, Verdict{
			Delta:  0.1,
			Reason: fmt.Sprintf("Good win rate: %s", pct(stats.WinRate)),
		})
	} else {
		verdicts = append(verdicts, Verdict{
			Delta:  -0.1,
			Reason: fmt.Sprintf("Low win rate: %s < %s", pct(stats.WinRate), pct(cfg.MinWalletWinRate)),
		})
	}

	return verdicts
}

// SELL fills close or flip a position; those are never copied
func sideRule(trade types.WalletTrade, _ types.WatchedWallet, _ CopyConfig) []Verdict {
	if trade.Side == types.SideSell {
		return []Verdict{{Block: true, Reason: "SELL trades are not copied"}}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

var signalSeq atomic.Uint64

// NewSignalID builds a process-unique id from time and wallet prefix
func NewSignalID(wallet string, now time.Time) string {
	prefix := strings.TrimPrefix(strings.ToLower(wallet), "0x")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("sig_%d_%s_%d", now.UnixNano(), prefix, signalSeq.Add(1))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/copybot/storage"
	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// EMITTER - Logs and persists signals
// ═══════════════════════════════════════════════════════════════════════════════
//
// Sinks, each independent:
//   1. log (always)
//   2. relational store (best effort, optional)
//   3. bounded JSON history (always; durability floor)
//   4. notifier for FOLLOW signals (optional)
//
// Reads come from the JSON history only.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Notifier delivers signal alerts (Telegram)
type Notifier interface {
	NotifyCopySignal(sig *types.CopySignal) error
	NotifyCycleSummary(res *CycleResult) error
	NotifyError(err error) error
}

type Emitter struct {
	history  *storage.SignalHistory
	sink     storage.SignalStore
	notifier Notifier
}

// NewEmitter creates an emitter. sink and notifier may be nil.
func NewEmitter(history *storage.SignalHistory, sink storage.SignalStore, notifier Notifier) *Emitter {
	return &Emitter{
		history:  history,
		sink:     sink,
		notifier: notifier,
	}
}

// Emit never fails; every sink error is logged and swallowed
func (e *Emitter) Emit(ctx context.Context, sig *types.CopySignal) {
	logSignal(sig)

	if e.sink != nil {
		if err := e.sink.SaveSignal(ctx, sig); err != nil {
			log.Error().Err(err).Str("signal", sig.ID).Msg("Failed to save signal to database")
		}
	}

	if err := e.history.Append(sig); err != nil {
		log.Error().Err(err).Str("signal", sig.ID).Msg("Failed to append signal history")
	}

	if e.notifier != nil && sig.IsFollow() {
		if err := e.notifier.NotifyCopySignal(sig); err != nil {
			log.Warn().Err(err).Str("signal", sig.ID).Msg("Failed to send signal notification")
		}
	}
}

// GetRecentSignals returns up to limit signals, newest first
func (e *Emitter) GetRecentSignals(limit int) []*types.CopySignal {
	return e.history.Recent(limit)
}

// GetFollowSignals returns up to limit FOLLOW signals, newest first
func (e *Emitter) GetFollowSignals(limit int) []*types.CopySignal {
	return e.history.Follows(limit)
}

func logSignal(sig *types.CopySignal) {
	ev := log.Info()
	if !sig.IsFollow() {
		ev = log.Debug()
	}

	ev = ev.
		Str("wallet", signalLabel(sig)).
		Str("market", sig.Trade.Question).
		Str("side", string(sig.Trade.Side)).
		Str("outcome", string(sig.Trade.Outcome)).
		Str("price", sig.Trade.Price.StringFixed(3)).
		Str("size", sig.Trade.Size.StringFixed(2)).
		Str("notional", "$"+sig.Trade.Notional.StringFixed(2)).
		Float64("confidence", sig.Confidence).
		Strs("reasons", sig.Reasons)

	if sig.IsFollow() {
		ev = ev.
			Str("suggested_size", "$"+sig.SuggestedSize.StringFixed(2)).
			Str("max_price", sig.MaxPrice.StringFixed(4))
		ev.Msg("🟢 FOLLOW signal")
		return
	}
	ev.Msg("⚪ IGNORE signal")
}

// DescribeSignal renders a signal as a short multi-line summary
func DescribeSignal(sig *types.CopySignal) string {
	var b strings.Builder

	icon := "⚪"
	if sig.IsFollow() {
		icon = "🟢"
	}
	fmt.Fprintf(&b, "%s %s  %s  [%s]\n", icon, sig.Action, signalLabel(sig), sig.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "   %s\n", sig.Trade.Question)
	fmt.Fprintf(&b, "   %s %s @ %s¢  size %s  ($%s)\n",
		sig.Trade.Side, sig.Trade.Outcome,
		sig.Trade.Price.Shift(2).StringFixed(1),
		sig.Trade.Size.StringFixed(2),
		sig.Trade.Notional.StringFixed(2),
	)
	fmt.Fprintf(&b, "   confidence %.0f%%\n", sig.Confidence*100)
	if sig.IsFollow() {
		fmt.Fprintf(&b, "   copy $%s, max price %s¢\n",
			sig.SuggestedSize.StringFixed(2),
			sig.MaxPrice.Shift(2).StringFixed(1),
		)
	}
	for _, r := range sig.Reasons {
		fmt.Fprintf(&b, "   • %s\n", r)
	}
	return b.String()
}

func signalLabel(sig *types.CopySignal) string {
	if sig.WalletName != "" {
		return sig.WalletName
	}
	return types.ShortAddress(sig.Wallet)
}

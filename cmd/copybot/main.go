// Copybot - copy-trading signal pipeline for Polymarket wallets
//
// Watches a set of wallets, scores each of their new fills and emits a
// FOLLOW/IGNORE signal with a suggested copy size. check-wallets runs exactly
// one cycle; schedule it externally (cron, systemd timer) every few minutes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/copybot/bot"
	"github.com/web3guy0/copybot/core"
	"github.com/web3guy0/copybot/feeds"
	"github.com/web3guy0/copybot/internal/config"
	"github.com/web3guy0/copybot/storage"
	"github.com/web3guy0/copybot/strategy"
	"github.com/web3guy0/copybot/types"
)

const usage = `usage: copybot <command> [args]

commands:
  add-wallet <address> [name]     watch a wallet
  remove-wallet <address>         stop watching a wallet
  list-wallets                    show watched wallets
  pause-wallet <address>          keep the wallet but skip it when polling
  resume-wallet <address>         poll a paused wallet again
  set-stats <address> <trades> <volume> <roi> <winRate>
                                  record a wallet performance snapshot
  check-wallets                   run one monitor cycle
  signals [limit] [--follow]      show recent signals
  cleanup-cache                   reset the processed trade cache`

var errUsage = errors.New("bad arguments")

func main() {
	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load config")
		os.Exit(1)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		}
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	switch cmd {
	case "signals":
		return cmdSignals(cfg, args)
	case "cleanup-cache":
		return cmdCleanupCache(cfg)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	}

	stores, err := storage.Open(cfg.StorageOptions())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()

	registry := core.NewRegistry(stores.Wallets)

	switch cmd {
	case "add-wallet":
		return cmdAddWallet(ctx, registry, args)
	case "remove-wallet":
		return cmdRemoveWallet(ctx, registry, args)
	case "list-wallets":
		return cmdListWallets(ctx, registry, stores.Backend)
	case "pause-wallet":
		return cmdSetStatus(ctx, registry, args, types.WalletPaused)
	case "resume-wallet":
		return cmdSetStatus(ctx, registry, args, types.WalletActive)
	case "set-stats":
		return cmdSetStats(ctx, registry, args)
	case "check-wallets":
		return cmdCheckWallets(ctx, cfg, stores, registry)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// WALLET COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func cmdAddWallet(ctx context.Context, registry *core.Registry, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: add-wallet needs an address", errUsage)
	}
	name := strings.Join(args[1:], " ")

	w, err := registry.Add(ctx, args[0], name)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Watching %s (%s)\n", w.Address, w.Label())
	return nil
}

func cmdRemoveWallet(ctx context.Context, registry *core.Registry, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: remove-wallet needs an address", errUsage)
	}
	removed, err := registry.Remove(ctx, args[0])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", core.ErrWalletNotFound, args[0])
	}
	fmt.Printf("🗑️  Removed %s\n", strings.ToLower(args[0]))
	return nil
}

func cmdSetStatus(ctx context.Context, registry *core.Registry, args []string, status types.WalletStatus) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected an address", errUsage)
	}
	ok, err := registry.SetStatus(ctx, args[0], status)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrWalletNotFound, args[0])
	}
	fmt.Printf("✅ %s is now %s\n", strings.ToLower(args[0]), status)
	return nil
}

func cmdSetStats(ctx context.Context, registry *core.Registry, args []string) error {
	stats, err := parseStatsArgs(args)
	if err != nil {
		return err
	}

	ok, err := registry.UpdateStats(ctx, args[0], stats)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrWalletNotFound, args[0])
	}
	fmt.Printf("✅ Stats updated for %s\n", strings.ToLower(args[0]))
	return nil
}

// parseStatsArgs validates <address> <trades> <volume> <roi> <winRate>.
// trades must be positive: the relational store derives win rate and ROI
// from per-trade counters.
func parseStatsArgs(args []string) (types.WalletStats, error) {
	if len(args) != 5 {
		return types.WalletStats{}, fmt.Errorf("%w: set-stats <address> <trades> <volume> <roi> <winRate>", errUsage)
	}

	trades, err := strconv.Atoi(args[1])
	if err != nil || trades <= 0 {
		return types.WalletStats{}, fmt.Errorf("%w: trades %q must be a positive integer", errUsage, args[1])
	}
	volume, err := decimal.NewFromString(args[2])
	if err != nil || volume.IsNegative() {
		return types.WalletStats{}, fmt.Errorf("%w: volume %q", errUsage, args[2])
	}
	roi, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return types.WalletStats{}, fmt.Errorf("%w: roi %q", errUsage, args[3])
	}
	winRate, err := strconv.ParseFloat(args[4], 64)
	if err != nil || winRate < 0 || winRate > 1 {
		return types.WalletStats{}, fmt.Errorf("%w: winRate %q must be within [0,1]", errUsage, args[4])
	}

	return types.WalletStats{
		TotalTrades: trades,
		TotalVolume: volume,
		ROI:         roi,
		WinRate:     winRate,
		LastUpdated: time.Now().UTC(),
	}, nil
}

func cmdListWallets(ctx context.Context, registry *core.Registry, backend string) error {
	wallets, err := registry.GetAll(ctx)
	if err != nil {
		return err
	}

	if len(wallets) == 0 {
		fmt.Println("📭 No wallets watched yet. Use add-wallet <address> [name]")
		return nil
	}

	fmt.Printf("👛 %d wallet(s) [%s store]\n\n", len(wallets), backend)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tSTATUS\tROI\tWIN RATE\tLAST CHECKED")
	for _, w := range wallets {
		roi, win := "-", "-"
		if w.Stats != nil {
			roi = fmt.Sprintf("%.1f%%", w.Stats.ROI*100)
			win = fmt.Sprintf("%.1f%%", w.Stats.WinRate*100)
		}
		checked := "never"
		if w.LastCheckedAt != nil {
			checked = w.LastCheckedAt.Local().Format("Jan 2 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", w.Address, w.Name, w.Status, roi, win, checked)
	}
	return tw.Flush()
}

// ═══════════════════════════════════════════════════════════════════════════════
// PIPELINE COMMANDS
// ═══════════════════════════════════════════════════════════════════════════════

func cmdCheckWallets(ctx context.Context, cfg *config.Config, stores *storage.Stores, registry *core.Registry) error {
	history, err := storage.OpenSignalHistory(cfg.SignalsPath(), cfg.SignalHistoryLimit)
	if err != nil {
		return fmt.Errorf("open signal history: %w", err)
	}
	cache, err := storage.OpenProcessedCache(cfg.ProcessedPath(), cfg.ProcessedMaxAge)
	if err != nil {
		return fmt.Errorf("open processed cache: %w", err)
	}

	var notifier core.Notifier
	if cfg.TelegramEnabled() {
		tg, err := bot.NewTelegramBot(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
		} else {
			notifier = tg
		}
	}

	emitter := core.NewEmitter(history, stores.Signals, notifier)
	source := feeds.NewDataAPIClient(cfg.DataAPIURL, cfg.HTTPTimeout, cfg.DataAPIRPS)
	engine := strategy.NewCopyEngine(cfg.CopyConfig())

	monitor := core.NewMonitor(registry, source, cache, engine, emitter, cfg.MonitorConfig())
	if notifier != nil {
		monitor.SetNotifier(notifier)
	}

	log.Info().
		Str("store", stores.Backend).
		Int("cached_trades", cache.Len()).
		Dur("schedule_hint", cfg.CheckInterval).
		Msg("🚀 Starting check cycle")

	res, err := monitor.RunCycle(ctx)
	if err != nil {
		reportCycleError(notifier, err)
		return err
	}

	follow, ignore := res.Partition()
	fmt.Printf("\n📊 Checked %d wallet(s): %d new trade(s), %d FOLLOW, %d IGNORE\n",
		res.WalletsChecked, res.TradesNew, len(follow), len(ignore))
	for _, sig := range follow {
		fmt.Println()
		fmt.Print(core.DescribeSignal(sig))
	}
	return nil
}

// reportCycleError alerts on a failure that aborted the whole cycle
func reportCycleError(n core.Notifier, err error) {
	if n == nil {
		return
	}
	if nerr := n.NotifyError(err); nerr != nil {
		log.Warn().Err(nerr).Msg("Failed to send error alert")
	}
}

func cmdSignals(cfg *config.Config, args []string) error {
	limit := 10
	followOnly := false
	for _, a := range args {
		if a == "--follow" {
			followOnly = true
			continue
		}
		n, err := strconv.Atoi(a)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: limit %q", errUsage, a)
		}
		limit = n
	}

	history, err := storage.OpenSignalHistory(cfg.SignalsPath(), cfg.SignalHistoryLimit)
	if err != nil {
		return err
	}
	emitter := core.NewEmitter(history, nil, nil)

	var signals []*types.CopySignal
	if followOnly {
		signals = emitter.GetFollowSignals(limit)
	} else {
		signals = emitter.GetRecentSignals(limit)
	}

	if len(signals) == 0 {
		fmt.Println("📭 No signals yet")
		return nil
	}
	for _, sig := range signals {
		fmt.Print(core.DescribeSignal(sig))
		fmt.Println()
	}
	return nil
}

func cmdCleanupCache(cfg *config.Config) error {
	cache, err := storage.OpenProcessedCache(cfg.ProcessedPath(), cfg.ProcessedMaxAge)
	if err != nil {
		return err
	}
	n := cache.Len()
	if err := cache.Cleanup(); err != nil {
		return err
	}
	fmt.Printf("🧹 Cleared %d processed trade id(s)\n", n)
	return nil
}

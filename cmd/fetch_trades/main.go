package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/copybot/core"
	"github.com/web3guy0/copybot/feeds"
	"github.com/web3guy0/copybot/internal/config"
	"github.com/web3guy0/copybot/storage"
	"github.com/web3guy0/copybot/strategy"
	"github.com/web3guy0/copybot/types"
)

// Dry run: fetch a wallet's trades and score them without marking anything
// processed or writing signals.
//
//	fetch_trades <address> [limit]
func main() {
	godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if len(os.Args) < 2 {
		fmt.Println("usage: fetch_trades <address> [limit]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("❌ Config error:", err)
		os.Exit(1)
	}

	address, err := core.NormalizeAddress(os.Args[1])
	if err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}

	limit := cfg.TradeFetchLimit
	if len(os.Args) > 2 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout)
	defer cancel()

	wallet := lookupWallet(ctx, cfg, address)

	client := feeds.NewDataAPIClient(cfg.DataAPIURL, cfg.HTTPTimeout, cfg.DataAPIRPS)
	raws, err := client.FetchTrades(ctx, address, limit)
	if err != nil {
		fmt.Println("❌ Error fetching trades:", err)
		os.Exit(1)
	}

	trades, skipped := feeds.NormalizeBatch(raws, address)
	engine := strategy.NewCopyEngine(cfg.CopyConfig())

	fmt.Printf("📊 TRADE ANALYSIS - %s - %d trades (%d malformed)\n\n", wallet.Label(), len(trades), skipped)

	fmt.Println("═══════════════════════════════════════════════════════════════════════")
	fmt.Println("│ TIME        │ SIDE │ OUT │ PRICE  │ NOTIONAL  │ ACTION │ CONF │ COPY")
	fmt.Println("═══════════════════════════════════════════════════════════════════════")

	var volume decimal.Decimal
	buys, sells, follows := 0, 0, 0
	for _, t := range trades {
		sig := engine.Evaluate(t, wallet)
		volume = volume.Add(t.Notional)
		if t.Side == types.SideBuy {
			buys++
		} else {
			sells++
		}

		copySize := "-"
		if sig.IsFollow() {
			follows++
			copySize = "$" + sig.SuggestedSize.StringFixed(2)
		}

		fmt.Printf("│ %-11s │ %-4s │ %-3s │ %5.1f¢ │ $%8s │ %-6s │ %3.0f%% │ %s\n",
			t.Timestamp.Local().Format("Jan 2 15:04"),
			t.Side,
			t.Outcome,
			t.Price.Shift(2).InexactFloat64(),
			t.Notional.StringFixed(2),
			sig.Action,
			sig.Confidence*100,
			copySize,
		)
	}

	fmt.Println("═══════════════════════════════════════════════════════════════════════")
	fmt.Printf("\n📈 SUMMARY:\n")
	fmt.Printf("   Buys: %d | Sells: %d | Would follow: %d\n", buys, sells, follows)
	fmt.Printf("   Volume: $%s\n", volume.StringFixed(2))
	if wallet.Stats == nil {
		fmt.Println("   Wallet stats: none recorded (scored as unknown)")
	}

	if len(trades) > 0 {
		fmt.Printf("\n   Date Range: %s to %s\n",
			trades[0].Timestamp.Local().Format("Jan 2 15:04"),
			trades[len(trades)-1].Timestamp.Local().Format("Jan 2 15:04"),
		)
	}
}

// lookupWallet uses the registered profile when there is one so stats feed
// into scoring; unknown wallets are scored without stats
func lookupWallet(ctx context.Context, cfg *config.Config, address string) types.WatchedWallet {
	bare := types.WatchedWallet{
		Address: address,
		Status:  types.WalletActive,
		AddedAt: time.Now().UTC(),
	}

	stores, err := storage.Open(cfg.StorageOptions())
	if err != nil {
		return bare
	}
	defer stores.Close()

	w, err := core.NewRegistry(stores.Wallets).Get(ctx, address)
	if err != nil {
		if !errors.Is(err, core.ErrWalletNotFound) {
			log.Warn().Err(err).Msg("Wallet lookup failed")
		}
		return bare
	}
	return *w
}

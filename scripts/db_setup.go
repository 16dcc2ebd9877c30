package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/web3guy0/copybot/internal/config"
	"github.com/web3guy0/copybot/storage"
)

// Verifies the local setup: data directory writable, database reachable and
// migrated. Run with `go run scripts/db_setup.go`.
func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Config error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("📁 Checking data directory...")
	if err := checkWritable(cfg.DataDir); err != nil {
		fmt.Printf("❌ %s is not writable: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}
	fmt.Printf("✅ %s is writable\n", cfg.DataDir)

	if cfg.DatabaseURL == "" {
		fmt.Println("\nℹ️  DATABASE_URL not set; wallets are kept in", filepath.Join(cfg.DataDir, cfg.WalletsFile))
		return
	}

	fmt.Println("\n🔌 Connecting to database...")
	db, err := storage.NewDatabase(cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		fmt.Printf("❌ Connection error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Printf("✅ Database connected (%s)\n", db.Dialect())

	fmt.Println("\n📝 Migrating schema...")
	if err := db.Migrate(); err != nil {
		fmt.Printf("❌ Migration error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Schema up to date")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := db.GetStats(ctx)
	if err != nil {
		fmt.Printf("❌ Query error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n📊 Row counts:")
	for _, key := range []string{"wallets", "active_wallets", "signals", "follow_signals"} {
		fmt.Printf("  - %s: %d\n", key, stats[key])
	}

	fmt.Println("\n✅ DATABASE READY")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("Tables:")
	fmt.Println("  • watched_wallets - Wallet registry and stats")
	fmt.Println("  • copy_signals    - Audit log of emitted signals")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

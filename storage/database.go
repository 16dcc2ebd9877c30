package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - Relational wallet registry and signal log
// ═══════════════════════════════════════════════════════════════════════════════

// SignalSource tags rows written by the copy pipeline
const SignalSource = "copy"

type Database struct {
	db      *gorm.DB
	dialect string
}

// Models

// WalletRecord keeps derived counters; WalletStats is rebuilt from them
type WalletRecord struct {
	Address        string          `gorm:"primaryKey;size:42"`
	Name           string
	Status         string          `gorm:"index;default:active"`
	TotalTrades    int
	WinningTrades  int
	TotalPnL       decimal.Decimal `gorm:"column:total_pnl;type:decimal(20,6)"`
	AvgTradeSize   decimal.Decimal `gorm:"type:decimal(20,6)"`
	StatsUpdatedAt *time.Time
	AddedAt        time.Time
	LastCheckedAt  *time.Time
	UpdatedAt      time.Time
}

func (WalletRecord) TableName() string {
	return "watched_wallets"
}

type SignalRecord struct {
	ID             string              `gorm:"primaryKey"`
	Source         string              `gorm:"index"`
	WalletAddress  string              `gorm:"index"`
	WalletName     string
	TradeID        string              `gorm:"index"`
	ConditionID    string              `gorm:"index"`
	MarketSlug     string
	Question       string
	TokenID        string
	Action         string              `gorm:"index"`
	Side           string
	Outcome        string
	Confidence     float64
	SuggestedPrice decimal.Decimal     `gorm:"type:decimal(10,6)"`
	SuggestedSize  decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	MaxPrice       decimal.NullDecimal `gorm:"type:decimal(10,6)"`
	Notional       decimal.Decimal     `gorm:"type:decimal(20,6)"`
	Reasons        datatypes.JSON
	TradeTime      time.Time
	CreatedAt      time.Time `gorm:"index"`
}

func (SignalRecord) TableName() string {
	return "copy_signals"
}

// NewDatabase opens postgres for postgres:// URLs and sqlite otherwise
func NewDatabase(dsn string, maxOpenConns int) (*Database, error) {
	var dialector gorm.Dialector
	var dialect string

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
		dialect = "postgres"
	} else {
		path := strings.TrimPrefix(dsn, "sqlite://")
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		dialector = sqlite.Open(path)
		dialect = "sqlite"
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	d := &Database{db: db, dialect: dialect}
	if err := d.Migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("dialect", dialect).Msg("💾 Database connected")
	return d, nil
}

// Migrate creates or updates the schema
func (d *Database) Migrate() error {
	return d.db.AutoMigrate(&WalletRecord{}, &SignalRecord{})
}

// Dialect returns "postgres" or "sqlite"
func (d *Database) Dialect() string {
	return d.dialect
}

// Close closes the database connection
func (d *Database) Close() {
	if sqlDB, err := d.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// Wallet operations

func (d *Database) InsertWallet(ctx context.Context, w *types.WatchedWallet) error {
	var count int64
	if err := d.db.WithContext(ctx).Model(&WalletRecord{}).
		Where("address = ?", w.Address).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateWallet
	}

	rec := walletToRecord(w)
	if err := d.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateWallet
		}
		return err
	}
	return nil
}

func (d *Database) DeleteWallet(ctx context.Context, address string) (bool, error) {
	res := d.db.WithContext(ctx).Delete(&WalletRecord{}, "address = ?", address)
	return res.RowsAffected > 0, res.Error
}

func (d *Database) GetWallet(ctx context.Context, address string) (*types.WatchedWallet, error) {
	var rec WalletRecord
	err := d.db.WithContext(ctx).First(&rec, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	w := recordToWallet(rec)
	return &w, nil
}

func (d *Database) ListWallets(ctx context.Context, activeOnly bool) ([]types.WatchedWallet, error) {
	q := d.db.WithContext(ctx).Order("added_at ASC")
	if activeOnly {
		q = q.Where("status = ?", string(types.WalletActive))
	}

	var recs []WalletRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}

	wallets := make([]types.WatchedWallet, 0, len(recs))
	for _, rec := range recs {
		wallets = append(wallets, recordToWallet(rec))
	}
	return wallets, nil
}

func (d *Database) SetStatus(ctx context.Context, address string, status types.WalletStatus) (bool, error) {
	res := d.db.WithContext(ctx).Model(&WalletRecord{}).
		Where("address = ?", address).
		Update("status", string(status))
	return res.RowsAffected > 0, res.Error
}

func (d *Database) UpdateStats(ctx context.Context, address string, stats types.WalletStats) (bool, error) {
	c := statsToCounters(stats)
	res := d.db.WithContext(ctx).Model(&WalletRecord{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"total_trades":     c.TotalTrades,
			"winning_trades":   c.WinningTrades,
			"total_pnl":        c.TotalPnL,
			"avg_trade_size":   c.AvgTradeSize,
			"stats_updated_at": c.StatsUpdatedAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (d *Database) TouchLastChecked(ctx context.Context, addresses []string, at time.Time) error {
	if len(addresses) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Model(&WalletRecord{}).
		Where("address IN ?", addresses).
		Update("last_checked_at", at).Error
}

// Signal operations

func (d *Database) SaveSignal(ctx context.Context, sig *types.CopySignal) error {
	rec, err := signalToRecord(sig)
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}

// RecentSignals returns the newest copy signals from the audit table
func (d *Database) RecentSignals(ctx context.Context, limit int) ([]SignalRecord, error) {
	var recs []SignalRecord
	err := d.db.WithContext(ctx).
		Where("source = ?", SignalSource).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// Stats operations

func (d *Database) GetStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)

	var wallets, active, signals, follows int64
	db := d.db.WithContext(ctx)
	if err := db.Model(&WalletRecord{}).Count(&wallets).Error; err != nil {
		return nil, fmt.Errorf("count wallets: %w", err)
	}
	if err := db.Model(&WalletRecord{}).Where("status = ?", string(types.WalletActive)).Count(&active).Error; err != nil {
		return nil, fmt.Errorf("count active wallets: %w", err)
	}
	if err := db.Model(&SignalRecord{}).Count(&signals).Error; err != nil {
		return nil, fmt.Errorf("count signals: %w", err)
	}
	if err := db.Model(&SignalRecord{}).Where("action = ?", string(types.ActionFollow)).Count(&follows).Error; err != nil {
		return nil, fmt.Errorf("count follow signals: %w", err)
	}

	stats["wallets"] = wallets
	stats["active_wallets"] = active
	stats["signals"] = signals
	stats["follow_signals"] = follows
	return stats, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// MAPPING
// ═══════════════════════════════════════════════════════════════════════════════

func walletToRecord(w *types.WatchedWallet) WalletRecord {
	rec := WalletRecord{
		Address:       w.Address,
		Name:          w.Name,
		Status:        string(w.Status),
		AddedAt:       w.AddedAt,
		LastCheckedAt: w.LastCheckedAt,
	}
	if w.Stats != nil {
		c := statsToCounters(*w.Stats)
		rec.TotalTrades = c.TotalTrades
		rec.WinningTrades = c.WinningTrades
		rec.TotalPnL = c.TotalPnL
		rec.AvgTradeSize = c.AvgTradeSize
		rec.StatsUpdatedAt = c.StatsUpdatedAt
	}
	return rec
}

func statsToCounters(s types.WalletStats) WalletRecord {
	updated := s.LastUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	rec := WalletRecord{
		TotalTrades:    s.TotalTrades,
		TotalPnL:       s.TotalVolume.Mul(decimal.NewFromFloat(s.ROI)),
		StatsUpdatedAt: &updated,
	}
	if s.TotalTrades > 0 {
		trades := decimal.NewFromInt(int64(s.TotalTrades))
		rec.WinningTrades = int(decimal.NewFromFloat(s.WinRate).Mul(trades).Round(0).IntPart())
		rec.AvgTradeSize = s.TotalVolume.Div(trades)
	}
	return rec
}

func recordToWallet(rec WalletRecord) types.WatchedWallet {
	w := types.WatchedWallet{
		Address:       rec.Address,
		Name:          rec.Name,
		Status:        types.WalletStatus(rec.Status),
		AddedAt:       rec.AddedAt,
		LastCheckedAt: rec.LastCheckedAt,
	}
	if rec.StatsUpdatedAt == nil {
		return w
	}

	volume := rec.AvgTradeSize.Mul(decimal.NewFromInt(int64(rec.TotalTrades)))
	stats := &types.WalletStats{
		TotalTrades: rec.TotalTrades,
		TotalVolume: volume,
		LastUpdated: *rec.StatsUpdatedAt,
	}
	if rec.TotalTrades > 0 {
		stats.WinRate = float64(rec.WinningTrades) / float64(rec.TotalTrades)
	}
	if !volume.IsZero() {
		stats.ROI = rec.TotalPnL.Div(volume).InexactFloat64()
	}
	w.Stats = stats
	return w
}

func signalToRecord(sig *types.CopySignal) (SignalRecord, error) {
	reasons, err := json.Marshal(sig.Reasons)
	if err != nil {
		return SignalRecord{}, err
	}

	rec := SignalRecord{
		ID:             sig.ID,
		Source:         SignalSource,
		WalletAddress:  sig.Wallet,
		WalletName:     sig.WalletName,
		TradeID:        sig.Trade.ID,
		ConditionID:    sig.Trade.ConditionID,
		MarketSlug:     sig.Trade.Slug,
		Question:       sig.Trade.Question,
		TokenID:        sig.Trade.TokenID,
		Action:         string(sig.Action),
		Side:           string(sig.Trade.Side),
		Outcome:        string(sig.Trade.Outcome),
		Confidence:     sig.Confidence,
		SuggestedPrice: sig.Trade.Price,
		Notional:       sig.Trade.Notional,
		Reasons:        datatypes.JSON(reasons),
		TradeTime:      sig.Trade.Timestamp,
		CreatedAt:      sig.CreatedAt,
	}
	if sig.SuggestedSize != nil {
		rec.SuggestedSize = decimal.NewNullDecimal(*sig.SuggestedSize)
	}
	if sig.MaxPrice != nil {
		rec.MaxPrice = decimal.NewNullDecimal(*sig.MaxPrice)
	}
	return rec, nil
}

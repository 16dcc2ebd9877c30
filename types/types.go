package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Side is the taker side of a fill
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Outcome is the binary resolution side of a market
type Outcome string

const (
	OutcomeYes Outcome = "Yes"
	OutcomeNo  Outcome = "No"
)

// Action is the terminal decision carried by a CopySignal
type Action string

const (
	ActionFollow Action = "FOLLOW"
	ActionIgnore Action = "IGNORE"
)

// WalletStatus controls whether a wallet is polled
type WalletStatus string

const (
	WalletActive WalletStatus = "active"
	WalletPaused WalletStatus = "paused"
)

// Valid reports whether s is a known status
func (s WalletStatus) Valid() bool {
	return s == WalletActive || s == WalletPaused
}

// WalletStats is an aggregate performance snapshot for a watched wallet
type WalletStats struct {
	TotalTrades int             `json:"totalTrades"`
	TotalVolume decimal.Decimal `json:"totalVolume"`
	ROI         float64         `json:"roi"`
	WinRate     float64         `json:"winRate"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// WatchedWallet is a trading address under observation.
// Address is always lowercase.
type WatchedWallet struct {
	Address       string       `json:"address"`
	Name          string       `json:"name,omitempty"`
	Status        WalletStatus `json:"status"`
	AddedAt       time.Time    `json:"addedAt"`
	LastCheckedAt *time.Time   `json:"lastCheckedAt,omitempty"`
	Stats         *WalletStats `json:"stats,omitempty"`
}

// Label returns the name if set, otherwise a shortened address
func (w WatchedWallet) Label() string {
	if w.Name != "" {
		return w.Name
	}
	return ShortAddress(w.Address)
}

// WalletTrade is a single normalized fill. Never mutated after normalization.
type WalletTrade struct {
	ID          string          `json:"id"`
	Wallet      string          `json:"wallet"`
	ConditionID string          `json:"conditionId"`
	Slug        string          `json:"slug"`
	Question    string          `json:"question"`
	Side        Side            `json:"side"`
	Outcome     Outcome         `json:"outcome"`
	TokenID     string          `json:"tokenId"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	Notional    decimal.Decimal `json:"notional"`
	Timestamp   time.Time       `json:"timestamp"`
	TxHash      string          `json:"txHash,omitempty"`
}

// CopySignal is the decision engine output for one evaluated trade
type CopySignal struct {
	ID            string           `json:"id"`
	Wallet        string           `json:"wallet"`
	WalletName    string           `json:"walletName,omitempty"`
	Trade         WalletTrade      `json:"trade"`
	Action        Action           `json:"action"`
	Confidence    float64          `json:"confidence"`
	Reasons       []string         `json:"reasons"`
	SuggestedSize *decimal.Decimal `json:"suggestedSize,omitempty"` // FOLLOW only
	MaxPrice      *decimal.Decimal `json:"maxPrice,omitempty"`      // FOLLOW only
	CreatedAt     time.Time        `json:"createdAt"`
}

// IsFollow reports whether the signal recommends copying the trade
func (s *CopySignal) IsFollow() bool {
	return s.Action == ActionFollow
}

// ShortAddress renders 0x1234…abcd style labels
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

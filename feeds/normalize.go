package feeds

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/copybot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// NORMALIZER - Raw exchange trade records → types.WalletTrade
// ═══════════════════════════════════════════════════════════════════════════════

// ErrMalformedTrade is returned for records that cannot be interpreted
var ErrMalformedTrade = errors.New("malformed trade")

// FlexString decodes a JSON string or number into its textual form.
// Trade history endpoints are not consistent about numeric encoding.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// RawTrade is one trade record as returned by the trade-history API.
// The data API uses camelCase (conditionId, asset, timestamp, transactionHash)
// while CLOB trade records use snake_case; both decode into the same fields.
type RawTrade struct {
	ID              string     `json:"id"`
	Market          string     `json:"market"` // condition ID
	AssetID         string     `json:"asset_id"`
	Side            string     `json:"side"`
	Outcome         string     `json:"outcome"`
	Price           FlexString `json:"price"`
	Size            FlexString `json:"size"`
	MatchTime       FlexString `json:"match_time"`
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	TransactionHash string     `json:"transaction_hash,omitempty"`
}

// dataAPITrade holds the data API spellings of RawTrade fields
type dataAPITrade struct {
	ConditionID     string     `json:"conditionId"`
	Asset           string     `json:"asset"`
	Timestamp       FlexString `json:"timestamp"`
	TransactionHash string     `json:"transactionHash"`
}

// UnmarshalJSON implements json.Unmarshaler. snake_case values win when a
// record carries both spellings.
func (r *RawTrade) UnmarshalJSON(data []byte) error {
	type plain RawTrade
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var alt dataAPITrade
	if err := json.Unmarshal(data, &alt); err != nil {
		return err
	}

	if p.Market == "" {
		p.Market = alt.ConditionID
	}
	if p.AssetID == "" {
		p.AssetID = alt.Asset
	}
	if p.MatchTime == "" {
		p.MatchTime = alt.Timestamp
	}
	if p.TransactionHash == "" {
		p.TransactionHash = alt.TransactionHash
	}

	*r = RawTrade(p)
	return nil
}

// Normalize converts a single raw record into a WalletTrade.
// Notional is always recomputed from price and size.
func Normalize(raw RawTrade, wallet string) (types.WalletTrade, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		if raw.TransactionHash == "" {
			return types.WalletTrade{}, fmt.Errorf("%w: missing id", ErrMalformedTrade)
		}
		id = fmt.Sprintf("%s:%s:%s", raw.TransactionHash, raw.AssetID, strings.ToUpper(raw.Side))
	}

	price, err := parseAmount("price", string(raw.Price))
	if err != nil {
		return types.WalletTrade{}, err
	}
	size, err := parseAmount("size", string(raw.Size))
	if err != nil {
		return types.WalletTrade{}, err
	}

	side := types.Side(strings.ToUpper(strings.TrimSpace(raw.Side)))
	if side != types.SideBuy && side != types.SideSell {
		return types.WalletTrade{}, fmt.Errorf("%w: side %q", ErrMalformedTrade, raw.Side)
	}

	var outcome types.Outcome
	switch strings.ToLower(strings.TrimSpace(raw.Outcome)) {
	case "yes":
		outcome = types.OutcomeYes
	case "no":
		outcome = types.OutcomeNo
	default:
		return types.WalletTrade{}, fmt.Errorf("%w: outcome %q", ErrMalformedTrade, raw.Outcome)
	}

	ts, err := parseMatchTime(string(raw.MatchTime))
	if err != nil {
		return types.WalletTrade{}, err
	}

	question := strings.TrimSpace(raw.Title)
	if question == "" {
		question = raw.Slug
	}

	return types.WalletTrade{
		ID:          id,
		Wallet:      strings.ToLower(wallet),
		ConditionID: raw.Market,
		Slug:        raw.Slug,
		Question:    question,
		Side:        side,
		Outcome:     outcome,
		TokenID:     raw.AssetID,
		Price:       price,
		Size:        size,
		Notional:    price.Mul(size),
		Timestamp:   ts,
		TxHash:      raw.TransactionHash,
	}, nil
}

// NormalizeBatch normalizes every record it can and reports how many were
// skipped. The result is ordered by match time, oldest first.
func NormalizeBatch(raws []RawTrade, wallet string) ([]types.WalletTrade, int) {
	trades := make([]types.WalletTrade, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		t, err := Normalize(raw, wallet)
		if err != nil {
			skipped++
			continue
		}
		trades = append(trades, t)
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.Before(trades[j].Timestamp)
	})

	return trades, skipped
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: empty %s", ErrMalformedTrade, field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q", ErrMalformedTrade, field, value)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative %s %q", ErrMalformedTrade, field, value)
	}
	return d, nil
}

// parseMatchTime accepts RFC3339 timestamps or unix seconds/milliseconds
func parseMatchTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty match_time", ErrMalformedTrade)
	}

	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.UTC(), nil
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: match_time %q", ErrMalformedTrade, value)
	}
	// Anything past year 2286 in seconds is really milliseconds
	if n > 9_999_999_999 {
		return time.UnixMilli(n).UTC(), nil
	}
	return time.Unix(n, 0).UTC(), nil
}

package feeds

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/copybot/types"
)

const wallet = "0xAbCdEf0000000000000000000000000000000001"

func raw(id, side, outcome, price, size, matchTime string) RawTrade {
	return RawTrade{
		ID:        id,
		Market:    "0xcond",
		AssetID:   "12345",
		Side:      side,
		Outcome:   outcome,
		Price:     FlexString(price),
		Size:      FlexString(size),
		MatchTime: FlexString(matchTime),
		Slug:      "will-it-rain",
		Title:     "Will it rain?",
	}
}

func TestNormalize(t *testing.T) {
	tr, err := Normalize(raw("t1", "buy", "YES", "0.42", "150", "2024-05-01T12:00:00Z"), wallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.Wallet != "0xabcdef0000000000000000000000000000000001" {
		t.Errorf("wallet not lowercased: %s", tr.Wallet)
	}
	if tr.Side != types.SideBuy || tr.Outcome != types.OutcomeYes {
		t.Errorf("unexpected side/outcome %s/%s", tr.Side, tr.Outcome)
	}
	if !tr.Notional.Equal(decimal.RequireFromString("63")) {
		t.Errorf("expected notional 63, got %s", tr.Notional)
	}
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !tr.Timestamp.Equal(want) {
		t.Errorf("expected %s, got %s", want, tr.Timestamp)
	}
	if tr.Question != "Will it rain?" {
		t.Errorf("unexpected question %q", tr.Question)
	}
}

func TestNormalize_NotionalAlwaysRecomputed(t *testing.T) {
	// Upstream-provided notionals are not part of RawTrade; whatever the
	// encoding of price and size, notional == price * size
	cases := [][2]string{
		{"0.5", "10"},
		{"0.333", "3"},
		{"0.999", "100000.123456"},
		{"0", "50"},
	}
	for _, c := range cases {
		tr, err := Normalize(raw("id", "SELL", "no", c[0], c[1], "1714564800"), wallet)
		if err != nil {
			t.Fatalf("%v: %v", c, err)
		}
		if !tr.Notional.Equal(tr.Price.Mul(tr.Size)) {
			t.Errorf("%v: notional %s != price*size", c, tr.Notional)
		}
	}
}

func TestNormalize_Timestamps(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, ts := range []string{"2024-05-01T12:00:00Z", "1714564800", "1714564800000"} {
		tr, err := Normalize(raw("id", "BUY", "Yes", "0.5", "1", ts), wallet)
		if err != nil {
			t.Fatalf("%s: %v", ts, err)
		}
		if !tr.Timestamp.Equal(want) {
			t.Errorf("%s: expected %s, got %s", ts, want, tr.Timestamp)
		}
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  RawTrade
	}{
		{"bad price", raw("id", "BUY", "Yes", "abc", "1", "1714564800")},
		{"negative size", raw("id", "BUY", "Yes", "0.5", "-1", "1714564800")},
		{"empty price", raw("id", "BUY", "Yes", "", "1", "1714564800")},
		{"bad side", raw("id", "HOLD", "Yes", "0.5", "1", "1714564800")},
		{"bad outcome", raw("id", "BUY", "Maybe", "0.5", "1", "1714564800")},
		{"bad time", raw("id", "BUY", "Yes", "0.5", "1", "yesterday")},
		{"missing id", raw("", "BUY", "Yes", "0.5", "1", "1714564800")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, wallet)
			if !errors.Is(err, ErrMalformedTrade) {
				t.Errorf("expected ErrMalformedTrade, got %v", err)
			}
		})
	}
}

func TestNormalize_IDFromTxHash(t *testing.T) {
	r := raw("", "buy", "Yes", "0.5", "1", "1714564800")
	r.TransactionHash = "0xdeadbeef"

	tr, err := Normalize(r, wallet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.ID != "0xdeadbeef:12345:BUY" {
		t.Errorf("unexpected derived id %q", tr.ID)
	}
}

func TestNormalizeBatch(t *testing.T) {
	raws := []RawTrade{
		raw("late", "BUY", "Yes", "0.5", "10", "1714564900"),
		raw("bad", "BUY", "Yes", "x", "10", "1714564800"),
		raw("early", "BUY", "No", "0.5", "10", "1714564800"),
	}

	trades, skipped := NormalizeBatch(raws, wallet)
	if skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", skipped)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].ID != "early" || trades[1].ID != "late" {
		t.Errorf("expected oldest first, got %s, %s", trades[0].ID, trades[1].ID)
	}
}

func TestFlexString(t *testing.T) {
	var r RawTrade
	body := `{"id":"a","price":0.42,"size":"150","match_time":1714564800}`
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Price != "0.42" || r.Size != "150" || r.MatchTime != "1714564800" {
		t.Errorf("unexpected decode: %+v", r)
	}

	if err := json.Unmarshal([]byte(`{"price":null}`), &r); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if r.Price != "" {
		t.Errorf("expected empty price for null, got %q", r.Price)
	}
}

func TestRawTrade_SnakeCaseWins(t *testing.T) {
	var r RawTrade
	body := `{"id":"a","market":"0xsnake","conditionId":"0xcamel","asset":"9","match_time":"1714564800","timestamp":1}`
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r.Market != "0xsnake" || r.AssetID != "9" || r.MatchTime != "1714564800" {
		t.Errorf("unexpected merge: %+v", r)
	}
}

package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchTrades(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trades" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"t1","market":"0xc","asset_id":"1","side":"BUY","outcome":"Yes","price":"0.5","size":"100","match_time":"1714564800"},
			{"id":"t2","market":"0xc","asset_id":"1","side":"SELL","outcome":"Yes","price":0.6,"size":50,"match_time":1714564900}
		]`))
	}))
	defer srv.Close()

	c := NewDataAPIClient(srv.URL+"/", time.Second, 100)
	trades, err := c.FetchTrades(context.Background(), "0xABC", 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[1].Price != "0.6" {
		t.Errorf("numeric price not decoded: %q", trades[1].Price)
	}
	if !strings.Contains(gotQuery, "user=0xabc") || !strings.Contains(gotQuery, "limit=25") {
		t.Errorf("unexpected query %q", gotQuery)
	}
}

func TestFetchTrades_WrappedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"t1","side":"BUY","outcome":"No","price":"0.1","size":"1","match_time":"1714564800"}],"next_cursor":"LTE="}`))
	}))
	defer srv.Close()

	c := NewDataAPIClient(srv.URL, time.Second, 100)
	trades, err := c.FetchTrades(context.Background(), "0xabc", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 1 || trades[0].ID != "t1" {
		t.Errorf("unexpected trades %+v", trades)
	}
}

func TestFetchTrades_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewDataAPIClient(srv.URL, time.Second, 100)
	_, err := c.FetchTrades(context.Background(), "0xabc", 10)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected API error 429, got %v", err)
	}
}

func TestFetchTrades_Cancelled(t *testing.T) {
	c := NewDataAPIClient("http://127.0.0.1:1", time.Second, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchTrades(ctx, "0xabc", 10); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestFetchTrades_DataAPIShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"proxyWallet":"0xabcdef0123456789abcdef0123456789abcdef01",
			"side":"BUY",
			"asset":"123",
			"conditionId":"0xcond",
			"size":200,
			"price":0.5,
			"timestamp":1760000000,
			"title":"Will it rain?",
			"slug":"will-it-rain",
			"outcome":"Yes",
			"outcomeIndex":0,
			"transactionHash":"0xabc"
		}]`))
	}))
	defer srv.Close()

	c := NewDataAPIClient(srv.URL, time.Second, 100)
	raws, err := c.FetchTrades(context.Background(), "0xabcdef0123456789abcdef0123456789abcdef01", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trades, skipped := NormalizeBatch(raws, "0xabcdef0123456789abcdef0123456789abcdef01")
	if skipped != 0 || len(trades) != 1 {
		t.Fatalf("expected 1 trade and 0 skipped, got %d/%d (%+v)", len(trades), skipped, raws)
	}

	tr := trades[0]
	if tr.ID != "0xabc:123:BUY" {
		t.Errorf("unexpected derived id %q", tr.ID)
	}
	if tr.ConditionID != "0xcond" || tr.TokenID != "123" || tr.TxHash != "0xabc" {
		t.Errorf("camelCase fields not mapped: %+v", tr)
	}
	if !tr.Timestamp.Equal(time.Unix(1760000000, 0)) {
		t.Errorf("unexpected timestamp %s", tr.Timestamp)
	}
	if tr.Notional.String() != "100" {
		t.Errorf("expected notional 100, got %s", tr.Notional)
	}
}

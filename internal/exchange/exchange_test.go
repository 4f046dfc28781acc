package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testOptions(url string) Options {
	return Options{BaseURL: url, Timeout: time.Second, UserAgent: "test"}
}

func TestBinanceFetchNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/premiumIndex" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"symbol": "BTCUSDT", "lastFundingRate": "0.000100", "nextFundingTime": 1700000000000},
			{"symbol": "ETHUSDT", "lastFundingRate": "not-a-number", "nextFundingTime": 1700000000000},
			{"symbol": "", "lastFundingRate": "0.0001", "nextFundingTime": 1700000000000},
			{"symbol": "XRPUSDT", "lastFundingRate": "-0.00075", "nextFundingTime": 0},
		})
	}))
	defer srv.Close()

	records, err := NewBinance(testOptions(srv.URL), noopLogger()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("malformed entries must be skipped, got %d records", len(records))
	}
	got := records[0]
	if got.Exchange != "Binance" || got.Symbol != "BTCUSDT" || got.NextFundingTime != 1700000000000 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.Rate.Equal(decimal.RequireFromString("0.0001")) {
		t.Fatalf("rate not parsed: %s", got.Rate)
	}
}

func TestBinanceFetchTotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	if _, err := NewBinance(testOptions(srv.URL), noopLogger()).Fetch(context.Background()); err == nil {
		t.Fatal("http error must surface as a fetch error")
	}
}

func TestBybitFetchParsesStringFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"list": []map[string]string{
					{"symbol": "BTCUSDT", "fundingRate": "0.0001", "nextFundingTime": "1700000000000"},
					{"symbol": "BADTIME", "fundingRate": "0.0001", "nextFundingTime": "soon"},
				},
			},
		})
	}))
	defer srv.Close()

	records, err := NewBybit(testOptions(srv.URL), noopLogger()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(records) != 1 || records[0].Exchange != "Bybit" || records[0].NextFundingTime != 1700000000000 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestGateNormalizesSecondsToMillis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"name": "BTC_USDT", "funding_rate": "0.0001", "funding_next_apply": 1700000000},
		})
	}))
	defer srv.Close()

	records, err := NewGate(testOptions(srv.URL), noopLogger()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(records) != 1 || records[0].NextFundingTime != 1700000000000 {
		t.Fatalf("epoch seconds must be scaled to ms: %+v", records)
	}
}

func TestBitgetSkipsEntriesWithoutFundingTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"symbol": "BTCUSDT", "fundingRate": "0.0001", "nextFundingTime": "1700000000000"},
				{"symbol": "BTCUSDT_DELIVERY", "fundingRate": "0.0001", "nextFundingTime": ""},
			},
		})
	}))
	defer srv.Close()

	records, err := NewBitget(testOptions(srv.URL), noopLogger()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(records) != 1 || records[0].Exchange != "Bitget" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestOKXTwoStepFanOut(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v5/public/instruments"):
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]string{
					{"instId": "BTC-USDT-SWAP"}, {"instId": "ETH-USDT-SWAP"},
					{"instId": "XRP-USDT-SWAP"}, {"instId": "SOL-USDT-SWAP"},
					{"instId": "DOGE-USDT-SWAP"}, {"instId": "ADA-USDT-SWAP"},
					{"instId": "DOT-USDT-SWAP"}, {"instId": "LTC-USDT-SWAP"},
				},
			})
		case strings.HasPrefix(r.URL.Path, "/api/v5/public/funding-rate"):
			current := atomic.AddInt64(&inFlight, 1)
			mu.Lock()
			if current > peak {
				peak = current
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			instID := r.URL.Query().Get("instId")
			if instID == "XRP-USDT-SWAP" {
				// One broken instrument must not fail the fetch.
				w.WriteHeader(http.StatusInternalServerError)
			} else {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]string{
						{"instId": instID, "fundingRate": "0.0001", "fundingTime": "1700000000000"},
					},
				})
			}
			atomic.AddInt64(&inFlight, -1)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	records, err := NewOKX(testOptions(srv.URL), noopLogger()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(records) != 7 {
		t.Fatalf("expected 7 records (one instrument broken), got %d", len(records))
	}
	mu.Lock()
	defer mu.Unlock()
	if peak > okxWorkers {
		t.Fatalf("concurrency exceeded pool size: peak %d", peak)
	}
	if peak < 2 {
		t.Fatalf("instrument fetches should overlap, peak %d", peak)
	}
}

func TestOKXInstrumentListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewOKX(testOptions(srv.URL), noopLogger()).Fetch(context.Background()); err == nil {
		t.Fatal("listing failure must surface as a fetch error")
	}
}

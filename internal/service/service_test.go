package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tf-alerter/internal/exchange"
	"tf-alerter/internal/funding"
	"tf-alerter/internal/storage"
)

type captureNotifier struct {
	events []funding.Event
}

func (c *captureNotifier) Notify(ctx context.Context, event funding.Event) error {
	c.events = append(c.events, event)
	return nil
}

type captureAlertStore struct {
	records []storage.AlertRecord
}

func (c *captureAlertStore) InsertAlert(ctx context.Context, alert storage.AlertRecord) (storage.AlertRecord, error) {
	c.records = append(c.records, alert)
	return alert, nil
}

func (c *captureAlertStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	return c.records, nil
}

func (c *captureAlertStore) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	return nil
}

func (c *captureAlertStore) CountAlerts(ctx context.Context) (int64, error) {
	return int64(len(c.records)), nil
}

type captureSampleStore struct {
	samples []storage.FundingSample
}

func (c *captureSampleStore) UpsertFundingSample(ctx context.Context, sample storage.FundingSample) error {
	c.samples = append(c.samples, sample)
	return nil
}

func (c *captureSampleStore) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]storage.FundingSample, error) {
	return c.samples, nil
}

func TestHandleEventRoutesAlertGrade(t *testing.T) {
	notifier := &captureNotifier{}
	alerts := &captureAlertStore{}
	svc := New(Options{Notifier: notifier, AlertStore: alerts}, zerolog.Nop())

	event := funding.Event{
		Kind:            funding.KindAlert,
		Exchange:        "Binance",
		Symbol:          "BTCUSDT",
		RatePct:         decimal.NewFromFloat(1.2),
		MinutesTo:       15,
		NextFundingTime: time.Now().Add(15 * time.Minute).UnixMilli(),
	}
	svc.HandleEvent(context.Background(), event)

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.events))
	}
	if len(alerts.records) != 1 {
		t.Fatalf("expected 1 persisted alert, got %d", len(alerts.records))
	}
	if alerts.records[0].Kind != string(funding.KindAlert) {
		t.Fatalf("unexpected persisted kind %q", alerts.records[0].Kind)
	}
	if got := svc.Feed().Upcoming(); len(got) != 1 {
		t.Fatalf("expected 1 feed entry, got %d", len(got))
	}
}

func TestHandleEventLogKindStaysLocal(t *testing.T) {
	notifier := &captureNotifier{}
	alerts := &captureAlertStore{}
	svc := New(Options{Notifier: notifier, AlertStore: alerts}, zerolog.Nop())

	event := funding.Event{
		Kind:     funding.KindLog,
		Exchange: "Bybit",
		Symbol:   "ETHUSDT",
		RatePct:  decimal.NewFromFloat(1.1),
	}
	svc.HandleEvent(context.Background(), event)

	if len(notifier.events) != 0 {
		t.Fatalf("log events must not notify, got %d notifications", len(notifier.events))
	}
	if len(alerts.records) != 0 {
		t.Fatalf("log events must not persist, got %d records", len(alerts.records))
	}
	if got := svc.Feed().Upcoming(); len(got) != 1 {
		t.Fatalf("log events still land in the feed, got %d entries", len(got))
	}
}

func TestRecordCycleKeepsExtremePerExchange(t *testing.T) {
	samples := &captureSampleStore{}
	svc := New(Options{SampleStore: samples}, zerolog.Nop())

	cycle := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next := cycle.Add(30 * time.Minute).UnixMilli()
	svc.RecordCycle(cycle, []exchange.Record{
		{Exchange: "Binance", Symbol: "AAAUSDT", Rate: decimal.NewFromFloat(0.001), NextFundingTime: next},
		{Exchange: "Binance", Symbol: "BBBUSDT", Rate: decimal.NewFromFloat(-0.02), NextFundingTime: next},
		{Exchange: "Bybit", Symbol: "CCCUSDT", Rate: decimal.NewFromFloat(0.005), NextFundingTime: next},
	})

	if len(samples.samples) != 2 {
		t.Fatalf("expected one sample per exchange, got %d", len(samples.samples))
	}
	for _, sample := range samples.samples {
		if sample.Exchange == "Binance" {
			if sample.Symbol != "BBBUSDT" {
				t.Fatalf("expected the extreme-rate instrument, got %s", sample.Symbol)
			}
			if !sample.RatePct.Equal(decimal.NewFromFloat(-2)) {
				t.Fatalf("unexpected rate pct %s", sample.RatePct)
			}
		}
	}
}

var _ storage.AlertStore = (*captureAlertStore)(nil)
var _ storage.FundingSampleStore = (*captureSampleStore)(nil)

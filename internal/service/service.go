package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tf-alerter/internal/alerting"
	"tf-alerter/internal/exchange"
	"tf-alerter/internal/funding"
	"tf-alerter/internal/sound"
	"tf-alerter/internal/storage"
)

// FundingSoundFile is the asset played when an alert-grade event fires.
const FundingSoundFile = "funding_alert.wav"

var pct100 = decimal.NewFromInt(100)

// Service is the consumer side of the two engines: it drains the clock
// and funding streams, maintains the display feed, persists records, and
// routes alert-grade events to the notifier.
type Service struct {
	feed        *alerting.Feed
	notifier    alerting.Notifier
	alertStore  storage.AlertStore
	sampleStore storage.FundingSampleStore
	library     *sound.Library
	player      sound.Player
	logger      zerolog.Logger

	fundingSound bool
	volume       int
}

// Options wire a Service. Every collaborator except the feed is optional.
type Options struct {
	Feed        *alerting.Feed
	Notifier    alerting.Notifier
	AlertStore  storage.AlertStore
	SampleStore storage.FundingSampleStore
	Library     *sound.Library
	Player      sound.Player

	FundingSound bool
	Volume       int
}

// New constructs the consumer service.
func New(opts Options, logger zerolog.Logger) *Service {
	feed := opts.Feed
	if feed == nil {
		feed = alerting.NewFeed(0)
	}
	return &Service{
		feed:         feed,
		notifier:     opts.Notifier,
		alertStore:   opts.AlertStore,
		sampleStore:  opts.SampleStore,
		library:      opts.Library,
		player:       opts.Player,
		logger:       logger.With().Str("component", "service").Logger(),
		fundingSound: opts.FundingSound,
		volume:       opts.Volume,
	}
}

// Feed exposes the display feed.
func (s *Service) Feed() *alerting.Feed {
	return s.feed
}

// Run drains the event, status, and close-notification streams until ctx
// is cancelled. Feed promotion runs on a fixed cadence.
func (s *Service) Run(ctx context.Context, events <-chan funding.Event, statuses <-chan funding.Status, closes <-chan string) error {
	promote := time.NewTicker(30 * time.Second)
	defer promote.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-events:
			s.HandleEvent(ctx, event)
		case status := <-statuses:
			s.handleStatus(status)
		case text := <-closes:
			s.logger.Info().Str("message", text).Msg("candle closed")
		case <-promote.C:
			s.feed.Promote()
		}
	}
}

// HandleEvent routes one funding event: every kind lands in the feed and
// the log; alert-grade kinds additionally persist, sound, and notify.
func (s *Service) HandleEvent(ctx context.Context, event funding.Event) {
	s.feed.Record(event)

	s.logger.Info().
		Str("kind", string(event.Kind)).
		Str("exchange", event.Exchange).
		Str("symbol", event.Symbol).
		Str("rate_pct", event.RatePct.StringFixed(4)).
		Int64("minutes_to", event.MinutesTo).
		Msg(event.Message())

	if event.Kind == funding.KindLog {
		return
	}

	s.playFundingSound()

	if s.alertStore != nil {
		record := storage.AlertRecord{
			Exchange:      event.Exchange,
			Symbol:        event.Symbol,
			RatePct:       event.RatePct,
			MinutesTo:     event.MinutesTo,
			NextFundingTS: time.UnixMilli(event.NextFundingTime).UTC(),
			Kind:          string(event.Kind),
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("symbol", event.Symbol).Msg("failed to persist alert record")
		}
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("symbol", event.Symbol).Msg("failed to dispatch alert")
		}
	}
}

// RecordCycle persists each exchange's extreme-rate instrument from one
// poll cycle. Wired as the monitor's recorder hook.
func (s *Service) RecordCycle(cycleTS time.Time, records []exchange.Record) {
	if s.sampleStore == nil || len(records) == 0 {
		return
	}

	extremes := make(map[string]exchange.Record)
	for _, record := range records {
		current, ok := extremes[record.Exchange]
		if !ok || record.Rate.Abs().GreaterThan(current.Rate.Abs()) {
			extremes[record.Exchange] = record
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, record := range extremes {
		sample := storage.FundingSample{
			CycleTS:       cycleTS.UTC().Truncate(time.Minute),
			Exchange:      record.Exchange,
			Symbol:        record.Symbol,
			RatePct:       record.Rate.Mul(pct100),
			NextFundingTS: time.UnixMilli(record.NextFundingTime).UTC(),
		}
		if err := s.sampleStore.UpsertFundingSample(ctx, sample); err != nil {
			s.logger.Error().Err(err).Str("exchange", record.Exchange).Msg("failed to upsert funding sample")
		}
	}
}

func (s *Service) handleStatus(status funding.Status) {
	for name, st := range status.Exchanges {
		if !st.Enabled {
			continue
		}
		evt := s.logger.Debug().Str("exchange", name).Int("fetched", st.Fetched).Int("passed", st.Passed)
		if st.Error != "" {
			evt = evt.Str("error", st.Error)
		}
		evt.Msg("funding cycle status")
	}
}

func (s *Service) playFundingSound() {
	if !s.fundingSound || s.library == nil || s.player == nil {
		return
	}
	path, ok := s.library.Path(sound.KindVoice, FundingSoundFile)
	if !ok {
		s.logger.Debug().Str("file", FundingSoundFile).Msg("funding sound asset missing")
		return
	}
	s.player.Play(sound.KindVoice, path, s.volume)
}

package funding

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tf-alerter/internal/exchange"
	"tf-alerter/internal/scheduler"
)

var pct100 = decimal.NewFromInt(100)

// Settings is the per-cycle configuration snapshot. The worker reads only
// this copy, so UI-side changes mid-flight cannot race a running cycle.
type Settings struct {
	Exchanges        []string
	MinutesText      string
	ThresholdPosText string
	ThresholdNegText string
	AlertBefore      bool
	AlertPercent     bool
}

// Intervals control the adaptive poll schedule.
type Intervals struct {
	// Near applies when any record is within an hour of funding.
	Near time.Duration
	// Far applies otherwise.
	Far time.Duration
	// Fallback applies after a cycle-level failure.
	Fallback time.Duration
}

// DefaultIntervals mirror the 60s/300s/60s production schedule.
func DefaultIntervals() Intervals {
	return Intervals{Near: time.Minute, Far: 5 * time.Minute, Fallback: time.Minute}
}

// Monitor runs the funding poll cycle: fetch, normalize, evaluate,
// deduplicate, emit.
type Monitor struct {
	fetchers  map[string]exchange.Fetcher
	cache     Cache
	snapshot  func() Settings
	recorder  func(cycleTS time.Time, records []exchange.Record)
	intervals Intervals
	logger    zerolog.Logger
	now       func() time.Time

	events chan Event
	status chan Status

	mu        sync.Mutex
	inFlight  bool
	signature string
	sched     *scheduler.Adaptive
}

// MonitorOptions wire a Monitor.
type MonitorOptions struct {
	Fetchers  []exchange.Fetcher
	Cache     Cache
	Snapshot  func() Settings
	// Recorder, when set, receives every cycle's normalized records for
	// out-of-band persistence.
	Recorder  func(cycleTS time.Time, records []exchange.Record)
	Intervals Intervals
	// Now exists for tests; defaults to time.Now.
	Now func() time.Time
}

// NewMonitor constructs the monitor.
func NewMonitor(opts MonitorOptions, logger zerolog.Logger) *Monitor {
	if opts.Intervals.Near <= 0 {
		opts.Intervals = DefaultIntervals()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	fetchers := make(map[string]exchange.Fetcher, len(opts.Fetchers))
	for _, f := range opts.Fetchers {
		fetchers[f.Name()] = f
	}
	return &Monitor{
		fetchers:  fetchers,
		cache:     opts.Cache,
		snapshot:  opts.Snapshot,
		recorder:  opts.Recorder,
		intervals: opts.Intervals,
		logger:    logger.With().Str("component", "funding_monitor").Logger(),
		now:       opts.Now,
		events:    make(chan Event, 256),
		status:    make(chan Status, 4),
	}
}

// Events returns the alert/log stream consumed by the UI-side goroutine.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// StatusUpdates returns the per-cycle diagnostics stream.
func (m *Monitor) StatusUpdates() <-chan Status {
	return m.status
}

// Run blocks, polling on the adaptive schedule until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	sched := scheduler.New(scheduler.Options{InitialDelay: time.Second, Floor: time.Second}, m.logger)
	m.mu.Lock()
	m.sched = sched
	m.mu.Unlock()
	return sched.Run(ctx, m.Cycle)
}

// Refresh clears the dedup cache and pulls the next cycle forward. Called
// when the user changes settings so the new selection is evaluated
// immediately instead of after the current backoff.
func (m *Monitor) Refresh() {
	m.cache.Clear()
	m.mu.Lock()
	sched := m.sched
	m.mu.Unlock()
	if sched != nil {
		sched.Requeue()
	}
}

// Cycle executes one poll pass and returns the delay until the next. A
// cycle already in flight defers instead of overlapping; any panic is
// contained here so the poll loop never dies.
func (m *Monitor) Cycle(ctx context.Context) (next time.Duration) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return m.intervals.Fallback
	}
	m.inFlight = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("funding cycle panicked")
			next = m.intervals.Fallback
		}
	}()

	settings := m.snapshot()
	m.applySignature(settings.Exchanges)

	records, statuses := m.fetchAll(ctx, settings.Exchanges)
	if m.recorder != nil && len(records) > 0 {
		m.recorder(m.now(), records)
	}
	next = m.evaluate(records, statuses, settings)
	return next
}

// applySignature clears the dedup cache when the enabled-exchange set
// changes, so a re-enabled exchange is not suppressed by stale keys.
func (m *Monitor) applySignature(exchanges []string) {
	ids := append([]string(nil), exchanges...)
	sort.Strings(ids)
	signature := strings.Join(ids, ",")

	if m.signature != "" && m.signature != signature {
		m.logger.Info().Str("signature", signature).Msg("exchange selection changed, clearing dedup cache")
		m.cache.Clear()
	}
	m.signature = signature
}

type fetchResult struct {
	name    string
	records []exchange.Record
	err     error
}

// fetchAll queries every enabled exchange concurrently. Each fetcher is
// isolated: its failure only populates the status error text.
func (m *Monitor) fetchAll(ctx context.Context, enabled []string) ([]exchange.Record, map[string]ExchangeStatus) {
	statuses := make(map[string]ExchangeStatus, len(m.fetchers))
	for name := range m.fetchers {
		statuses[name] = ExchangeStatus{Name: name}
	}

	results := make(chan fetchResult, len(enabled))
	active := 0
	for _, name := range enabled {
		fetcher, ok := m.fetchers[name]
		if !ok {
			continue
		}
		active++
		go func(f exchange.Fetcher) {
			records, err := f.Fetch(ctx)
			results <- fetchResult{name: f.Name(), records: records, err: err}
		}(fetcher)
	}

	var records []exchange.Record
	for i := 0; i < active; i++ {
		res := <-results
		st := statuses[res.name]
		st.Enabled = true
		if res.err != nil {
			st.Error = res.err.Error()
			m.logger.Warn().Err(res.err).Str("exchange", res.name).Msg("funding fetch failed")
		} else {
			st.Fetched = len(res.records)
			records = append(records, res.records...)
		}
		statuses[res.name] = st
	}
	return records, statuses
}

func (m *Monitor) evaluate(records []exchange.Record, statuses map[string]ExchangeStatus, settings Settings) time.Duration {
	nowMS := m.now().UnixMilli()
	minutes := ParseMinuteList(settings.MinutesText)
	pos := ParseThreshold(settings.ThresholdPosText)
	neg := ParseThreshold(settings.ThresholdNegText)

	maxMinutes := 0
	if len(minutes) > 0 {
		maxMinutes = minutes[len(minutes)-1]
	}
	thresholdExtra := thresholdSignature(pos, neg)

	var minMinutes int64 = -1
	for _, record := range records {
		if record.NextFundingTime == 0 {
			continue
		}
		minutesTo := (record.NextFundingTime - nowMS) / 60000
		if minutesTo < 0 {
			minutesTo = 0
		}
		ratePct := record.Rate.Mul(pct100)
		passes := PassesThreshold(ratePct, pos, neg)

		if minMinutes < 0 || minutesTo < minMinutes {
			minMinutes = minutesTo
		}
		if passes {
			m.countPassed(statuses, record.Exchange)
		}

		event := Event{
			Exchange:        record.Exchange,
			Symbol:          record.Symbol,
			RatePct:         ratePct,
			MinutesTo:       minutesTo,
			NextFundingTime: record.NextFundingTime,
		}

		// Log stream: any threshold pass inside the minute-list window.
		// The minute list intentionally doubles as the log window.
		if passes && maxMinutes > 0 && minutesTo <= int64(maxMinutes) {
			key := CacheKey(string(KindLog), record.Exchange, record.Symbol, record.NextFundingTime, thresholdExtra)
			if m.cache.Add(key) {
				event.Kind = KindLog
				m.emit(event)
			}
		}

		// Alert stream: exact match against a configured target minute.
		// Each target fires once, so a record alerts at 15 and again at 5.
		if settings.AlertBefore && passes {
			for _, target := range minutes {
				if minutesTo == int64(target) {
					extra := fmt.Sprintf("%d:%s", target, thresholdExtra)
					key := CacheKey(string(KindAlert), record.Exchange, record.Symbol, record.NextFundingTime, extra)
					if m.cache.Add(key) {
						event.Kind = KindAlert
						m.emit(event)
					}
				}
			}
		}

		// Percent stream: threshold crossing independent of timing.
		if settings.AlertPercent && (pos.Enabled || neg.Enabled) && passes {
			key := CacheKey(string(KindPercent), record.Exchange, record.Symbol, record.NextFundingTime, thresholdExtra)
			if m.cache.Add(key) {
				event.Kind = KindPercent
				m.emit(event)
			}
		}
	}

	m.emitStatus(Status{UpdatedAtMS: m.now().UnixMilli(), Exchanges: statuses})

	if minMinutes >= 0 && minMinutes <= 60 {
		return m.intervals.Near
	}
	return m.intervals.Far
}

func (m *Monitor) countPassed(statuses map[string]ExchangeStatus, displayName string) {
	name := strings.ToLower(displayName)
	if st, ok := statuses[name]; ok {
		st.Passed++
		statuses[name] = st
	}
}

func thresholdSignature(pos, neg Threshold) string {
	render := func(t Threshold) string {
		if !t.Enabled {
			return "none"
		}
		return t.Value.String()
	}
	return render(pos) + ":" + render(neg)
}

// emit never blocks the poll worker; the 256-slot buffer absorbs bursts
// and drops on overflow.
func (m *Monitor) emit(event Event) {
	select {
	case m.events <- event:
	default:
		m.logger.Warn().Str("kind", string(event.Kind)).Str("symbol", event.Symbol).Msg("event channel full, dropped")
	}
}

func (m *Monitor) emitStatus(status Status) {
	select {
	case m.status <- status:
	default:
	}
}

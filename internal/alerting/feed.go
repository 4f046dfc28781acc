package alerting

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tf-alerter/internal/funding"
)

// HistoryCap bounds the triggered-event history list.
const HistoryCap = 10

// Entry is a materialized alert row for display: an upcoming funding event
// or a triggered one that crossed its funding time.
type Entry struct {
	Index           int
	At              time.Time
	Exchange        string
	Symbol          string
	MinutesTo       int64
	RatePct         decimal.Decimal
	Message         string
	NextFundingTime int64
}

// Feed owns the display-side alert lists. Upcoming entries move to the
// bounded history once their funding time plus a grace period has passed.
// The poll worker never touches the feed; only the consumer goroutine
// records events into it.
type Feed struct {
	mu       sync.Mutex
	upcoming []Entry
	history  []Entry
	grace    time.Duration
	nextIdx  int
	now      func() time.Time
}

// NewFeed constructs a feed. grace <= 0 defaults to two minutes.
func NewFeed(grace time.Duration) *Feed {
	if grace <= 0 {
		grace = 2 * time.Minute
	}
	return &Feed{grace: grace, now: time.Now}
}

// Record materializes an event into the upcoming list. An entry for the
// same exchange/symbol/funding-time is replaced rather than duplicated,
// keeping the freshest minutes-to value.
func (f *Feed) Record(event funding.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := Entry{
		At:              f.now(),
		Exchange:        event.Exchange,
		Symbol:          event.Symbol,
		MinutesTo:       event.MinutesTo,
		RatePct:         event.RatePct,
		Message:         event.Message(),
		NextFundingTime: event.NextFundingTime,
	}

	for i, existing := range f.upcoming {
		if existing.Exchange == entry.Exchange && existing.Symbol == entry.Symbol && existing.NextFundingTime == entry.NextFundingTime {
			entry.Index = existing.Index
			f.upcoming[i] = entry
			return
		}
	}

	f.nextIdx++
	entry.Index = f.nextIdx
	f.upcoming = append(f.upcoming, entry)
}

// Promote moves entries whose funding time plus grace has passed into the
// history, newest first, trimmed to HistoryCap.
func (f *Feed) Promote() {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().Add(-f.grace).UnixMilli()
	remaining := f.upcoming[:0]
	for _, entry := range f.upcoming {
		if entry.NextFundingTime <= cutoff {
			f.history = append([]Entry{entry}, f.history...)
		} else {
			remaining = append(remaining, entry)
		}
	}
	f.upcoming = remaining

	if len(f.history) > HistoryCap {
		f.history = f.history[:HistoryCap]
	}
}

// Upcoming returns a copy of the pending entries.
func (f *Feed) Upcoming() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Entry(nil), f.upcoming...)
}

// History returns a copy of the triggered entries, newest first.
func (f *Feed) History() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Entry(nil), f.history...)
}

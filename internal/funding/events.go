package funding

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies funding events.
type EventKind string

const (
	// KindAlert is an exact-minute before-funding match.
	KindAlert EventKind = "alert"
	// KindLog is a threshold pass inside the minute-list window without an
	// exact-minute match; informational stream only.
	KindLog EventKind = "log"
	// KindPercent is a plain threshold crossing, regardless of minutes.
	KindPercent EventKind = "percent"
)

// Event is a structured funding notification crossing from the poll worker
// to the consumer goroutine.
type Event struct {
	Kind            EventKind
	Exchange        string
	Symbol          string
	RatePct         decimal.Decimal
	MinutesTo       int64
	NextFundingTime int64
}

// Message renders the human-readable alert line, funding time in local
// time for display.
func (e Event) Message() string {
	at := time.UnixMilli(e.NextFundingTime).Local().Format("15:04")
	switch e.Kind {
	case KindAlert:
		return fmt.Sprintf("%s %s funding %s%% in %dmin (at %s)", e.Exchange, e.Symbol, e.RatePct.StringFixed(4), e.MinutesTo, at)
	case KindPercent:
		return fmt.Sprintf("%s %s funding rate %s%% (at %s)", e.Exchange, e.Symbol, e.RatePct.StringFixed(4), at)
	default:
		return fmt.Sprintf("%s %s %s%% in %dmin (at %s)", e.Exchange, e.Symbol, e.RatePct.StringFixed(4), e.MinutesTo, at)
	}
}

// ExchangeStatus summarises one exchange's share of a poll cycle.
type ExchangeStatus struct {
	Name    string
	Enabled bool
	Fetched int
	Passed  int
	Error   string
}

// Status is the per-cycle diagnostics payload.
type Status struct {
	UpdatedAtMS int64
	Exchanges   map[string]ExchangeStatus
}

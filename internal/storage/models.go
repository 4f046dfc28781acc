package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures an emitted funding alert for auditing.
type AlertRecord struct {
	ID            int64
	Exchange      string
	Symbol        string
	RatePct       decimal.Decimal
	MinutesTo     int64
	NextFundingTS time.Time
	Kind          string
	CreatedAt     time.Time
}

// FundingSample is one per-cycle observation kept for charting: the
// extreme-rate instrument seen on an exchange during that cycle.
type FundingSample struct {
	CycleTS       time.Time
	Exchange      string
	Symbol        string
	RatePct       decimal.Decimal
	NextFundingTS time.Time
	CreatedAt     time.Time
}

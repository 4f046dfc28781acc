package exchange

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Binance reads the USDⓈ-M futures premium index, which carries the last
// funding rate and the next funding timestamp for every symbol.
type Binance struct {
	baseURL string
	ua      string
	client  *http.Client
	logger  zerolog.Logger
}

// NewBinance constructs the Binance fetcher.
func NewBinance(opts Options, logger zerolog.Logger) *Binance {
	return &Binance{
		baseURL: trimBase(opts.BaseURL, "https://fapi.binance.com"),
		ua:      userAgent(opts),
		client:  newHTTPClient(opts),
		logger:  logger.With().Str("component", "binance_fetcher").Logger(),
	}
}

func (b *Binance) Name() string { return "binance" }

type binancePremiumIndex struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

// Fetch returns all symbols with a known next funding time.
func (b *Binance) Fetch(ctx context.Context) ([]Record, error) {
	var entries []binancePremiumIndex
	if err := getJSON(ctx, b.client, b.baseURL+"/fapi/v1/premiumIndex", b.ua, &entries); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if entry.Symbol == "" || entry.NextFundingTime == 0 {
			continue
		}
		rate, err := decimal.NewFromString(entry.LastFundingRate)
		if err != nil {
			continue
		}
		records = append(records, Record{
			Exchange:        "Binance",
			Symbol:          entry.Symbol,
			Rate:            rate,
			NextFundingTime: entry.NextFundingTime,
		})
	}
	return records, nil
}

var _ Fetcher = (*Binance)(nil)

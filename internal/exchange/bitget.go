package exchange

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Bitget reads the v2 mix-market tickers for USDT futures. Entries without
// a next funding time (delivery contracts) are skipped.
type Bitget struct {
	baseURL string
	ua      string
	client  *http.Client
	logger  zerolog.Logger
}

// NewBitget constructs the Bitget fetcher.
func NewBitget(opts Options, logger zerolog.Logger) *Bitget {
	return &Bitget{
		baseURL: trimBase(opts.BaseURL, "https://api.bitget.com"),
		ua:      userAgent(opts),
		client:  newHTTPClient(opts),
		logger:  logger.With().Str("component", "bitget_fetcher").Logger(),
	}
}

func (b *Bitget) Name() string { return "bitget" }

type bitgetTickersResponse struct {
	Data []struct {
		Symbol          string `json:"symbol"`
		FundingRate     string `json:"fundingRate"`
		NextFundingTime string `json:"nextFundingTime"`
	} `json:"data"`
}

// Fetch returns funding records for every perpetual ticker.
func (b *Bitget) Fetch(ctx context.Context) ([]Record, error) {
	var payload bitgetTickersResponse
	if err := getJSON(ctx, b.client, b.baseURL+"/api/v2/mix/market/tickers?productType=usdt-futures", b.ua, &payload); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(payload.Data))
	for _, entry := range payload.Data {
		if entry.Symbol == "" || entry.NextFundingTime == "" {
			continue
		}
		rate, err := decimal.NewFromString(entry.FundingRate)
		if err != nil {
			continue
		}
		next, err := strconv.ParseInt(entry.NextFundingTime, 10, 64)
		if err != nil || next == 0 {
			continue
		}
		records = append(records, Record{
			Exchange:        "Bitget",
			Symbol:          entry.Symbol,
			Rate:            rate,
			NextFundingTime: next,
		})
	}
	return records, nil
}

var _ Fetcher = (*Bitget)(nil)

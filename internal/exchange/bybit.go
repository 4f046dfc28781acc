package exchange

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Bybit reads the v5 linear tickers endpoint. Numeric fields arrive as
// strings, including the millisecond next-funding timestamp.
type Bybit struct {
	baseURL string
	ua      string
	client  *http.Client
	logger  zerolog.Logger
}

// NewBybit constructs the Bybit fetcher.
func NewBybit(opts Options, logger zerolog.Logger) *Bybit {
	return &Bybit{
		baseURL: trimBase(opts.BaseURL, "https://api.bybit.com"),
		ua:      userAgent(opts),
		client:  newHTTPClient(opts),
		logger:  logger.With().Str("component", "bybit_fetcher").Logger(),
	}
}

func (b *Bybit) Name() string { return "bybit" }

type bybitTickersResponse struct {
	Result struct {
		List []struct {
			Symbol          string `json:"symbol"`
			FundingRate     string `json:"fundingRate"`
			NextFundingTime string `json:"nextFundingTime"`
		} `json:"list"`
	} `json:"result"`
}

// Fetch returns funding records for every linear contract.
func (b *Bybit) Fetch(ctx context.Context) ([]Record, error) {
	var payload bybitTickersResponse
	if err := getJSON(ctx, b.client, b.baseURL+"/v5/market/tickers?category=linear", b.ua, &payload); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(payload.Result.List))
	for _, entry := range payload.Result.List {
		if entry.Symbol == "" {
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
			Exchange:        "Bybit",
			Symbol:          entry.Symbol,
			Rate:            rate,
			NextFundingTime: next,
		})
	}
	return records, nil
}

var _ Fetcher = (*Bybit)(nil)

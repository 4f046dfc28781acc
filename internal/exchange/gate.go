package exchange

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Gate reads the USDT futures contract listing. The next funding apply
// time arrives as an epoch in seconds and is normalized to milliseconds.
type Gate struct {
	baseURL string
	ua      string
	client  *http.Client
	logger  zerolog.Logger
}

// NewGate constructs the Gate.io fetcher.
func NewGate(opts Options, logger zerolog.Logger) *Gate {
	return &Gate{
		baseURL: trimBase(opts.BaseURL, "https://api.gateio.ws"),
		ua:      userAgent(opts),
		client:  newHTTPClient(opts),
		logger:  logger.With().Str("component", "gate_fetcher").Logger(),
	}
}

func (g *Gate) Name() string { return "gate" }

type gateContract struct {
	Name             string `json:"name"`
	FundingRate      string `json:"funding_rate"`
	FundingNextApply int64  `json:"funding_next_apply"`
}

// Fetch returns funding records for every USDT-settled contract.
func (g *Gate) Fetch(ctx context.Context) ([]Record, error) {
	var contracts []gateContract
	if err := getJSON(ctx, g.client, g.baseURL+"/api/v4/futures/usdt/contracts", g.ua, &contracts); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(contracts))
	for _, contract := range contracts {
		if contract.Name == "" || contract.FundingNextApply == 0 {
			continue
		}
		rate, err := decimal.NewFromString(contract.FundingRate)
		if err != nil {
			continue
		}
		records = append(records, Record{
			Exchange:        "Gate",
			Symbol:          contract.Name,
			Rate:            rate,
			NextFundingTime: contract.FundingNextApply * 1000,
		})
	}
	return records, nil
}

var _ Fetcher = (*Gate)(nil)

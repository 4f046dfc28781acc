package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// okxWorkers bounds the per-instrument funding-rate fan-out. OKX lists
// hundreds of swaps and has no bulk funding endpoint.
const okxWorkers = 6

// OKX needs two steps: list the SWAP instruments, then fetch the funding
// rate per instrument. The second step fans out over a small worker pool.
type OKX struct {
	baseURL string
	ua      string
	client  *http.Client
	logger  zerolog.Logger
	workers int
}

// NewOKX constructs the OKX fetcher.
func NewOKX(opts Options, logger zerolog.Logger) *OKX {
	return &OKX{
		baseURL: trimBase(opts.BaseURL, "https://www.okx.com"),
		ua:      userAgent(opts),
		client:  newHTTPClient(opts),
		logger:  logger.With().Str("component", "okx_fetcher").Logger(),
		workers: okxWorkers,
	}
}

func (o *OKX) Name() string { return "okx" }

type okxInstrumentsResponse struct {
	Data []struct {
		InstID string `json:"instId"`
	} `json:"data"`
}

type okxFundingResponse struct {
	Data []struct {
		InstID      string `json:"instId"`
		FundingRate string `json:"fundingRate"`
		FundingTime string `json:"fundingTime"`
	} `json:"data"`
}

// Fetch lists instruments and resolves each funding rate concurrently. A
// failed instrument is skipped; only the instrument listing itself is a
// total failure.
func (o *OKX) Fetch(ctx context.Context) ([]Record, error) {
	var listing okxInstrumentsResponse
	if err := getJSON(ctx, o.client, o.baseURL+"/api/v5/public/instruments?instType=SWAP", o.ua, &listing); err != nil {
		return nil, err
	}

	instruments := make([]string, 0, len(listing.Data))
	for _, inst := range listing.Data {
		if inst.InstID != "" {
			instruments = append(instruments, inst.InstID)
		}
	}
	if len(instruments) == 0 {
		return nil, nil
	}

	jobs := make(chan string)
	results := make(chan Record, len(instruments))

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for instID := range jobs {
				record, ok := o.fetchFunding(ctx, instID)
				if ok {
					results <- record
				}
			}
		}()
	}

	for _, instID := range instruments {
		select {
		case <-ctx.Done():
			// stop feeding, let workers drain
		case jobs <- instID:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()
	close(results)

	records := make([]Record, 0, len(instruments))
	for record := range results {
		records = append(records, record)
	}
	return records, ctx.Err()
}

func (o *OKX) fetchFunding(ctx context.Context, instID string) (Record, bool) {
	endpoint := o.baseURL + "/api/v5/public/funding-rate?instId=" + url.QueryEscape(instID)

	var payload okxFundingResponse
	if err := getJSON(ctx, o.client, endpoint, o.ua, &payload); err != nil {
		o.logger.Debug().Err(err).Str("inst_id", instID).Msg("funding rate fetch failed")
		return Record{}, false
	}
	if len(payload.Data) == 0 {
		return Record{}, false
	}

	entry := payload.Data[0]
	rate, err := decimal.NewFromString(entry.FundingRate)
	if err != nil {
		return Record{}, false
	}
	next, err := strconv.ParseInt(entry.FundingTime, 10, 64)
	if err != nil || next == 0 {
		return Record{}, false
	}

	return Record{
		Exchange:        "OKX",
		Symbol:          entry.InstID,
		Rate:            rate,
		NextFundingTime: next,
	}, true
}

var _ Fetcher = (*OKX)(nil)

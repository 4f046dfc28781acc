package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a normalized funding observation. NextFundingTime is always an
// epoch in milliseconds regardless of what the source reports.
type Record struct {
	Exchange        string
	Symbol          string
	Rate            decimal.Decimal
	NextFundingTime int64
}

// Fetcher retrieves funding records from one exchange. Fetch returns an
// error only for a total failure (network, malformed top-level payload);
// individual malformed entries are skipped. Callers surface the error via
// status reporting and continue with other exchanges.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]Record, error)
}

const defaultTimeout = 10 * time.Second

// Options apply to every exchange client.
type Options struct {
	// BaseURL overrides the public endpoint, mainly for tests.
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

func newHTTPClient(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func userAgent(opts Options) string {
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		return ua
	}
	return "tf-alerter/1.0"
}

func getJSON(ctx context.Context, client *http.Client, url, ua string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", ua)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(firstBytes(body, 200)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func firstBytes(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

func trimBase(base, fallback string) string {
	if base == "" {
		base = fallback
	}
	return strings.TrimRight(base, "/")
}

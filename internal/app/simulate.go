package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"tf-alerter/internal/exchange"
	"tf-alerter/internal/funding"
	"tf-alerter/internal/sound"
)

// SimulateAlert 注入一条合成资金费率记录并走完整告警流程。
func (a *App) SimulateAlert(ctx context.Context, symbol string, ratePct decimal.Decimal, minutesTo int) error {
	if symbol == "" {
		return errors.New("--symbol 不能为空")
	}

	_, library := a.newSoundLibrary()
	player := sound.NewLogPlayer(a.Logger)
	svc := a.newService(nil, library, player)

	rate := ratePct.Div(decimal.NewFromInt(100))
	// 额外加 30 秒，避免整分钟截断后落到 minutesTo-1。
	nextFunding := time.Now().Add(time.Duration(minutesTo)*time.Minute + 30*time.Second).UnixMilli()

	fetcher := &staticFetcher{record: exchange.Record{
		Exchange:        "Simulated",
		Symbol:          symbol,
		Rate:            rate,
		NextFundingTime: nextFunding,
	}}

	monitor := funding.NewMonitor(funding.MonitorOptions{
		Fetchers: []exchange.Fetcher{fetcher},
		Cache:    funding.NewMemoryCache(funding.DefaultCacheCap),
		Snapshot: func() funding.Settings {
			return funding.Settings{
				Exchanges:        []string{fetcher.Name()},
				MinutesText:      a.Config.Funding.Minutes,
				ThresholdPosText: a.Config.Funding.ThresholdPos,
				ThresholdNegText: a.Config.Funding.ThresholdNeg,
				AlertBefore:      true,
				AlertPercent:     a.Config.Funding.AlertPercent,
			}
		},
	}, a.Logger)

	monitor.Cycle(ctx)

	delivered := 0
	for {
		select {
		case event := <-monitor.Events():
			svc.HandleEvent(ctx, event)
			delivered++
		default:
			if delivered == 0 {
				a.Logger.Warn().Str("symbol", symbol).Msg("模拟记录未触发任何告警，请检查阈值与分钟列表")
			}
			return nil
		}
	}
}

type staticFetcher struct {
	record exchange.Record
}

func (s *staticFetcher) Name() string { return "simulated" }

func (s *staticFetcher) Fetch(ctx context.Context) ([]exchange.Record, error) {
	return []exchange.Record{s.record}, nil
}

var _ exchange.Fetcher = (*staticFetcher)(nil)

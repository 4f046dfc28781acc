package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateSymbol    string
	simulateRatePct   float64
	simulateMinutesTo int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一条资金费率记录并触发告警流程",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateMinutesTo < 0 {
			return errors.New("--minutes-to 必须大于等于 0")
		}

		rate := decimal.NewFromFloat(simulateRatePct)
		return getApp().SimulateAlert(cmd.Context(), simulateSymbol, rate, simulateMinutesTo)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateSymbol, "symbol", "BTCUSDT", "合约符号")
	simulateCmd.Flags().Float64Var(&simulateRatePct, "rate-pct", 1.5, "资金费率 (百分比)")
	simulateCmd.Flags().IntVar(&simulateMinutesTo, "minutes-to", 15, "距离下次结算的分钟数")
}

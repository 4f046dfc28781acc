package cli

import (
	"github.com/spf13/cobra"
)

var testSoundCmd = &cobra.Command{
	Use:   "test-sound [timeframe]",
	Short: "Play a timeframe's voice asset to verify sound files resolve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().TestSound(args[0])
	},
}

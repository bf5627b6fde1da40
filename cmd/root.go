package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/primeflash/flasharb/utils"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "flasharb",
	Short: "Block-driven flashloan arbitrage agent",
	Long: `flasharb watches the chain head, scans a configured set of
cross-exchange routes against a deployed arbitrage contract, and submits
a single flashloan arbitrage transaction when a profitable opportunity
clears the cost and risk thresholds.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flasharb.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug)
}

package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/primeflash/flasharb/agent"
	"github.com/primeflash/flasharb/config"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/utils"
)

// simulateCmd runs one scan and selection pass and reports the best
// candidate without submitting anything.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run one scan cycle without submitting a transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()
		ctx := cmd.Context()

		if err := config.LoadEnv(); err != nil {
			log.Fatal("Failed to load environment", zap.Error(err))
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}

		secrets, err := config.LoadSecureConfig()
		if err != nil {
			log.Fatal("Missing required environment", zap.Error(err))
		}

		a, _, err := agent.NewFromConfig(ctx, cfg, secrets, notify.Nop{}, nil, log)
		if err != nil {
			log.Fatal("Failed to create agent", zap.Error(err))
		}

		best, err := a.DryRun(ctx)
		if err != nil {
			return err
		}
		if best == nil {
			log.Info("No qualifying opportunity")
			return nil
		}

		log.Info("Best opportunity",
			zap.String("pair", best.Pair.Name),
			zap.String("amount_eth", utils.WeiToEtherString(best.AmountIn)),
			zap.String("gross_eth", utils.WeiToEtherString(best.GrossProfit)),
			zap.String("fees_eth", utils.WeiToEtherString(best.FeeCost)),
			zap.String("gas_eth", utils.WeiToEtherString(best.GasCost)),
			zap.String("net_eth", utils.WeiToEtherString(best.NetProfit)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

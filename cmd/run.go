package cmd

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/primeflash/flasharb/agent"
	"github.com/primeflash/flasharb/config"
	"github.com/primeflash/flasharb/notify"
	"github.com/primeflash/flasharb/utils"
	"github.com/primeflash/flasharb/utils/metrics"
	"github.com/primeflash/flasharb/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage agent",
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

		notifier := notify.NewTelegram(secrets.TelegramBotToken, secrets.TelegramChatID, log)

		registry := prometheus.NewRegistry()
		m := metrics.NewAgentMetrics("flasharb", registry)
		if cfg.MetricsListenAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				if err := http.ListenAndServe(cfg.MetricsListenAddr, mux); err != nil {
					log.Error("Metrics server stopped", zap.Error(err))
				}
			}()
		}

		a, client, err := agent.NewFromConfig(ctx, cfg, secrets, notifier, m, log)
		if err != nil {
			log.Fatal("Failed to create agent", zap.Error(err))
		}

		log.Info("Starting arbitrage agent",
			zap.String("contract", cfg.ContractAddress.Hex()),
			zap.Int("pairs", len(cfg.Pairs)),
			zap.Int("loan_amounts", len(cfg.LoanAmounts)))
		notifier.Notify(ctx, "Arbitrage agent started")

		w := watcher.New(client, a.Cycle, watcher.Config{
			PollInterval:   cfg.PollInterval,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
		}, notifier, m, log)

		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

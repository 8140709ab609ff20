// Package cli provides the command-line interface for signalforge.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"signalforge/config"
	"signalforge/internal/agents"
	"signalforge/internal/dataflows"
	"signalforge/internal/logger"
	"signalforge/internal/metrics"
	"signalforge/internal/models"
	"signalforge/internal/oracle"
	"signalforge/internal/pipeline"
	"signalforge/internal/publish"
	"signalforge/internal/store"
)

// Run starts the CLI application.
func Run() {
	rootCmd := NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "signalforge",
		Short: "signalforge - LLM-driven trading signal pipeline",
		Long: `signalforge runs a market scan through a chain of decision agents,
validates any proposed trade against strict safety rules and live reference
prices, and distributes the result to audience tiers with per-tier delays.`,
	}

	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newDeepDiveCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one full pipeline pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetBool("wait-delivery")
			showEvents, _ := cmd.Flags().GetBool("events")
			return executeRun(cfg, "", wait, showEvents)
		},
	}
	cmd.Flags().Bool("wait-delivery", false, "Block until all tier deliveries complete before exiting")
	cmd.Flags().Bool("events", false, "Print the run event stream after completion")
	return cmd
}

func newDeepDiveCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deep-dive [SYMBOL]",
		Short: "Run a focused analysis on one symbol, bypassing the scanner",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol string
			if len(args) == 1 {
				symbol = strings.ToUpper(args[0])
			} else {
				var err error
				symbol, err = PromptForSymbol()
				if err != nil {
					return err
				}
			}
			wait, _ := cmd.Flags().GetBool("wait-delivery")
			showEvents, _ := cmd.Flags().GetBool("events")
			return executeRun(cfg, symbol, wait, showEvents)
		},
	}
	cmd.Flags().Bool("wait-delivery", false, "Block until all tier deliveries complete before exiting")
	cmd.Flags().Bool("events", false, "Print the run event stream after completion")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("signalforge v0.3.0")
		},
	}
}

func executeRun(cfg *config.Config, deepDiveSymbol string, waitDelivery, showEvents bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	coordinator, err := buildCoordinator(cfg, log, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var record *models.RunRecord
	if deepDiveSymbol != "" {
		record, err = coordinator.RunDeepDive(ctx, deepDiveSymbol)
	} else {
		record, err = coordinator.RunPipeline(ctx)
	}
	if err != nil {
		return err
	}

	RenderRunSummary(record)
	if showEvents {
		RenderEvents(coordinator.Events(0))
	}
	if waitDelivery {
		log.Info().Msg("waiting for tier deliveries to finish")
		coordinator.WaitDeliveries()
	}
	return nil
}

func buildCoordinator(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*pipeline.Coordinator, error) {
	ctx := context.Background()

	chatModel, err := agents.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	scanner := agents.NewChatAgent(agents.RoleScanner, chatModel, cfg.AgentTimeout, log)
	analyzer := agents.NewChatAgent(agents.RoleAnalyzer, chatModel, cfg.AgentTimeout, log)
	generator := agents.NewChatAgent(agents.RoleGenerator, chatModel, cfg.AgentTimeout, log)

	binanceClient := dataflows.NewBinanceClient(cfg.BinanceAPIKey, cfg.BinanceSecret)
	coingecko := dataflows.NewCoinGeckoClient(cfg.CoinGeckoBaseURL)
	dexscreener := dataflows.NewDexScreenerClient(cfg.DexScreenerBaseURL)
	yahoo := dataflows.NewYahooClient()

	aggregator := dataflows.NewAggregator(log, coingecko, dexscreener, coingecko, binanceClient, yahoo, cfg.ReferenceSymbol)
	guard := oracle.NewGuard(log, binanceClient, coingecko, dexscreener)

	var st store.Store
	if cfg.PostgresDSN != "" {
		st, err = store.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn().Msg("no POSTGRES_DSN configured, run records stay in memory")
		st = store.NewMemoryStore()
	}

	var delivery publish.Delivery
	if cfg.TelegramToken != "" {
		delivery = publish.NewTelegramDelivery(cfg.TelegramToken, map[models.Tier]string{
			models.TierPremium:  cfg.TelegramPremiumChat,
			models.TierStandard: cfg.TelegramStandardChat,
			models.TierFree:     cfg.TelegramFreeChat,
		})
	} else {
		log.Warn().Msg("no TELEGRAM_BOT_TOKEN configured, deliveries are dry-run")
		delivery = publish.NewLogDelivery(log)
	}

	return pipeline.New(cfg, log, m, aggregator, binanceClient, guard, scanner, analyzer, generator, st, delivery), nil
}

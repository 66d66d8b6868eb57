// Folio — portfolio rebalancing and backtesting service.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/folioworks/folio/api"
	"github.com/folioworks/folio/internal/backtest"
	"github.com/folioworks/folio/internal/classify"
	"github.com/folioworks/folio/internal/config"
	"github.com/folioworks/folio/internal/history"
	"github.com/folioworks/folio/internal/importer"
	"github.com/folioworks/folio/internal/logging"
	"github.com/folioworks/folio/internal/news"
	"github.com/folioworks/folio/internal/portfolio"
	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/internal/providers"
	"github.com/folioworks/folio/internal/quotes"
	"github.com/folioworks/folio/internal/rebalance"
	"github.com/folioworks/folio/internal/scheduler"
	"github.com/folioworks/folio/internal/storage"
	"github.com/folioworks/folio/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio — portfolio rebalancing and backtesting",
	Long: `Folio imports brokerage positions, computes rebalance trades against
target allocation models, and backtests those models against blended
benchmarks over five years of daily history.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if override, _ := cmd.Flags().GetString("log-level"); override != "" {
			level = override
		}
		log = logging.Setup(level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebalanceCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(keysCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Folio %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Wiring helpers ---

// openStore picks the durable cache driver from config.
func openStore(ctx context.Context) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "redis":
		return storage.NewRedisStore(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	}
}

func buildRegistry() (*provider.Registry, error) {
	reg := provider.NewRegistry()
	if err := providers.RegisterAll(reg, cfg.Providers.FinnhubKeys, cfg.Providers.TiingoKeys, log); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildClassifier() *classify.Service {
	var gemini *classify.Gemini
	if cfg.Classify.GeminiKey != "" {
		g, err := classify.NewGemini(cfg.Classify.GeminiKey, classify.WithGeminiModel(cfg.Classify.Model))
		if err != nil {
			log.Warn().Err(err).Msg("gemini unavailable, classification falls back to heuristics")
		} else {
			gemini = g
		}
	}
	return classify.NewService(gemini, log)
}

// --- Serve Command (API server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		reg, err := buildRegistry()
		if err != nil {
			return err
		}

		quoteSvc := quotes.NewService(reg, log)
		histSvc := history.NewService(reg, store, log)
		portfolioSvc := portfolio.NewService(store, quoteSvc, buildClassifier(), log)

		srv := api.NewServer(api.Deps{
			Config:    cfg,
			Portfolio: portfolioSvc,
			Quotes:    quoteSvc,
			Models:    rebalance.NewModelStore(store),
			Simulator: backtest.NewSimulator(histSvc, log),
			News:      news.NewService(log),
			Logger:    log,
		})

		sched, err := scheduler.New(log)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		interval := time.Duration(cfg.Refresh.QuoteIntervalSec) * time.Second
		err = sched.NewIntervalJob("quote-refresh", func(ctx context.Context) error {
			positions, err := portfolioSvc.Refresh(ctx)
			if err != nil {
				return err
			}
			srv.PublishQuotes(positions)
			return nil
		}, interval, true)
		if err != nil {
			return fmt.Errorf("schedule quote refresh: %w", err)
		}
		sched.Start()
		defer sched.Stop()

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		return srv.ListenAndServe(addr)
	},
}

// --- Rebalance Command ---

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Compute rebalance trades from a positions CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, _ := cmd.Flags().GetString("csv")
		modelName, _ := cmd.Flags().GetString("model")
		rounding, _ := cmd.Flags().GetString("rounding")

		positions, err := loadPositionsCSV(csvPath)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if modelName != "" {
			store, err := openStore(ctx)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			m, err := rebalance.NewModelStore(store).Get(ctx, modelName)
			if err != nil {
				return err
			}

			reg, err := buildRegistry()
			if err != nil {
				return err
			}
			positions = rebalance.ApplyModel(ctx, positions, m, quotes.NewService(reg, log), log)
		}

		plan := rebalance.Recompute(positions, models.RoundingPolicy(rounding))
		plan.ModelName = modelName
		printPlan(plan)
		return nil
	},
}

func init() {
	rebalanceCmd.Flags().String("csv", "", "Fidelity positions CSV export (required)")
	rebalanceCmd.Flags().String("model", "", "apply a saved target model before computing")
	rebalanceCmd.Flags().String("rounding", "none", "trade share rounding: none, 0.5, or 1.0")
	_ = rebalanceCmd.MarkFlagRequired("csv")
}

func loadPositionsCSV(path string) ([]models.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	positions, err := importer.ParseFidelityCSV(f)
	if err != nil {
		return nil, err
	}
	if positions == nil {
		return nil, fmt.Errorf("no position header found in %s", path)
	}
	return positions, nil
}

func printPlan(plan *models.RebalancePlan) {
	fmt.Println("═══════════════════════════════════════════════════════════════════════")
	fmt.Printf("  Rebalance Preview")
	if plan.ModelName != "" {
		fmt.Printf(" — model %s", plan.ModelName)
	}
	fmt.Printf("  (total $%.2f, rounding %s)\n", plan.TotalValue, plan.Rounding)
	fmt.Println("═══════════════════════════════════════════════════════════════════════")
	fmt.Printf("  %-10s %10s %10s %8s %8s %12s %12s\n",
		"Symbol", "Value", "Target", "Now%", "Tgt%", "Trade$", "Shares")
	for _, row := range plan.Rows {
		fmt.Printf("  %-10s %10.2f %10.2f %7.1f%% %7.1f%% %+12.2f %+12.2f\n",
			row.Symbol, row.CurrentValue, row.TargetValue,
			row.PctOfTotal, row.TargetPct, row.TradeValue, row.TradeShares)
	}
	fmt.Println("═══════════════════════════════════════════════════════════════════════")
}

// --- Backtest Command ---

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a saved model against a benchmark",
	RunE: func(cmd *cobra.Command, args []string) error {
		modelName, _ := cmd.Flags().GetString("model")
		benchName, _ := cmd.Flags().GetString("benchmark")
		rangeName, _ := cmd.Flags().GetString("range")

		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		m, err := rebalance.NewModelStore(store).Get(ctx, modelName)
		if err != nil {
			return err
		}
		if benchName == "" {
			benchName = m.Benchmark
		}

		reg, err := buildRegistry()
		if err != nil {
			return err
		}
		sim := backtest.NewSimulator(history.NewService(reg, store, log), log)

		result, err := sim.Run(ctx, backtest.Request{
			Model:     *m,
			Benchmark: backtest.PresetByName(benchName),
			Range:     backtest.Range(strings.ToUpper(rangeName)),
		})
		if err != nil {
			return err
		}
		printBacktest(m.Name, result)
		return nil
	},
}

func init() {
	backtestCmd.Flags().String("model", "", "saved target model to simulate (required)")
	backtestCmd.Flags().String("benchmark", "", "benchmark preset name (default: model's benchmark)")
	backtestCmd.Flags().String("range", "5Y", "window: 1M, 3M, 6M, YTD, 1Y, 3Y, 5Y")
	_ = backtestCmd.MarkFlagRequired("model")
}

func printBacktest(modelName string, res *models.BacktestResult) {
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Backtest: %s vs %s\n", modelName, res.BenchmarkName)
	fmt.Printf("  %s — %s\n", res.From.Format("2006-01-02"), res.To.Format("2006-01-02"))
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  %-12s %12s %12s\n", "", "Portfolio", "Benchmark")
	fmt.Printf("  %-12s %11.2f%% %11.2f%%\n", "Return",
		res.PortfolioMetrics.TotalReturnPct, res.BenchmarkMetrics.TotalReturnPct)
	fmt.Printf("  %-12s %11.2f%% %11.2f%%\n", "Volatility",
		res.PortfolioMetrics.VolatilityPct, res.BenchmarkMetrics.VolatilityPct)
	fmt.Printf("  %-12s %12.2f %12.2f\n", "Sharpe",
		res.PortfolioMetrics.SharpeRatio, res.BenchmarkMetrics.SharpeRatio)
	if len(res.Failed) > 0 {
		fmt.Printf("  Skipped (no data): %s\n", strings.Join(res.Failed, ", "))
	}
	fmt.Println("═══════════════════════════════════════")
}

// --- Import Command ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a Fidelity positions CSV into the stored portfolio",
	RunE: func(cmd *cobra.Command, args []string) error {
		csvPath, _ := cmd.Flags().GetString("csv")

		positions, err := loadPositionsCSV(csvPath)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		svc := portfolio.NewService(store, nil, nil, log)
		if err := svc.Replace(ctx, positions); err != nil {
			return err
		}
		fmt.Printf("Imported %d positions from %s\n", len(positions), csvPath)
		return nil
	},
}

func init() {
	importCmd.Flags().String("csv", "", "Fidelity positions CSV export (required)")
	_ = importCmd.MarkFlagRequired("csv")
}

// --- Keys Command ---

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show API key configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Folio — API Keys")
		fmt.Println("═══════════════════════════════════════")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("  %-25s %s\n", k.Name+":", status)
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

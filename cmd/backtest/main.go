package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// runAction wires the DuckDB data source into the engine and runs every matched data file.
func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	backtester := engine_v1.NewBacktestEngineV1WithLogger(log)
	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if err := backtester.SetDataPath(cmd.String("data")); err != nil {
		return fmt.Errorf("failed to set data path: %w", err)
	}

	if alerts := cmd.String("alerts"); alerts != "" {
		if err := backtester.SetAlertsPath(alerts); err != nil {
			return fmt.Errorf("failed to set alerts path: %w", err)
		}
	}

	if err := backtester.SetResultsFolder(cmd.String("results")); err != nil {
		return fmt.Errorf("failed to set results folder: %w", err)
	}

	source, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	defer source.Close()

	if err := backtester.SetDataSource(source); err != nil {
		return fmt.Errorf("failed to set data source: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return backtester.Run(ctx, progressCallbacks(log, cmd.Bool("quiet")))
}

// progressCallbacks draws one progress bar per data file and prints its summary.
func progressCallbacks(log *logger.Logger, quiet bool) engine.LifecycleCallbacks {
	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(runID string, _ int, dataFilePath string, totalBars int) error {
		log.Info("Run started",
			zap.String("run_id", runID),
			zap.String("data", dataFilePath),
			zap.Int("bars", totalBars),
		)

		if !quiet {
			bar = progressbar.Default(int64(totalBars))
			bar.Describe(fmt.Sprintf("Processing %s", filepath.Base(dataFilePath)))
		}

		return nil
	})

	onProcessData := engine.OnProcessDataCallback(func(current int, _ int) error {
		if bar != nil {
			return bar.Set(current)
		}

		return nil
	})

	onRunEnd := engine.OnRunEndCallback(func(_ int, dataFilePath string, resultFolderPath string, stats types.TradeStats) {
		if bar != nil {
			_ = bar.Finish()
			bar = nil
		}

		fmt.Printf("\n%s -> %s\n", filepath.Base(dataFilePath), resultFolderPath)
		fmt.Printf("  trades: %d  win rate: %.2f%%  profit factor: %.2f\n",
			stats.TradeResult.NumberOfTrades, stats.TradeResult.WinRate*100, stats.TradeResult.ProfitFactor)
		fmt.Printf("  total pnl: %.2f  return: %.2f%%  max drawdown: %.2f%%  fees: %.2f\n",
			stats.TradePnl.TotalPnL, stats.TradePnl.TotalReturn*100, stats.TradeResult.MaxDrawdown*100, stats.TotalFees)
	})

	return engine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	}
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := engine_v1.NewBacktestEngineV1WithLogger(logger.NewNopLogger()).GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Replay bar files through the signal ladder and write trade statistics",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a backtest over one or more bar files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the backtest YAML configuration",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Bar file or glob (e.g. `data/*.parquet`)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "alerts",
						Aliases: []string{"a"},
						Usage:   "Optional alert file merged into every bar file by timestamp",
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Directory for trades, equity, daily summaries and stats",
						Value:   "results",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "warn",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Disable the progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the backtest configuration",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

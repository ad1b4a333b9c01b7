package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/metrics"
	"github.com/rxtech-lab/argo-ladder/internal/trading/engine"
	enginev1 "github.com/rxtech-lab/argo-ladder/internal/trading/engine/engine_v1"
	"github.com/rxtech-lab/argo-ladder/internal/trading/journal"
	tradingprovider "github.com/rxtech-lab/argo-ladder/internal/trading/provider"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// stepAction applies the newest closed bar once, or on every tick when --every is set.
func stepAction(ctx context.Context, cmd *cli.Command) error {
	if envFile := cmd.String("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	zapLog, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zapLog.Sync()

	configBytes, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	eng := enginev1.NewLiveEngineV1WithLogger(zapLog)
	if err := eng.Initialize(string(configBytes)); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	config := eng.Config()

	providerType := tradingprovider.ProviderType(cmd.String("provider"))

	providerJSON, err := providerConfigJSON(providerType, cmd.String("provider-config"), config.InitialCapital)
	if err != nil {
		return err
	}

	providerConfig, err := tradingprovider.ParseProviderConfig(string(providerType), providerJSON)
	if err != nil {
		return fmt.Errorf("failed to parse provider config: %w", err)
	}

	gateway, err := tradingprovider.NewGateway(providerType, providerConfig, zapLog)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	if err := eng.SetGateway(gateway); err != nil {
		return err
	}

	store, closeStore, err := snapshotStore(ctx, cmd.String("redis-addr"), int(cmd.Int("redis-db")), cmd.String("snapshot-dir"))
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer closeStore()

	if err := eng.SetSnapshotStore(store); err != nil {
		return err
	}

	if path := cmd.String("journal"); path != "" {
		j, err := journal.NewJournal(path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer j.Close()

		if err := eng.SetJournal(j); err != nil {
			return err
		}
	}

	if addr := cmd.String("metrics-addr"); addr != "" {
		m := metrics.NewMetrics()
		if err := eng.SetMetrics(m); err != nil {
			return err
		}

		server := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer server.Close()
	}

	feed := tradingprovider.NewBinanceBarFeed(barFeedConfig(providerType, providerConfig))
	callbacks := stepCallbacks()

	runStep := func(ctx context.Context) error {
		bars, err := feed.LatestBars(ctx, config.Symbol, config.Interval, config.HistoryBars)
		if err != nil {
			return fmt.Errorf("failed to fetch bars: %w", err)
		}

		_, err = eng.Step(ctx, bars, callbacks)

		if cash, fills, ok := paperState(gateway); ok {
			zapLog.Info("Paper balance", zap.Float64("cash", cash), zap.Int("fills", fills))
		}

		return err
	}

	every := cmd.Duration("every")
	if every <= 0 {
		return runStep(ctx)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if err := runStep(ctx); err != nil {
			zapLog.Error("Step failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func stepCallbacks() engine.LiveCallbacks {
	onStepEnd := engine.OnStepEndCallback(func(result engine.StepResult, err error) {
		if err != nil {
			fmt.Printf("Step %s failed: %v\n", result.Key, err)

			return
		}

		if result.Skipped {
			fmt.Printf("Step %s: bar %s already applied\n", result.Key, result.BarTime.Format(time.RFC3339))

			return
		}

		fmt.Printf("Step %s @ %s: orders=%d failed=%d trades=%d capital=%.2f equity=%.2f breaker=%v\n",
			result.Key, result.BarTime.Format(time.RFC3339), len(result.Orders), result.FailedOrders,
			len(result.Trades), result.Capital, result.Equity, result.BreakerActive)
	})

	onOrderFilled := engine.OnOrderFilledCallback(func(fill types.Fill) error {
		fmt.Printf("  %s %s %.8f @ %.8f fee=%.8f [%s]\n",
			fill.Side, fill.Symbol, fill.Quantity, fill.Price, fill.Fee, fill.Status)

		return nil
	})

	onError := engine.OnErrorCallback(func(err error) {
		fmt.Printf("  error: %v\n", err)
	})

	return engine.LiveCallbacks{
		OnStepEnd:     &onStepEnd,
		OnOrderFilled: &onOrderFilled,
		OnError:       &onError,
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		schema string
		err    error
	)

	if provider := cmd.String("provider"); provider != "" {
		schema, err = tradingprovider.GetProviderConfigSchema(provider)
	} else {
		schema, err = enginev1.NewLiveEngineV1WithLogger(nil).GetConfigSchema()
	}

	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func providersAction(_ context.Context, _ *cli.Command) error {
	providers := tradingprovider.GetSupportedProviders()
	sort.Strings(providers)

	for _, name := range providers {
		info, err := tradingprovider.GetProviderInfo(name)
		if err != nil {
			return err
		}

		fmt.Printf("%-14s %-16s paper=%-5v %s\n", info.Name, info.DisplayName, info.IsPaperTrading, info.Description)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "trading",
		Usage:   "Apply the signal ladder to live bars and route orders to a gateway",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:  "step",
				Usage: "Apply the newest closed bar to the persisted risk state",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the live engine YAML configuration",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "provider",
						Aliases: []string{"p"},
						Usage:   "Order gateway: paper, binance-paper, binance-live",
						Value:   string(tradingprovider.ProviderPaper),
					},
					&cli.StringFlag{
						Name:  "provider-config",
						Usage: "JSON provider configuration. Binance keys default to BINANCE_API_KEY and BINANCE_SECRET_KEY",
					},
					&cli.StringFlag{
						Name:  "snapshot-dir",
						Usage: "Directory for state snapshots when Redis is not used",
						Value: "state",
					},
					&cli.StringFlag{
						Name:  "redis-addr",
						Usage: "Redis address for state snapshots (password from REDIS_PASSWORD)",
					},
					&cli.IntFlag{
						Name:  "redis-db",
						Usage: "Redis database number",
					},
					&cli.StringFlag{
						Name:  "journal",
						Usage: "SQLite file recording every order and fill",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address (e.g. :9090)",
					},
					&cli.DurationFlag{
						Name:  "every",
						Usage: "Repeat the step on this interval until interrupted",
					},
					&cli.StringFlag{
						Name:  "env-file",
						Usage: "Dotenv file loaded before reading credentials",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "info",
					},
				},
				Action: stepAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the live configuration or of a provider configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Print this provider's configuration schema instead",
					},
				},
				Action: schemaAction,
			},
			{
				Name:   "providers",
				Usage:  "List the supported order gateways",
				Action: providersAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

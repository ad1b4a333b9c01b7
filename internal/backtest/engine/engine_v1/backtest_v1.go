package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-ladder/internal/indicator"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/signal"
	"github.com/rxtech-lab/argo-ladder/internal/strategy"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	dataPaths     []string
	alertsPath    optional.Option[string]
	resultsFolder string
	log           *logger.Logger
	datasource    datasource.DataSource
	store         *ResultStore
	initialized   bool
}

func NewBacktestEngineV1() engine.Engine {
	return NewBacktestEngineV1WithLogger(nil)
}

// NewBacktestEngineV1WithLogger uses log instead of creating a production logger.
func NewBacktestEngineV1WithLogger(log *logger.Logger) *BacktestEngineV1 {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		dataPaths:     nil,
		alertsPath:    optional.None[string](),
		resultsFolder: "",
		log:           log,
		datasource:    nil,
		store:         nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	b.config = EmptyConfig()

	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse backtest configuration", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	if b.log == nil {
		var err error

		b.log, err = logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}
	}

	store, err := NewResultStore(b.log)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create result store", err)
	}

	if b.store != nil {
		b.store.Close()
	}

	b.store = store
	b.initialized = true

	b.log.Debug("Backtest engine initialized",
		zap.String("mode", string(b.config.Mode)),
		zap.Float64("initial_capital", b.config.InitialCapital),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid data path %q", path)
	}

	if len(files) == 0 {
		return errors.Newf(errors.ErrCodeDataNotFound, "no data files match %q", path)
	}

	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "failed to resolve %q", file)
		}

		absolutePaths[i] = absPath
	}

	b.dataPaths = absolutePaths
	b.logger().Debug("Data paths set", zap.Strings("files", absolutePaths))

	return nil
}

// SetAlertsPath implements engine.Engine.
func (b *BacktestEngineV1) SetAlertsPath(path string) error {
	if path == "" {
		b.alertsPath = optional.None[string]()

		return nil
	}

	b.alertsPath = optional.Some(path)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.logger().Debug("Results folder set", zap.String("folder", folder))

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(dataSource datasource.DataSource) error {
	b.datasource = dataSource

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (runErr error) {
	defer func() {
		if callbacks.OnBacktestEnd != nil {
			(*callbacks.OnBacktestEnd)(runErr)
		}
	}()

	if err := b.preRunCheck(); err != nil {
		return err
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(b.dataPaths)); err != nil {
			return err
		}
	}

	if _, err := os.Stat(b.resultsFolder); err == nil {
		os.RemoveAll(b.resultsFolder)
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create results folder", err)
	}

	source, err := signal.NewSource(b.config.Signal, b.log.Named("signal"))
	if err != nil {
		return err
	}

	simulator, err := b.newSimulator()
	if err != nil {
		return err
	}

	for index, dataPath := range b.dataPaths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("backtest cancelled: %w", err)
		}

		if err := b.runDataFile(ctx, callbacks, source, simulator, index, dataPath); err != nil {
			return err
		}
	}

	return nil
}

func (b *BacktestEngineV1) runDataFile(
	ctx context.Context,
	callbacks engine.LifecycleCallbacks,
	source signal.Source,
	simulator Simulator,
	index int,
	dataPath string,
) error {
	runID := uuid.New().String()

	if err := b.datasource.Initialize(dataPath); err != nil {
		return fmt.Errorf("failed to initialize data source: %w", err)
	}

	count, err := b.datasource.Count(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return fmt.Errorf("failed to get data count: %w", err)
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, index, dataPath, count); err != nil {
			return err
		}
	}

	bars, err := b.loadBars()
	if err != nil {
		return err
	}

	series, err := source.Generate(bars)
	if err != nil {
		return fmt.Errorf("failed to generate signals: %w", err)
	}

	b.log.Info("Running backtest",
		zap.String("run_id", runID),
		zap.String("data", dataPath),
		zap.String("mode", string(b.config.Mode)),
		zap.String("signal_source", source.Name()),
		zap.Int("bars", len(bars)),
	)

	progress := func(current int) error {
		if callbacks.OnProcessData != nil {
			return (*callbacks.OnProcessData)(current, len(bars))
		}

		return nil
	}

	result, err := simulator.Run(ctx, bars, series, b.config.InitialCapital, progress)
	if err != nil {
		return err
	}

	if result.Symbol == "" {
		result.Symbol = b.config.Symbol
	}

	resultFolderPath := b.resultFolder(dataPath)

	stats, err := b.writeResults(ctx, runID, dataPath, resultFolderPath, bars, series, result)
	if err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(index, dataPath, resultFolderPath, stats)
	}

	return nil
}

// loadBars reads the configured range, fills missing symbols, merges alerts
// and computes indicators.
func (b *BacktestEngineV1) loadBars() ([]types.Bar, error) {
	bars, err := datasource.Collect(b.datasource, b.config.StartTime, b.config.EndTime)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	for i := range bars {
		if bars[i].Symbol == "" {
			bars[i].Symbol = b.config.Symbol
		}
	}

	if b.alertsPath.IsSome() {
		alerts, err := b.datasource.ReadAlerts(b.alertsPath.Unwrap())
		if err != nil {
			return nil, err
		}

		var matched int

		bars, matched = datasource.MergeAlerts(bars, alerts)
		b.log.Debug("Alerts merged",
			zap.Int("alerts", len(alerts)),
			zap.Int("matched_bars", matched),
		)
	}

	if b.config.Indicators.Compute {
		bars = indicator.Enrich(bars, b.config.Indicators.Config)
	}

	return bars, nil
}

func (b *BacktestEngineV1) newSimulator() (Simulator, error) {
	switch b.config.Mode {
	case ModeFast:
		return NewFastBacktest(b.config.Fast, b.log.Named("fast"))
	default:
		fees := commission_fee.GetCommissionFeeHandler(b.config.Broker, b.config.FeeRate)

		manager, err := risk.NewManager(b.config.Risk,
			risk.WithFeeModel(fees),
			risk.WithLogger(b.log.Named("risk")),
		)
		if err != nil {
			return nil, err
		}

		ladder, err := strategy.NewLadder(b.config.Strategy, manager, b.log.Named("strategy"))
		if err != nil {
			return nil, err
		}

		return NewLadderBacktest(ladder, b.log.Named("ladder")), nil
	}
}

func (b *BacktestEngineV1) writeResults(
	ctx context.Context,
	runID string,
	dataPath string,
	resultFolderPath string,
	bars []types.Bar,
	series types.SignalSeries,
	result RunResult,
) (types.TradeStats, error) {
	defer b.store.Cleanup()

	if err := b.store.Record(result); err != nil {
		return types.TradeStats{}, err
	}

	if err := b.store.RecordSignals(bars, series); err != nil {
		return types.TradeStats{}, err
	}

	files, err := b.store.Write(resultFolderPath)
	if err != nil {
		return types.TradeStats{}, err
	}

	stats := ComputeStatistics(result)
	stats.ID = runID
	stats.Timestamp = time.Now()
	stats.DataPath = dataPath
	stats.TradesFilePath = files.Trades
	stats.EquityFilePath = files.Equity
	stats.DailyFilePath = files.Daily

	if stats.ExitReasons, err = b.store.ExitReasonCounts(); err != nil {
		return types.TradeStats{}, err
	}

	if stats.TotalFees, err = b.store.TotalFees(); err != nil {
		return types.TradeStats{}, err
	}

	if err := types.WriteTradeStats(filepath.Join(resultFolderPath, "stats.yaml"), []types.TradeStats{stats}); err != nil {
		return types.TradeStats{}, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write stats", err)
	}

	if result.State != nil {
		if err := risk.NewFileSnapshotStore(resultFolderPath).Save(ctx, "state", result.State); err != nil {
			return types.TradeStats{}, err
		}
	}

	b.log.Info("Backtest run finished",
		zap.String("run_id", runID),
		zap.String("result", resultFolderPath),
		zap.Int("trades", stats.TradeResult.NumberOfTrades),
		zap.Float64("total_return", stats.TradePnl.TotalReturn),
		zap.Float64("max_drawdown", stats.TradeResult.MaxDrawdown),
	)

	return stats, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	if len(b.dataPaths) == 0 {
		b.log.Error("No data paths loaded")

		return errors.New(errors.ErrCodeDataNotFound, "no data paths loaded")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}

func (b *BacktestEngineV1) logger() *logger.Logger {
	if b.log == nil {
		return logger.NewNopLogger()
	}

	return b.log
}

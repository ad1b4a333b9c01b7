package backtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ladder/e2e/testhelper"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/stretchr/testify/suite"
)

// BacktestE2ETestSuite runs the whole backtest pipeline over generated bar files.
type BacktestE2ETestSuite struct {
	suite.Suite
	dataDir    string
	resultsDir string
}

func TestBacktestE2ESuite(t *testing.T) {
	suite.Run(t, new(BacktestE2ETestSuite))
}

func (suite *BacktestE2ETestSuite) SetupTest() {
	root := suite.T().TempDir()
	suite.dataDir = filepath.Join(root, "data")
	suite.resultsDir = filepath.Join(root, "results")
}

func (suite *BacktestE2ETestSuite) generate(name string, pattern testhelper.SimulationPattern, alertEvery int) []types.Bar {
	bars, err := testhelper.GenerateAndWrite(testhelper.MockDataConfig{
		Symbol:        "BTCUSDT",
		StartTime:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:      time.Hour,
		NumDataPoints: 500,
		Pattern:       pattern,
		InitialPrice:  100,
		TrendStrength: 0.002,
		AlertEvery:    alertEvery,
		Seed:          42,
	}, filepath.Join(suite.dataDir, name))
	suite.Require().NoError(err)

	return bars
}

// run executes the engine over every parquet file in dataDir and collects per-file stats.
func (suite *BacktestE2ETestSuite) run(config string) []types.TradeStats {
	backtester := engine_v1.NewBacktestEngineV1WithLogger(logger.NewNopLogger())
	suite.Require().NoError(backtester.Initialize(config))
	suite.Require().NoError(backtester.SetDataPath(filepath.Join(suite.dataDir, "*.parquet")))
	suite.Require().NoError(backtester.SetResultsFolder(suite.resultsDir))

	source, err := datasource.NewDataSource(":memory:", nil)
	suite.Require().NoError(err)
	defer source.Close()

	suite.Require().NoError(backtester.SetDataSource(source))

	var (
		stats     []types.TradeStats
		processed int
	)

	onProcessData := engine.OnProcessDataCallback(func(current int, total int) error {
		suite.LessOrEqual(current, total)
		processed++

		return nil
	})
	onRunEnd := engine.OnRunEndCallback(func(_ int, _ string, _ string, s types.TradeStats) {
		stats = append(stats, s)
	})

	err = backtester.Run(context.Background(), engine.LifecycleCallbacks{
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	})
	suite.Require().NoError(err)
	suite.Positive(processed)

	return stats
}

func (suite *BacktestE2ETestSuite) assertCommon(stats types.TradeStats) {
	suite.GreaterOrEqual(stats.TradeResult.MaxDrawdown, 0.0)
	suite.LessOrEqual(stats.TradeResult.MaxDrawdown, 1.0)
	suite.LessOrEqual(stats.TradeResult.NumberOfWinningTrades+stats.TradeResult.NumberOfLosingTrades, stats.TradeResult.NumberOfTrades)

	reasons := 0
	for _, n := range stats.ExitReasons {
		reasons += n
	}

	suite.Equal(stats.TradeResult.NumberOfTrades, reasons)
	suite.InDelta(stats.TradePnl.RealizedPnL+stats.TradePnl.UnrealizedPnL, stats.TradePnl.TotalPnL, 1e-6)

	for _, path := range []string{stats.TradesFilePath, stats.EquityFilePath} {
		info, err := os.Stat(path)
		suite.Require().NoError(err)
		suite.Positive(info.Size())
	}
}

func (suite *BacktestE2ETestSuite) TestLadderAcrossPatterns() {
	suite.generate("increasing.parquet", testhelper.PatternIncreasing, 25)
	suite.generate("decreasing.parquet", testhelper.PatternDecreasing, 25)
	suite.generate("volatile.parquet", testhelper.PatternVolatile, 25)

	stats := suite.run("initial_capital: 10000\nmode: ladder\n")
	suite.Require().Len(stats, 3)

	for _, s := range stats {
		suite.Equal("ladder", s.Mode)
		suite.assertCommon(s)

		// ladder capital only moves by realized pnl, fees included
		suite.InDelta(s.InitialCapital+s.TradePnl.RealizedPnL, s.FinalCapital, 1e-6)
		suite.InDelta(s.FinalCapital+s.TradePnl.UnrealizedPnL, s.FinalEquity, 1e-6)
		suite.Positive(s.Signals.Buy)
		suite.Positive(s.TradeResult.NumberOfTrades, s.DataPath)

		state, err := risk.NewFileSnapshotStore(filepath.Dir(s.TradesFilePath)).Load(context.Background(), "state")
		suite.Require().NoError(err)
		suite.InDelta(s.FinalCapital, state.Capital, 1e-9)
		suite.LessOrEqual(len(state.Positions), risk.DefaultConfig().MaxConcurrentPositions)
	}
}

func (suite *BacktestE2ETestSuite) TestFastMode() {
	suite.generate("volatile.parquet", testhelper.PatternVolatile, 10)

	stats := suite.run("initial_capital: 10000\nmode: fast\n")
	suite.Require().Len(stats, 1)

	s := stats[0]
	suite.Equal("fast", s.Mode)
	suite.assertCommon(s)

	for reason := range s.ExitReasons {
		suite.Contains([]types.ExitReason{
			types.ExitReasonStopLoss,
			types.ExitReasonTakeProfit,
			types.ExitReasonTrendExit,
			types.ExitReasonMaxDuration,
		}, reason)
	}
}

func (suite *BacktestE2ETestSuite) TestGeneratorIsDeterministic() {
	first := suite.generate("a.parquet", testhelper.PatternVolatile, 0)
	second := suite.generate("b.parquet", testhelper.PatternVolatile, 0)

	suite.Require().Len(second, len(first))

	for i, bar := range first {
		suite.Equal(bar.Time, second[i].Time)
		suite.Equal(bar.Close, second[i].Close)
		suite.NoError(bar.Validate())
		suite.LessOrEqual(bar.Low, bar.Open)
		suite.GreaterOrEqual(bar.High, bar.Close)
	}
}

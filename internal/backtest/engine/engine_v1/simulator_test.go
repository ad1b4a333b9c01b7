package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/strategy"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LadderBacktestTestSuite struct {
	suite.Suite
	backtest *LadderBacktest
}

func TestLadderBacktestSuite(t *testing.T) {
	suite.Run(t, new(LadderBacktestTestSuite))
}

func (suite *LadderBacktestTestSuite) SetupTest() {
	riskConfig := risk.DefaultConfig()
	riskConfig.StopLoss = risk.StopLossConfig{Type: risk.StopLossTypePercentage, Value: 0.05}

	manager, err := risk.NewManager(riskConfig)
	suite.Require().NoError(err)

	ladder, err := strategy.NewLadder(strategy.DefaultConfig(), manager, nil)
	suite.Require().NoError(err)

	suite.backtest = NewLadderBacktest(ladder, nil)
}

func (suite *LadderBacktestTestSuite) TestRunAcrossDays() {
	bars := []types.Bar{
		types.NewBar(testStart, "BTCUSDT", 100, 100, 100, 100, 1),
		types.NewBar(testStart.Add(1*time.Hour), "BTCUSDT", 108, 108, 108, 108, 1),
		types.NewBar(testStart.Add(2*time.Hour), "BTCUSDT", 104, 104, 104, 104, 1),
		types.NewBar(testStart.Add(24*time.Hour), "BTCUSDT", 104, 104, 104, 104, 1),
		types.NewBar(testStart.Add(25*time.Hour), "BTCUSDT", 94, 94, 94, 94, 1),
	}

	var progress []int

	result, err := suite.backtest.Run(context.Background(), bars, buysAt(len(bars), 0), 10000, func(current int) error {
		progress = append(progress, current)

		return nil
	})
	suite.Require().NoError(err)

	suite.Equal([]int{1, 2, 3, 4, 5}, progress)
	suite.Equal(ModeLadder, result.Mode)
	suite.Equal("BTCUSDT", result.Symbol)
	suite.Require().Len(result.Trades, 2)
	suite.Equal(types.ExitReasonTP1, result.Trades[0].Reason)
	suite.Equal(types.ExitReasonStopLoss, result.Trades[1].Reason)
	suite.Len(result.Equity, 5)
	suite.InDelta(10240, result.Equity[2].Equity, 1e-9)

	suite.Require().Len(result.Daily, 2)
	suite.Equal("2024-05-01", result.Daily[0].Date)
	suite.Equal("2024-05-02", result.Daily[1].Date)
	suite.InDelta(result.FinalCapital-result.InitialCapital, result.Daily[0].DailyPnL+result.Daily[1].DailyPnL, 1e-9)

	suite.InDelta(10040, result.FinalCapital, 1e-9)
	suite.InDelta(10040, result.FinalEquity, 1e-9)
	suite.Equal(0.0, result.UnrealizedPnL)
	suite.Require().NotNil(result.State)
	suite.Empty(result.State.Positions)
	suite.Equal(1, result.Signals.Buy)
}

func (suite *LadderBacktestTestSuite) TestOpenPositionIsUnrealized() {
	bars := barsFromCloses(100, 102)
	result, err := suite.backtest.Run(context.Background(), bars, buysAt(2, 0), 10000, nil)
	suite.Require().NoError(err)

	suite.Empty(result.Trades)
	suite.Equal(10000.0, result.FinalCapital)
	// 40 units marked at 102
	suite.InDelta(80, result.UnrealizedPnL, 1e-9)
	suite.InDelta(10080, result.FinalEquity, 1e-9)
	suite.Len(result.State.Positions, 1)
}

func (suite *LadderBacktestTestSuite) TestRejectionsAreCollected() {
	bars := barsFromCloses(100, 100, 100, 100, 100)
	result, err := suite.backtest.Run(context.Background(), bars, buysAt(5, 0, 1, 2, 3), 10000, nil)
	suite.Require().NoError(err)

	suite.Len(result.State.Positions, 3)
	suite.Require().Len(result.Rejections, 1)
	suite.Equal(risk.RejectionMaxPositions, result.Rejections[0].Reason)
	suite.Equal(3, result.Rejections[0].Index)
}

func (suite *LadderBacktestTestSuite) TestEmptyBars() {
	result, err := suite.backtest.Run(context.Background(), nil, types.NewSignalSeries(0), 10000, nil)
	suite.Require().NoError(err)

	suite.Empty(result.Trades)
	suite.Empty(result.Daily)
	suite.Equal(10000.0, result.FinalEquity)
	suite.Equal(10000.0, result.FinalCapital)
}

func (suite *LadderBacktestTestSuite) TestErrors() {
	suite.Run("length mismatch", func() {
		_, err := suite.backtest.Run(context.Background(), barsFromCloses(100), types.NewSignalSeries(2), 10000, nil)
		suite.Equal(errors.ErrCodeSignalLengthMismatch, errors.GetCode(err))
	})

	suite.Run("cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := suite.backtest.Run(ctx, barsFromCloses(100), types.NewSignalSeries(1), 10000, nil)
		suite.ErrorIs(err, context.Canceled)
	})
}

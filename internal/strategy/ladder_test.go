package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LadderTestSuite struct {
	suite.Suite
	start time.Time
}

func TestLadderSuite(t *testing.T) {
	suite.Run(t, new(LadderTestSuite))
}

func (suite *LadderTestSuite) SetupTest() {
	suite.start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *LadderTestSuite) newLadder(cfg Config, mutate func(*risk.Config)) *Ladder {
	riskCfg := risk.DefaultConfig()
	riskCfg.StopLoss = risk.StopLossConfig{Type: risk.StopLossTypePercentage, Value: 0.05}

	if mutate != nil {
		mutate(&riskCfg)
	}

	manager, err := risk.NewManager(riskCfg)
	suite.Require().NoError(err)

	ladder, err := NewLadder(cfg, manager, nil)
	suite.Require().NoError(err)

	return ladder
}

func (suite *LadderTestSuite) bar(offset time.Duration, close float64) types.Bar {
	return types.NewBar(suite.start.Add(offset), "BTCUSDT", close, close, close, close, 1)
}

func (suite *LadderTestSuite) run(ladder *Ladder, state *risk.State, bars []types.Bar, decisions []types.SignalDecision) []BarOutcome {
	outcomes := make([]BarOutcome, len(bars))
	for i := range bars {
		var decision types.SignalDecision
		if i < len(decisions) {
			decision = decisions[i]
		}

		outcomes[i] = ladder.ProcessBar(state, bars, i, decision)
	}

	return outcomes
}

func (suite *LadderTestSuite) TestLadderAcrossDays() {
	ladder := suite.newLadder(DefaultConfig(), nil)
	state := risk.NewState(10000)

	bars := []types.Bar{
		suite.bar(0, 100),
		suite.bar(1*time.Hour, 108),
		suite.bar(2*time.Hour, 104),
		suite.bar(24*time.Hour, 104),
		suite.bar(25*time.Hour, 94),
	}
	outcomes := suite.run(ladder, state, bars, []types.SignalDecision{{FinalBuy: true}})

	suite.Require().Len(outcomes[0].Opened, 1)
	opened := outcomes[0].Opened[0]
	suite.InDelta(95, opened.StopLossPrice, 1e-9)
	suite.InDelta(40, opened.Quantity, 1e-9)
	suite.Equal("2024-05-01", state.ClosedTrades[0].EntryTime.Format(dayLayout))
	suite.True(outcomes[0].ClosedDay.IsNone())

	// TP1 at 107.5 is crossed by the 108 close
	suite.Require().Len(outcomes[1].Trades, 1)
	suite.Equal(types.ExitReasonTP1, outcomes[1].Trades[0].Reason)
	suite.InDelta(160, outcomes[1].Trades[0].PnL, 1e-9)

	suite.InDelta(10240, outcomes[2].Equity.Equity, 1e-9)
	suite.Empty(outcomes[2].Trades)

	suite.Require().True(outcomes[3].ClosedDay.IsSome())
	closed := outcomes[3].ClosedDay.Unwrap()
	suite.Equal("2024-05-01", closed.Date)
	suite.InDelta(160, closed.DailyPnL, 1e-9)
	suite.Equal(1, closed.ActivePositions)

	suite.Require().Len(outcomes[4].Trades, 1)
	suite.Equal(types.ExitReasonStopLoss, outcomes[4].Trades[0].Reason)
	suite.InDelta(-120, outcomes[4].Trades[0].PnL, 1e-9)

	final := ladder.Finish(state)
	suite.Equal("2024-05-02", final.Date)
	suite.InDelta(state.Capital-state.InitialCapital, closed.DailyPnL+final.DailyPnL, 1e-9)
	suite.InDelta(10040, state.Capital, 1e-9)
	suite.Empty(state.Positions)
}

func (suite *LadderTestSuite) TestBreakerBlocksEntries() {
	ladder := suite.newLadder(DefaultConfig(), nil)
	state := risk.NewState(10000)
	state.CurrentDay = "2024-05-01"
	state.DailyPnL = -600

	bars := []types.Bar{suite.bar(0, 100)}
	outcome := ladder.ProcessBar(state, bars, 0, types.SignalDecision{FinalBuy: true})

	suite.True(outcome.BreakerActive)
	suite.Empty(outcome.Opened)
	suite.Equal([]risk.Rejection{risk.RejectionDailyBreaker}, outcome.Rejections)
	suite.Empty(state.Positions)
}

func (suite *LadderTestSuite) TestBreakerClearsOnNewDay() {
	ladder := suite.newLadder(DefaultConfig(), nil)
	state := risk.NewState(10000)
	state.CurrentDay = "2024-04-30"
	state.DailyPnL = -600

	bars := []types.Bar{suite.bar(0, 100)}
	outcome := ladder.ProcessBar(state, bars, 0, types.SignalDecision{FinalBuy: true})

	suite.True(outcome.ClosedDay.IsSome())
	suite.True(outcome.ClosedDay.Unwrap().BreakerTriggered)
	suite.False(outcome.BreakerActive)
	suite.Len(outcome.Opened, 1)
}

func (suite *LadderTestSuite) TestSignalHandling() {
	tests := []struct {
		name        string
		enableShort bool
		decision    types.SignalDecision
		sides       []types.Side
		conflict    bool
	}{
		{
			name:        "buy opens long",
			enableShort: true,
			decision:    types.SignalDecision{FinalBuy: true},
			sides:       []types.Side{types.SideLong},
		},
		{
			name:        "sell opens short",
			enableShort: true,
			decision:    types.SignalDecision{FinalSell: true},
			sides:       []types.Side{types.SideShort},
		},
		{
			name:        "sell ignored when shorts disabled",
			enableShort: false,
			decision:    types.SignalDecision{FinalSell: true},
			sides:       nil,
		},
		{
			name:        "conflicting signals open both sides",
			enableShort: true,
			decision:    types.SignalDecision{FinalBuy: true, FinalSell: true},
			sides:       []types.Side{types.SideLong, types.SideShort},
			conflict:    true,
		},
		{
			name:        "no signal",
			enableShort: true,
			sides:       nil,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			cfg := DefaultConfig()
			cfg.EnableShort = tc.enableShort
			ladder := suite.newLadder(cfg, nil)
			state := risk.NewState(10000)

			outcome := ladder.ProcessBar(state, []types.Bar{suite.bar(0, 100)}, 0, tc.decision)

			var sides []types.Side
			for _, position := range outcome.Opened {
				sides = append(sides, position.Side)
			}

			suite.Equal(tc.sides, sides)
			suite.Equal(tc.conflict, outcome.Conflict)
			suite.Len(state.Positions, len(tc.sides))
		})
	}
}

func (suite *LadderTestSuite) TestMaxConcurrentPositions() {
	ladder := suite.newLadder(DefaultConfig(), func(cfg *risk.Config) {
		cfg.MaxConcurrentPositions = 1
	})
	state := risk.NewState(10000)

	bars := []types.Bar{suite.bar(0, 100), suite.bar(time.Hour, 100)}
	outcomes := suite.run(ladder, state, bars, []types.SignalDecision{{FinalBuy: true}, {FinalBuy: true}})

	suite.Len(outcomes[0].Opened, 1)
	suite.Empty(outcomes[1].Opened)
	suite.Equal([]risk.Rejection{risk.RejectionMaxPositions}, outcomes[1].Rejections)
}

func (suite *LadderTestSuite) TestMaxBarsInTrade() {
	cfg := DefaultConfig()
	cfg.MaxBarsInTrade = 2
	ladder := suite.newLadder(cfg, nil)
	state := risk.NewState(10000)

	bars := []types.Bar{suite.bar(0, 100), suite.bar(time.Hour, 101), suite.bar(2*time.Hour, 101)}
	outcomes := suite.run(ladder, state, bars, []types.SignalDecision{{FinalBuy: true}})

	suite.Empty(outcomes[1].Trades)
	suite.Require().Len(outcomes[2].Trades, 1)
	suite.Equal(types.ExitReasonMaxDuration, outcomes[2].Trades[0].Reason)
	suite.Equal(2, outcomes[2].Trades[0].BarsHeld())
	suite.Empty(state.Positions)
}

func (suite *LadderTestSuite) TestProcessBarAtMovingWindow() {
	cfg := DefaultConfig()
	cfg.MaxBarsInTrade = 2
	ladder := suite.newLadder(cfg, nil)
	state := risk.NewState(10000)

	// each call sees a two-bar window ending at the bar being applied
	first := ladder.ProcessBarAt(state, []types.Bar{suite.bar(0, 100), suite.bar(time.Hour, 100)}, 1, 10, types.SignalDecision{FinalBuy: true})
	suite.Require().Len(first.Opened, 1)
	suite.Equal(10, first.Opened[0].EntryIndex)
	suite.Equal(10, first.Equity.Index)

	second := ladder.ProcessBarAt(state, []types.Bar{suite.bar(time.Hour, 100), suite.bar(2*time.Hour, 101)}, 1, 11, types.SignalDecision{})
	suite.Empty(second.Trades)

	third := ladder.ProcessBarAt(state, []types.Bar{suite.bar(2*time.Hour, 101), suite.bar(3*time.Hour, 101)}, 1, 12, types.SignalDecision{})
	suite.Require().Len(third.Trades, 1)
	suite.Equal(types.ExitReasonMaxDuration, third.Trades[0].Reason)
	suite.Equal(12, third.Trades[0].ExitIndex)
}

func (suite *LadderTestSuite) TestExitOnTrendReversal() {
	cfg := DefaultConfig()
	cfg.ExitOnTrendReversal = true
	ladder := suite.newLadder(cfg, nil)
	state := risk.NewState(10000)

	bars := []types.Bar{suite.bar(0, 100), suite.bar(time.Hour, 101), suite.bar(2*time.Hour, 101)}
	bars[0].WT1, bars[0].WT2 = 10, 5
	bars[1].WT1, bars[1].WT2 = 12, 8
	bars[2].WT1, bars[2].WT2 = 6, 9

	outcomes := suite.run(ladder, state, bars, []types.SignalDecision{{FinalBuy: true, FinalSell: true}})

	suite.Require().Len(outcomes[0].Opened, 2)
	suite.Empty(outcomes[1].Trades)

	// the cross down closes the long and leaves the short open
	suite.Require().Len(outcomes[2].Trades, 1)
	suite.Equal(types.ExitReasonTrendExit, outcomes[2].Trades[0].Reason)
	suite.Equal(types.SideLong, outcomes[2].Trades[0].Side)
	suite.Len(state.Positions, 1)
}

func (suite *LadderTestSuite) TestDayKeyTimezone() {
	late := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	early := time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC)

	utc := suite.newLadder(DefaultConfig(), nil)
	suite.NotEqual(utc.DayKey(late), utc.DayKey(early))

	cfg := DefaultConfig()
	cfg.Timezone = "Asia/Tokyo"
	tokyo := suite.newLadder(cfg, nil)
	suite.Equal("2024-05-02", tokyo.DayKey(late))
	suite.Equal(tokyo.DayKey(late), tokyo.DayKey(early))
}

func (suite *LadderTestSuite) TestNewLadderErrors() {
	manager, err := risk.NewManager(risk.DefaultConfig())
	suite.Require().NoError(err)

	cfg := DefaultConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err = NewLadder(cfg, manager, nil)
	suite.Equal(errors.ErrCodeInvalidTimezone, errors.GetCode(err))

	_, err = NewLadder(DefaultConfig(), nil, nil)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))

	cfg = DefaultConfig()
	cfg.MaxBarsInTrade = -1
	_, err = NewLadder(cfg, manager, nil)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

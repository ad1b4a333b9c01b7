package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/strategy"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"go.uber.org/zap"
)

// ProgressFunc is called after every processed bar with the 1-based count.
// A non-nil error stops the run.
type ProgressFunc func(current int) error

// RejectionEvent records an entry the risk manager declined.
type RejectionEvent struct {
	Time   time.Time
	Index  int
	Reason risk.Rejection
}

// RunResult is everything a simulator produced for one bar series.
type RunResult struct {
	Mode           Mode
	Symbol         string
	InitialCapital float64
	FinalCapital   float64
	FinalEquity    float64
	UnrealizedPnL  float64
	Trades         []types.Trade
	Equity         []types.EquityPoint
	Daily          []types.DailySummary
	Rejections     []RejectionEvent
	Signals        types.SignalCounts
	// State is the final risk state. It is nil in fast mode.
	State *risk.State
}

// Simulator folds a signal series over bars.
type Simulator interface {
	Run(ctx context.Context, bars []types.Bar, signals types.SignalSeries, initialCapital float64, progress ProgressFunc) (RunResult, error)
}

// LadderBacktest drives strategy.Ladder over a bar series.
type LadderBacktest struct {
	ladder *strategy.Ladder
	log    *logger.Logger
}

func NewLadderBacktest(ladder *strategy.Ladder, log *logger.Logger) *LadderBacktest {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &LadderBacktest{ladder: ladder, log: log}
}

// Run implements Simulator.
func (l *LadderBacktest) Run(ctx context.Context, bars []types.Bar, signals types.SignalSeries, initialCapital float64, progress ProgressFunc) (RunResult, error) {
	if signals.Len() != len(bars) {
		return RunResult{}, errors.Newf(errors.ErrCodeSignalLengthMismatch,
			"signal series has %d entries for %d bars", signals.Len(), len(bars))
	}

	state := risk.NewState(initialCapital)
	result := RunResult{
		Mode:           ModeLadder,
		InitialCapital: initialCapital,
		Equity:         make([]types.EquityPoint, 0, len(bars)),
		State:          state,
	}
	result.Signals.Buy, result.Signals.Sell, result.Signals.Conflicts = signals.Counts()

	for i := range bars {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("backtest cancelled at bar %d: %w", i, err)
		}

		outcome := l.ladder.ProcessBar(state, bars, i, signals.At(i))

		if outcome.ClosedDay.IsSome() {
			result.Daily = append(result.Daily, outcome.ClosedDay.Unwrap())
		}

		for _, rejection := range outcome.Rejections {
			result.Rejections = append(result.Rejections, RejectionEvent{Time: bars[i].Time, Index: i, Reason: rejection})
		}

		result.Trades = append(result.Trades, outcome.Trades...)
		result.Equity = append(result.Equity, outcome.Equity)

		if progress != nil {
			if err := progress(i + 1); err != nil {
				return result, err
			}
		}
	}

	if len(bars) > 0 {
		last := bars[len(bars)-1]
		result.Symbol = last.Symbol
		result.Daily = append(result.Daily, l.ladder.Finish(state))
		result.UnrealizedPnL = state.UnrealizedPnL(last.Close)
		result.FinalEquity = state.Equity(last.Close)
	} else {
		result.FinalEquity = state.Capital
	}

	result.FinalCapital = state.Capital

	l.log.Info("Ladder backtest finished",
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(result.Trades)),
		zap.Int("open_positions", len(state.Positions)),
		zap.Float64("final_capital", result.FinalCapital),
		zap.Float64("final_equity", result.FinalEquity),
	)

	return result, nil
}

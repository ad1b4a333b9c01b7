package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FastBacktest holds at most one long position. It enters on a buy signal
// and exits on the first of stop, target, oscillator cross down or bar limit.
// The fee is charged on the exit fill only.
type FastBacktest struct {
	config FastConfig
	fees   commission_fee.CommissionFee
	log    *logger.Logger
}

type fastPosition struct {
	id         int
	symbol     string
	entryPrice float64
	quantity   float64
	entryTime  time.Time
	entryIndex int
}

func NewFastBacktest(cfg FastConfig, log *logger.Logger) (*FastBacktest, error) {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid fast backtest configuration", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &FastBacktest{
		config: cfg,
		fees:   commission_fee.GetCommissionFeeHandler(cfg.Broker, cfg.FeeRate),
		log:    log,
	}, nil
}

// Run implements Simulator.
func (f *FastBacktest) Run(ctx context.Context, bars []types.Bar, signals types.SignalSeries, initialCapital float64, progress ProgressFunc) (RunResult, error) {
	if signals.Len() != len(bars) {
		return RunResult{}, errors.Newf(errors.ErrCodeSignalLengthMismatch,
			"signal series has %d entries for %d bars", signals.Len(), len(bars))
	}

	cash := initialCapital
	result := RunResult{
		Mode:           ModeFast,
		InitialCapital: initialCapital,
		Equity:         make([]types.EquityPoint, 0, len(bars)),
	}
	result.Signals.Buy, result.Signals.Sell, result.Signals.Conflicts = signals.Counts()

	var (
		position *fastPosition
		nextID   = 1
	)

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("backtest cancelled at bar %d: %w", i, err)
		}

		price := bar.Close

		if position == nil && signals.At(i).FinalBuy && price > 0 {
			position = &fastPosition{
				id:         nextID,
				symbol:     bar.Symbol,
				entryPrice: price,
				quantity:   cash * f.config.PositionFraction / price,
				entryTime:  bar.Time,
				entryIndex: i,
			}
			nextID++

			f.log.Debug("Fast position opened",
				zap.Int("index", i),
				zap.Float64("price", price),
				zap.Float64("quantity", position.quantity),
			)
		}

		if position != nil {
			if reason, exit := f.exitReason(position, bars, i); exit {
				trade := f.close(position, bar, i, reason)
				cash = decimal.NewFromFloat(cash).Add(decimal.NewFromFloat(trade.PnL)).InexactFloat64()
				result.Trades = append(result.Trades, trade)
				position = nil
			}
		}

		equity := cash
		if position != nil {
			equity += (price - position.entryPrice) * position.quantity
		}

		result.Equity = append(result.Equity, types.EquityPoint{Time: bar.Time, Index: i, Equity: equity})

		if progress != nil {
			if err := progress(i + 1); err != nil {
				return result, err
			}
		}
	}

	result.FinalCapital = cash
	result.FinalEquity = cash

	if len(bars) > 0 {
		last := bars[len(bars)-1]
		result.Symbol = last.Symbol

		if position != nil {
			result.UnrealizedPnL = (last.Close - position.entryPrice) * position.quantity
			result.FinalEquity = cash + result.UnrealizedPnL
		}
	}

	f.log.Info("Fast backtest finished",
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_capital", result.FinalCapital),
	)

	return result, nil
}

func (f *FastBacktest) exitReason(position *fastPosition, bars []types.Bar, i int) (types.ExitReason, bool) {
	price := bars[i].Close
	stop := position.entryPrice * (1 - f.config.StopLoss)
	target := position.entryPrice * (1 + f.config.TakeProfit)

	switch {
	case price <= stop:
		return types.ExitReasonStopLoss, true
	case price >= target:
		return types.ExitReasonTakeProfit, true
	case f.config.ExitOnCrossDown && i > 0 && types.CrossDown(bars[i-1], bars[i]):
		return types.ExitReasonTrendExit, true
	case f.config.MaxBarsInTrade > 0 && i-position.entryIndex >= f.config.MaxBarsInTrade:
		return types.ExitReasonMaxDuration, true
	default:
		return "", false
	}
}

func (f *FastBacktest) close(position *fastPosition, bar types.Bar, i int, reason types.ExitReason) types.Trade {
	fee := f.fees.Calculate(position.quantity, bar.Close)
	pnl := decimal.NewFromFloat(bar.Close).
		Sub(decimal.NewFromFloat(position.entryPrice)).
		Mul(decimal.NewFromFloat(position.quantity)).
		Sub(decimal.NewFromFloat(fee))

	trade := types.Trade{
		PositionID: position.id,
		Symbol:     position.symbol,
		Side:       types.SideLong,
		EntryPrice: position.entryPrice,
		ExitPrice:  bar.Close,
		Quantity:   position.quantity,
		PnL:        pnl.InexactFloat64(),
		Fee:        fee,
		Reason:     reason,
		EntryTime:  position.entryTime,
		ExitTime:   bar.Time,
		EntryIndex: position.entryIndex,
		ExitIndex:  i,
	}

	f.log.Debug("Fast position closed",
		zap.Int("index", i),
		zap.String("reason", string(reason)),
		zap.Float64("pnl", trade.PnL),
	)

	return trade
}

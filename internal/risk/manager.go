// Package risk sizes positions, walks them up the TP1/TP2/runner profit
// ladder and enforces the daily loss breaker.
//
// A Manager carries only configuration. Every operation receives the *State
// it mutates, so one Manager can serve many independent runs.
package risk

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// quantityEpsilon is the remaining size below which a position counts as closed.
const quantityEpsilon = 1e-9

// FeeModel prices the commission of a closing fill.
type FeeModel interface {
	Calculate(quantity float64, price float64) float64
}

type noFee struct{}

func (noFee) Calculate(float64, float64) float64 { return 0 }

// OpenRequest describes a candidate entry.
type OpenRequest struct {
	Symbol        string
	Side          types.Side
	EntryPrice    float64
	StopLossPrice float64
	// Multipliers overrides the configured ladder.
	Multipliers optional.Option[Multipliers]
	// CustomRisk overrides capital x RiskPerTrade.
	CustomRisk optional.Option[float64]
	Time       time.Time
	Index      int
}

type Manager struct {
	config Config
	model  StopLossModel
	fees   FeeModel
	log    *logger.Logger
}

type Option func(*Manager)

// WithFeeModel charges fees on every closing fill.
func WithFeeModel(fees FeeModel) Option {
	return func(m *Manager) {
		if fees != nil {
			m.fees = fees
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager validates cfg and builds its stop-loss model.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model, err := NewStopLossModel(cfg.StopLoss)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		config: cfg,
		model:  model,
		fees:   noFee{},
		log:    logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

func (m *Manager) Config() Config {
	return m.config
}

func (m *Manager) StopLossModel() StopLossModel {
	return m.model
}

// Size returns the quantity and risk amount for an entry. The notional is
// capped at MaxNotionalFraction of capital, reducing the risk amount to match.
func (m *Manager) Size(capital, entryPrice, stopLossPrice float64, customRisk optional.Option[float64]) (quantity, riskAmount float64, err error) {
	distance := math.Abs(entryPrice - stopLossPrice)
	if distance <= 0 || math.IsNaN(distance) {
		return 0, 0, errors.Newf(errors.ErrCodeInsufficientRisk,
			"stop %.6f equals entry %.6f", stopLossPrice, entryPrice)
	}

	riskAmount = capital * m.config.RiskPerTrade
	if customRisk.IsSome() {
		riskAmount = customRisk.Unwrap()
	}

	quantity = riskAmount / distance

	maxNotional := capital * m.config.MaxNotionalFraction
	if quantity*entryPrice > maxNotional {
		quantity = maxNotional / entryPrice
		riskAmount = quantity * distance
	}

	return quantity, riskAmount, nil
}

// Ladder returns the TP1, TP2 and runner prices for an entry.
func Ladder(side types.Side, entryPrice, stopLossPrice float64, mult Multipliers) (tp1, tp2, runner float64) {
	distance := math.Abs(entryPrice - stopLossPrice)
	sign := side.Sign()

	return entryPrice + sign*distance*mult.TP1,
		entryPrice + sign*distance*mult.TP2,
		entryPrice + sign*distance*mult.Runner
}

// IsDailyBreakerTriggered reports whether the day's P&L has reached the
// daily loss limit relative to the day's starting capital.
func (m *Manager) IsDailyBreakerTriggered(state *State) bool {
	if state.DailyStartCapital <= 0 {
		return true
	}

	move := math.Abs(state.DailyPnL)
	if m.config.DailyBreakerLossOnly {
		move = math.Max(-state.DailyPnL, 0)
	}

	return move/state.DailyStartCapital >= m.config.DailyLossLimit
}

// OpenPosition opens a position when the breaker, the position limit and
// sizing allow it. A rejected entry returns None and leaves state untouched.
func (m *Manager) OpenPosition(state *State, req OpenRequest) (optional.Option[types.Position], Rejection) {
	state.ensure()

	if rejection := m.precheck(state, req.EntryPrice); rejection != RejectionNone {
		m.logRejection(req, rejection)

		return optional.None[types.Position](), rejection
	}

	if (req.StopLossPrice-req.EntryPrice)*req.Side.Sign() >= 0 {
		m.logRejection(req, RejectionInsufficientRisk)

		return optional.None[types.Position](), RejectionInsufficientRisk
	}

	quantity, riskAmount, err := m.Size(state.Capital, req.EntryPrice, req.StopLossPrice, req.CustomRisk)
	if err != nil {
		m.logRejection(req, RejectionInsufficientRisk)

		return optional.None[types.Position](), RejectionInsufficientRisk
	}

	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		m.logRejection(req, RejectionZeroQuantity)

		return optional.None[types.Position](), RejectionZeroQuantity
	}

	mult := m.config.multipliers()
	if req.Multipliers.IsSome() {
		mult = req.Multipliers.Unwrap()
	}

	tp1, tp2, runner := Ladder(req.Side, req.EntryPrice, req.StopLossPrice, mult)

	position := &types.Position{
		ID:              state.NextPositionID,
		Symbol:          req.Symbol,
		Side:            req.Side,
		EntryPrice:      req.EntryPrice,
		Quantity:        quantity,
		InitialQuantity: quantity,
		StopLossPrice:   req.StopLossPrice,
		InitialStop:     req.StopLossPrice,
		TP1Price:        tp1,
		TP2Price:        tp2,
		RunnerPrice:     runner,
		EntryTime:       req.Time,
		EntryIndex:      req.Index,
		RiskAmount:      riskAmount,
		StopLossType:    string(m.model.Type()),
	}

	state.Positions[position.ID] = position
	state.NextPositionID++

	m.log.Info("position opened",
		zap.Int("id", position.ID),
		zap.String("symbol", position.Symbol),
		zap.String("side", string(position.Side)),
		zap.Float64("entry", position.EntryPrice),
		zap.Float64("stop", position.StopLossPrice),
		zap.Float64("quantity", position.Quantity),
		zap.Float64("risk", position.RiskAmount),
	)

	return optional.Some(*position), RejectionNone
}

// OpenWithModel computes the stop from the configured model over the most
// recent RecentBars of history and opens the position.
func (m *Manager) OpenWithModel(state *State, symbol string, side types.Side, entryPrice float64, history []types.Bar, at time.Time, index int) (optional.Option[types.Position], Rejection) {
	req := OpenRequest{Symbol: symbol, Side: side, EntryPrice: entryPrice, Time: at, Index: index}

	if rejection := m.precheck(state, entryPrice); rejection != RejectionNone {
		m.logRejection(req, rejection)

		return optional.None[types.Position](), rejection
	}

	recent := history
	if len(recent) > m.config.RecentBars {
		recent = recent[len(recent)-m.config.RecentBars:]
	}

	stop, err := m.model.Compute(entryPrice, side, recent)
	if err != nil {
		rejection := RejectionInsufficientRisk
		if errors.IsInsufficientDataError(err) {
			rejection = RejectionInsufficientData
		}

		m.log.Debug("stop loss model declined entry", zap.Error(err))
		m.logRejection(req, rejection)

		return optional.None[types.Position](), rejection
	}

	req.StopLossPrice = stop

	return m.OpenPosition(state, req)
}

// UpdatePosition applies one price observation to a position. Exactly one
// ladder step runs per call, checked in order: stop, TP1, TP2, runner.
func (m *Manager) UpdatePosition(state *State, id int, price float64, at time.Time, index int) UpdateResult {
	position, ok := state.Positions[id]
	if !ok {
		return errorResult(id, errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", id))
	}

	switch {
	case position.StopBreached(price):
		// a runner's stop sits at entry, so this is also how a runner ends
		return m.ClosePosition(state, id, price, types.ExitReasonStopLoss, at, index)

	case !position.TP1Hit && position.Reached(price, position.TP1Price):
		position.TP1Hit = true

		return m.PartialClose(state, id, price, m.config.TP1CloseFraction, types.ExitReasonTP1, at, index)

	case position.TP1Hit && !position.TP2Hit && position.Reached(price, position.TP2Price):
		position.TP2Hit = true

		return m.PartialClose(state, id, price, m.config.TP2CloseFraction, types.ExitReasonTP2, at, index)

	case position.TP2Hit && !position.RunnerActive && position.Reached(price, position.RunnerPrice):
		position.RunnerActive = true
		position.StopLossPrice = position.EntryPrice

		m.log.Info("runner activated",
			zap.Int("id", id),
			zap.Float64("price", price),
			zap.Float64("stop", position.StopLossPrice),
		)

		return UpdateResult{
			PositionID:    id,
			Status:        UpdateStatusRunnerActivated,
			Trade:         optional.None[types.Trade](),
			UnrealizedPnL: position.UnrealizedPnL(price),
		}

	default:
		return UpdateResult{
			PositionID:    id,
			Status:        UpdateStatusUpdated,
			Trade:         optional.None[types.Trade](),
			UnrealizedPnL: position.UnrealizedPnL(price),
		}
	}
}

// PartialClose realizes fraction of the remaining quantity at price.
func (m *Manager) PartialClose(state *State, id int, price, fraction float64, reason types.ExitReason, at time.Time, index int) UpdateResult {
	position, ok := state.Positions[id]
	if !ok {
		return errorResult(id, errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", id))
	}

	if fraction <= 0 || fraction > 1 || math.IsNaN(fraction) {
		return errorResult(id, errors.Newf(errors.ErrCodeInvalidParameter, "close fraction %.4f outside (0, 1]", fraction))
	}

	quantity := position.Quantity * fraction
	if fraction == 1 {
		quantity = position.Quantity
	}

	fee := m.fees.Calculate(quantity, price)
	pnl := decimal.NewFromFloat(price).
		Sub(decimal.NewFromFloat(position.EntryPrice)).
		Mul(decimal.NewFromFloat(quantity)).
		Mul(decimal.NewFromFloat(position.Side.Sign())).
		Sub(decimal.NewFromFloat(fee))
	realized := pnl.InexactFloat64()

	state.Capital = decimal.NewFromFloat(state.Capital).Add(pnl).InexactFloat64()
	state.DailyPnL = decimal.NewFromFloat(state.DailyPnL).Add(pnl).InexactFloat64()

	trade := types.Trade{
		PositionID: id,
		Symbol:     position.Symbol,
		Side:       position.Side,
		EntryPrice: position.EntryPrice,
		ExitPrice:  price,
		Quantity:   quantity,
		PnL:        realized,
		Fee:        fee,
		Reason:     reason,
		EntryTime:  position.EntryTime,
		ExitTime:   at,
		EntryIndex: position.EntryIndex,
		ExitIndex:  index,
	}
	state.ClosedTrades = append(state.ClosedTrades, trade)
	state.DailyTrades = append(state.DailyTrades, trade)

	position.Quantity -= quantity

	status := UpdateStatusPartiallyClosed
	if position.Quantity <= quantityEpsilon {
		position.Quantity = 0
		delete(state.Positions, id)

		status = UpdateStatusFullyClosed
	}

	m.log.Info("position reduced",
		zap.Int("id", id),
		zap.String("reason", string(reason)),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
		zap.Float64("pnl", realized),
		zap.String("status", string(status)),
	)

	return UpdateResult{
		PositionID:    id,
		Status:        status,
		Trade:         optional.Some(trade),
		UnrealizedPnL: position.UnrealizedPnL(price),
	}
}

// ClosePosition realizes the whole remaining quantity.
func (m *Manager) ClosePosition(state *State, id int, price float64, reason types.ExitReason, at time.Time, index int) UpdateResult {
	return m.PartialClose(state, id, price, 1, reason, at, index)
}

// PortfolioSummary reports the account as of date without changing it.
func (m *Manager) PortfolioSummary(state *State, date string) types.DailySummary {
	summary := types.DailySummary{
		Date:              date,
		Capital:           state.Capital,
		DailyStartCapital: state.DailyStartCapital,
		DailyPnL:          state.DailyPnL,
		ActivePositions:   len(state.Positions),
		DailyTradesCount:  len(state.DailyTrades),
		BreakerTriggered:  m.IsDailyBreakerTriggered(state),
	}

	if state.DailyStartCapital != 0 {
		summary.DailyPnLPct = state.DailyPnL / state.DailyStartCapital
	}

	if state.InitialCapital != 0 {
		summary.TotalPnLPct = (state.Capital - state.InitialCapital) / state.InitialCapital
	}

	return summary
}

// ResetDailyTracking closes out the current day and starts day. The returned
// summary describes the day being closed.
func (m *Manager) ResetDailyTracking(state *State, day string) types.DailySummary {
	summary := m.PortfolioSummary(state, state.CurrentDay)

	state.DailyStartCapital = state.Capital
	state.DailyPnL = 0
	state.DailyTrades = nil
	state.CurrentDay = day

	m.log.Debug("daily tracking reset",
		zap.String("closed_day", summary.Date),
		zap.String("day", day),
		zap.Float64("daily_pnl", summary.DailyPnL),
	)

	return summary
}

func (m *Manager) precheck(state *State, entryPrice float64) Rejection {
	state.ensure()

	switch {
	case entryPrice <= 0 || math.IsNaN(entryPrice):
		return RejectionInvalidPrice
	case m.IsDailyBreakerTriggered(state):
		return RejectionDailyBreaker
	case len(state.Positions) >= m.config.MaxConcurrentPositions:
		return RejectionMaxPositions
	default:
		return RejectionNone
	}
}

func (m *Manager) logRejection(req OpenRequest, rejection Rejection) {
	m.log.Debug("entry rejected",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("entry", req.EntryPrice),
		zap.String("reason", string(rejection)),
	)
}

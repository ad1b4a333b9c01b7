// Package strategy holds the per-bar step that drives the risk manager from
// signal decisions. Backtest and live runners share it so both replay the
// same sequence of state changes for the same bars.
package strategy

import (
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

type Config struct {
	// Symbol is used when bars carry no symbol of their own.
	Symbol string `yaml:"symbol" json:"symbol" jsonschema:"title=Symbol"`
	// Timezone decides calendar day boundaries for the daily breaker.
	Timezone    string `yaml:"timezone" json:"timezone" jsonschema:"title=Trading Day Timezone,default=UTC"`
	EnableShort bool   `yaml:"enable_short" json:"enable_short" jsonschema:"title=Open Shorts On Sell Signals,default=true"`
	// MaxBarsInTrade closes a position after this many bars. Zero disables it.
	MaxBarsInTrade int `yaml:"max_bars_in_trade" json:"max_bars_in_trade" jsonschema:"title=Max Bars In Trade,default=0" validate:"gte=0"`
	// ExitOnTrendReversal closes longs on an oscillator cross down and shorts on a cross up.
	ExitOnTrendReversal bool `yaml:"exit_on_trend_reversal" json:"exit_on_trend_reversal" jsonschema:"title=Exit On Oscillator Reversal,default=false"`
}

func DefaultConfig() Config {
	return Config{
		Timezone:    "UTC",
		EnableShort: true,
	}
}

// BarOutcome records everything one call to ProcessBar did.
type BarOutcome struct {
	Index int
	Time  time.Time
	// ClosedDay is set when this bar started a new trading day.
	ClosedDay     optional.Option[types.DailySummary]
	Updates       []risk.UpdateResult
	Trades        []types.Trade
	Opened        []types.Position
	Rejections    []risk.Rejection
	BreakerActive bool
	Conflict      bool
	Equity        types.EquityPoint
}

// Ladder is the per-bar step: day rollover, position updates, optional
// time and trend exits, new entries, equity mark.
type Ladder struct {
	config   Config
	manager  *risk.Manager
	location *time.Location
	log      *logger.Logger
}

func NewLadder(cfg Config, manager *risk.Manager, log *logger.Logger) (*Ladder, error) {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid strategy configuration", err)
	}

	if manager == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "risk manager is required")
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}

	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidTimezone, err, "unknown timezone %q", tz)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Ladder{config: cfg, manager: manager, location: location, log: log}, nil
}

func (l *Ladder) Manager() *risk.Manager {
	return l.manager
}

// DayKey returns the trading day of t in the configured timezone.
func (l *Ladder) DayKey(t time.Time) string {
	return t.In(l.location).Format(dayLayout)
}

// ProcessBar advances state by bar i of bars. bars[:i+1] is the history
// visible to stop-loss models; later bars are never read.
func (l *Ladder) ProcessBar(state *risk.State, bars []types.Bar, i int, decision types.SignalDecision) BarOutcome {
	return l.ProcessBarAt(state, bars, i, i, decision)
}

// ProcessBarAt is ProcessBar for callers whose bars slice is a moving window.
// index is the bar's position in the whole run and is what positions, trades
// and the duration exit are measured in.
func (l *Ladder) ProcessBarAt(state *risk.State, bars []types.Bar, i int, index int, decision types.SignalDecision) BarOutcome {
	bar := bars[i]
	outcome := BarOutcome{
		Index:     index,
		Time:      bar.Time,
		ClosedDay: optional.None[types.DailySummary](),
		Conflict:  decision.Conflicting(),
	}

	day := l.DayKey(bar.Time)
	switch {
	case state.CurrentDay == "":
		state.CurrentDay = day
	case state.CurrentDay != day:
		outcome.ClosedDay = optional.Some(l.manager.ResetDailyTracking(state, day))
	}

	for _, id := range state.OpenPositionIDs() {
		l.record(&outcome, l.manager.UpdatePosition(state, id, bar.Close, bar.Time, index))
	}

	l.applyExits(state, bars, i, index, &outcome)

	outcome.BreakerActive = l.manager.IsDailyBreakerTriggered(state)
	if !outcome.BreakerActive {
		symbol := bar.Symbol
		if symbol == "" {
			symbol = l.config.Symbol
		}

		if decision.FinalBuy {
			l.open(state, symbol, types.SideLong, bars, i, index, &outcome)
		}

		if decision.FinalSell && l.config.EnableShort {
			l.open(state, symbol, types.SideShort, bars, i, index, &outcome)
		}
	} else if decision.FinalBuy || decision.FinalSell {
		outcome.Rejections = append(outcome.Rejections, risk.RejectionDailyBreaker)
	}

	if outcome.Conflict {
		l.log.Debug("conflicting signals on bar", zap.Int("index", index), zap.Time("time", bar.Time))
	}

	outcome.Equity = types.EquityPoint{
		Time:   bar.Time,
		Index:  index,
		Equity: state.Equity(bar.Close),
	}

	return outcome
}

// Finish returns the summary of the day still open after the last bar.
func (l *Ladder) Finish(state *risk.State) types.DailySummary {
	return l.manager.PortfolioSummary(state, state.CurrentDay)
}

func (l *Ladder) applyExits(state *risk.State, bars []types.Bar, i int, index int, outcome *BarOutcome) {
	if l.config.MaxBarsInTrade <= 0 && !l.config.ExitOnTrendReversal {
		return
	}

	bar := bars[i]
	crossUp, crossDown := false, false

	if i > 0 {
		crossUp = types.CrossUp(bars[i-1], bar)
		crossDown = types.CrossDown(bars[i-1], bar)
	}

	for _, id := range state.OpenPositionIDs() {
		position := state.Positions[id]

		var reason types.ExitReason

		switch {
		case l.config.MaxBarsInTrade > 0 && index-position.EntryIndex >= l.config.MaxBarsInTrade:
			reason = types.ExitReasonMaxDuration
		case l.config.ExitOnTrendReversal && position.Side == types.SideLong && crossDown:
			reason = types.ExitReasonTrendExit
		case l.config.ExitOnTrendReversal && position.Side == types.SideShort && crossUp:
			reason = types.ExitReasonTrendExit
		default:
			continue
		}

		l.record(outcome, l.manager.ClosePosition(state, id, bar.Close, reason, bar.Time, index))
	}
}

func (l *Ladder) open(state *risk.State, symbol string, side types.Side, bars []types.Bar, i int, index int, outcome *BarOutcome) {
	bar := bars[i]

	position, rejection := l.manager.OpenWithModel(state, symbol, side, bar.Close, bars[:i+1], bar.Time, index)
	if rejection != risk.RejectionNone {
		outcome.Rejections = append(outcome.Rejections, rejection)

		return
	}

	outcome.Opened = append(outcome.Opened, position.Unwrap())
}

func (l *Ladder) record(outcome *BarOutcome, result risk.UpdateResult) {
	outcome.Updates = append(outcome.Updates, result)

	if result.Err != nil {
		l.log.Warn("position update failed", zap.Int("id", result.PositionID), zap.Error(result.Err))

		return
	}

	if result.Trade.IsSome() {
		outcome.Trades = append(outcome.Trades, result.Trade.Unwrap())
	}
}

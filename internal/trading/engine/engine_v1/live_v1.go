package engine_v1

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/indicator"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/metrics"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/signal"
	"github.com/rxtech-lab/argo-ladder/internal/strategy"
	"github.com/rxtech-lab/argo-ladder/internal/trading"
	"github.com/rxtech-lab/argo-ladder/internal/trading/engine"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/rxtech-lab/argo-ladder/pkg/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// entryReason tags orders that open a position.
const entryReason = "ENTRY"

// LiveEngineV1 runs the ladder step against a persisted state, one bar per call.
type LiveEngineV1 struct {
	config      LiveEngineV1Config
	source      signal.Source
	ladder      *strategy.Ladder
	gateway     trading.Gateway
	store       risk.SnapshotStore
	journal     engine.Journal
	metrics     *metrics.Metrics
	log         *logger.Logger
	initialized bool
}

// NewLiveEngineV1 creates a live engine logging to stdout.
func NewLiveEngineV1() engine.LiveEngine {
	log, err := logger.NewLogger()
	if err != nil {
		log = logger.NewNopLogger()
	}

	return NewLiveEngineV1WithLogger(log)
}

// NewLiveEngineV1WithLogger creates a live engine with an explicit logger.
func NewLiveEngineV1WithLogger(log *logger.Logger) *LiveEngineV1 {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &LiveEngineV1{
		config: DefaultConfig(),
		log:    log,
	}
}

func (e *LiveEngineV1) Initialize(config string) error {
	var cfg LiveEngineV1Config
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse live configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	source, err := signal.NewSource(cfg.Signal, e.log.Named("signal"))
	if err != nil {
		return err
	}

	fees := commission_fee.GetCommissionFeeHandler(cfg.Broker, cfg.FeeRate)

	manager, err := risk.NewManager(cfg.Risk,
		risk.WithFeeModel(fees),
		risk.WithLogger(e.log.Named("risk")),
	)
	if err != nil {
		return err
	}

	ladder, err := strategy.NewLadder(cfg.Strategy, manager, e.log.Named("strategy"))
	if err != nil {
		return err
	}

	e.config = cfg
	e.source = source
	e.ladder = ladder
	e.initialized = true

	e.log.Info("Live engine initialized",
		zap.String("symbol", cfg.Symbol),
		zap.String("snapshot_key", cfg.SnapshotKey),
		zap.String("signal_source", source.Name()),
		zap.String("stop_loss", string(cfg.Risk.StopLoss.Type)),
	)

	return nil
}

// Config returns the parsed configuration.
func (e *LiveEngineV1) Config() LiveEngineV1Config {
	return e.config
}

func (e *LiveEngineV1) SetGateway(gateway trading.Gateway) error {
	e.gateway = gateway

	return nil
}

func (e *LiveEngineV1) SetSnapshotStore(store risk.SnapshotStore) error {
	e.store = store

	return nil
}

func (e *LiveEngineV1) SetJournal(journal engine.Journal) error {
	e.journal = journal

	return nil
}

func (e *LiveEngineV1) SetMetrics(m *metrics.Metrics) error {
	e.metrics = m

	return nil
}

func (e *LiveEngineV1) GetConfigSchema() (string, error) {
	return utils.GetSchemaFromConfig(&LiveEngineV1Config{})
}

// Step applies the newest bar to the persisted state. A bar at or before the
// state's LastBarTime is skipped, so repeating a step is harmless. Order
// failures do not roll the state back: the state stays the record of what
// the strategy decided and the journal shows what the venue did.
func (e *LiveEngineV1) Step(ctx context.Context, bars []types.Bar, callbacks engine.LiveCallbacks) (result engine.StepResult, stepErr error) {
	started := time.Now()
	result.Key = e.config.SnapshotKey

	defer func() {
		if callbacks.OnStepEnd != nil {
			(*callbacks.OnStepEnd)(result, stepErr)
		}
	}()

	if err := e.preStepCheck(); err != nil {
		return result, err
	}

	if len(bars) == 0 {
		return result, errors.New(errors.ErrCodeInvalidParameter, "step needs at least one bar")
	}

	bars = e.prepareBars(bars)
	last := len(bars) - 1
	bar := bars[last]
	result.BarTime = bar.Time

	if err := bar.Validate(); err != nil {
		return result, err
	}

	state, err := e.loadState(ctx)
	if err != nil {
		return result, err
	}

	if !state.LastBarTime.IsZero() && !bar.Time.After(state.LastBarTime) {
		e.log.Debug("Bar already applied",
			zap.Time("bar_time", bar.Time),
			zap.Time("last_bar_time", state.LastBarTime),
		)

		result.Skipped = true
		result.Capital = state.Capital
		result.Equity = state.Equity(bar.Close)

		return result, nil
	}

	if callbacks.OnStepStart != nil {
		if err := (*callbacks.OnStepStart)(result.Key, bar); err != nil {
			return result, errors.Wrap(errors.ErrCodeCallbackFailed, "OnStepStart callback failed", err)
		}
	}

	series, err := e.source.Generate(bars)
	if err != nil {
		return result, err
	}

	outcome := e.ladder.ProcessBarAt(state, bars, last, state.BarsApplied, series.At(last))
	state.LastBarTime = bar.Time
	state.BarsApplied++

	result.Trades = outcome.Trades
	result.Opened = outcome.Opened
	result.Rejections = outcome.Rejections
	result.BreakerActive = outcome.BreakerActive
	result.Capital = state.Capital
	result.Equity = outcome.Equity.Equity

	if callbacks.OnTradeClosed != nil {
		for _, trade := range outcome.Trades {
			if err := (*callbacks.OnTradeClosed)(trade); err != nil {
				return result, errors.Wrap(errors.ErrCodeCallbackFailed, "OnTradeClosed callback failed", err)
			}
		}
	}

	result.Orders = ordersFor(outcome, bar)
	execErr := e.execute(ctx, result.Orders, callbacks, &result)

	if err := e.store.Save(ctx, e.config.SnapshotKey, state); err != nil {
		return result, errors.Wrap(errors.ErrCodeSnapshotFailed, "failed to save state after step", err)
	}

	e.observe(state, outcome, &result, started)

	e.log.Info("Step completed",
		zap.Time("bar_time", bar.Time),
		zap.Int("orders", len(result.Orders)),
		zap.Int("failed_orders", result.FailedOrders),
		zap.Int("open_positions", len(state.Positions)),
		zap.Float64("capital", state.Capital),
		zap.Bool("breaker_active", result.BreakerActive),
	)

	return result, execErr
}

// execute sends orders in sequence. A gateway error does not stop the
// remaining orders; the first one is returned.
func (e *LiveEngineV1) execute(ctx context.Context, orders []types.Order, callbacks engine.LiveCallbacks, result *engine.StepResult) error {
	var firstErr error

	for _, order := range orders {
		if callbacks.OnOrderPlaced != nil {
			if err := (*callbacks.OnOrderPlaced)(order); err != nil {
				return errors.Wrap(errors.ErrCodeCallbackFailed, "OnOrderPlaced callback failed", err)
			}
		}

		if e.journal != nil {
			if err := e.journal.RecordOrder(ctx, order); err != nil {
				e.reportError(callbacks, err)
			}
		}

		fill, err := e.gateway.PlaceOrder(ctx, order)
		if err != nil {
			result.FailedOrders++
			e.reportError(callbacks, err)

			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		result.Fills = append(result.Fills, fill)

		if fill.Status != types.OrderStatusFilled {
			result.FailedOrders++
			e.reportError(callbacks, errors.Newf(errors.ErrCodeOrderFailed, "order %s was %s", order.ID, fill.Status))
		} else if e.metrics != nil {
			e.metrics.OrdersPlaced.WithLabelValues(string(order.Side), string(order.Intent)).Inc()
			e.metrics.FillFees.Add(fill.Fee)
		}

		if e.journal != nil {
			if err := e.journal.RecordFill(ctx, fill); err != nil {
				e.reportError(callbacks, err)
			}
		}

		if callbacks.OnOrderFilled != nil {
			if err := (*callbacks.OnOrderFilled)(fill); err != nil {
				return errors.Wrap(errors.ErrCodeCallbackFailed, "OnOrderFilled callback failed", err)
			}
		}
	}

	return firstErr
}

func (e *LiveEngineV1) reportError(callbacks engine.LiveCallbacks, err error) {
	e.log.Warn("Live step error", zap.Error(err))

	if e.metrics != nil && errors.HasCode(err, errors.ErrCodeOrderFailed) {
		e.metrics.OrdersFailed.Inc()
	}

	if callbacks.OnError != nil {
		(*callbacks.OnError)(err)
	}
}

func (e *LiveEngineV1) observe(state *risk.State, outcome strategy.BarOutcome, result *engine.StepResult, started time.Time) {
	if e.metrics == nil {
		return
	}

	m := e.metrics
	m.BarsProcessed.Inc()

	for _, p := range outcome.Opened {
		m.PositionsOpened.WithLabelValues(string(p.Side)).Inc()
	}

	for _, t := range outcome.Trades {
		m.TradesClosed.WithLabelValues(string(t.Reason)).Inc()
	}

	for _, r := range outcome.Rejections {
		m.Rejections.WithLabelValues(string(r)).Inc()
	}

	m.Capital.Set(state.Capital)
	m.Equity.Set(result.Equity)
	m.DailyPnL.Set(state.DailyPnL)
	m.OpenPositions.Set(float64(len(state.Positions)))
	m.SetBreaker(outcome.BreakerActive)
	m.StepDuration.Observe(time.Since(started).Seconds())
}

// loadState returns a fresh state funded with InitialCapital when no snapshot exists.
func (e *LiveEngineV1) loadState(ctx context.Context) (*risk.State, error) {
	state, err := e.store.Load(ctx, e.config.SnapshotKey)
	if err == nil {
		return state, nil
	}

	if errors.HasCode(err, errors.ErrCodeDataNotFound) {
		e.log.Info("No snapshot found, starting fresh state",
			zap.String("key", e.config.SnapshotKey),
			zap.Float64("capital", e.config.InitialCapital),
		)

		return risk.NewState(e.config.InitialCapital), nil
	}

	return nil, errors.Wrapf(errors.ErrCodeSnapshotFailed, err, "failed to load state %q", e.config.SnapshotKey)
}

// prepareBars copies bars, fills missing symbols and computes indicators.
func (e *LiveEngineV1) prepareBars(bars []types.Bar) []types.Bar {
	out := make([]types.Bar, len(bars))
	copy(out, bars)

	for i := range out {
		if out[i].Symbol == "" {
			out[i].Symbol = e.config.Symbol
		}
	}

	if e.config.Indicators.Compute {
		out = indicator.Enrich(out, e.config.Indicators.Config)
	}

	return out
}

func (e *LiveEngineV1) preStepCheck() error {
	if !e.initialized {
		return errors.New(errors.ErrCodeInvalidConfiguration, "live engine is not initialized")
	}

	if e.gateway == nil {
		return errors.New(errors.ErrCodeGatewayMissing, "no gateway configured")
	}

	if e.store == nil {
		return errors.New(errors.ErrCodeSnapshotFailed, "no snapshot store configured")
	}

	return nil
}

// ordersFor turns closing trades and new positions into market orders, closes first.
func ordersFor(outcome strategy.BarOutcome, bar types.Bar) []types.Order {
	orders := make([]types.Order, 0, len(outcome.Trades)+len(outcome.Opened))

	for _, trade := range outcome.Trades {
		orders = append(orders, types.Order{
			ID:         uuid.New().String(),
			PositionID: trade.PositionID,
			Symbol:     trade.Symbol,
			Side:       types.ExitSide(trade.Side),
			Intent:     types.OrderIntentClose,
			Quantity:   trade.Quantity,
			Price:      trade.ExitPrice,
			Reason:     string(trade.Reason),
			Timestamp:  bar.Time,
		})
	}

	for _, position := range outcome.Opened {
		orders = append(orders, types.Order{
			ID:         uuid.New().String(),
			PositionID: position.ID,
			Symbol:     position.Symbol,
			Side:       types.EntrySide(position.Side),
			Intent:     types.OrderIntentOpen,
			Quantity:   position.Quantity,
			Price:      position.EntryPrice,
			Reason:     entryReason,
			Timestamp:  bar.Time,
		})
	}

	return orders
}

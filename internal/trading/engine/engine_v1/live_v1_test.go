package engine_v1

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/metrics"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/trading"
	"github.com/rxtech-lab/argo-ladder/internal/trading/engine"
	"github.com/rxtech-lab/argo-ladder/internal/trading/journal"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/mocks"
	argoErrors "github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// alerts drive entries so the tests do not depend on indicator warm-up.
const liveTestConfig = `
symbol: BTCUSDT
indicators:
  compute: false
`

// LiveEngineV1TestSuite is the test suite for LiveEngineV1.
type LiveEngineV1TestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	ctx   context.Context
	start time.Time
}

// TestLiveEngineV1 runs the test suite.
func TestLiveEngineV1(t *testing.T) {
	suite.Run(t, new(LiveEngineV1TestSuite))
}

func (s *LiveEngineV1TestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.ctx = context.Background()
	s.start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
}

func (s *LiveEngineV1TestSuite) TearDownTest() {
	s.ctrl.Finish()
}

// hourlyBars builds bars from closes; indexes in buys carry a buy alert.
func (s *LiveEngineV1TestSuite) hourlyBars(closes []float64, buys ...int) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.NewBar(s.start.Add(time.Duration(i)*time.Hour), "", c, c, c, c, 10)
	}

	for _, i := range buys {
		bars[i].AlertBuy = true
	}

	return bars
}

func (s *LiveEngineV1TestSuite) newEngine() *LiveEngineV1 {
	e := NewLiveEngineV1WithLogger(logger.NewNopLogger())
	s.Require().NoError(e.Initialize(liveTestConfig))

	return e
}

func notFound() error {
	return argoErrors.New(argoErrors.ErrCodeDataNotFound, "no snapshot")
}

func filled(order types.Order) types.Fill {
	return types.Fill{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		Price:     order.Price,
		Status:    types.OrderStatusFilled,
		Timestamp: order.Timestamp,
	}
}

// ============================================================================
// Initialization Tests
// ============================================================================

func (s *LiveEngineV1TestSuite) TestInitialize() {
	tests := []struct {
		name   string
		config string
		code   argoErrors.ErrorCode
		ok     bool
	}{
		{name: "valid", config: liveTestConfig, ok: true},
		{name: "malformed yaml", config: "symbol: [", code: argoErrors.ErrCodeInvalidConfiguration},
		{name: "missing symbol", config: "interval: 1h\n", code: argoErrors.ErrCodeInvalidConfiguration},
		{name: "unknown signal source", config: "symbol: BTCUSDT\nsignal:\n  source: magic\n", code: argoErrors.ErrCodeInvalidConfiguration},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			e := NewLiveEngineV1WithLogger(logger.NewNopLogger())
			err := e.Initialize(tc.config)

			if tc.ok {
				s.NoError(err)
				s.Equal("BTCUSDT", e.Config().SnapshotKey)

				return
			}

			s.Error(err)
			s.True(argoErrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (s *LiveEngineV1TestSuite) TestGetConfigSchema() {
	schema, err := NewLiveEngineV1WithLogger(nil).GetConfigSchema()
	s.Require().NoError(err)
	s.Contains(schema, "snapshot_key")
	s.Contains(schema, "history_bars")
	s.Contains(schema, "stop_loss")
}

// ============================================================================
// Step Precondition Tests
// ============================================================================

func (s *LiveEngineV1TestSuite) TestStepPreconditions() {
	bars := s.hourlyBars([]float64{100})

	tests := []struct {
		name  string
		setup func() *LiveEngineV1
		bars  []types.Bar
		code  argoErrors.ErrorCode
	}{
		{
			name:  "not initialized",
			setup: func() *LiveEngineV1 { return NewLiveEngineV1WithLogger(nil) },
			bars:  bars,
			code:  argoErrors.ErrCodeInvalidConfiguration,
		},
		{
			name: "no gateway",
			setup: func() *LiveEngineV1 {
				e := s.newEngine()
				s.Require().NoError(e.SetSnapshotStore(mocks.NewMockSnapshotStore(s.ctrl)))

				return e
			},
			bars: bars,
			code: argoErrors.ErrCodeGatewayMissing,
		},
		{
			name: "no snapshot store",
			setup: func() *LiveEngineV1 {
				e := s.newEngine()
				s.Require().NoError(e.SetGateway(mocks.NewMockGateway(s.ctrl)))

				return e
			},
			bars: bars,
			code: argoErrors.ErrCodeSnapshotFailed,
		},
		{
			name: "no bars",
			setup: func() *LiveEngineV1 {
				e := s.newEngine()
				s.Require().NoError(e.SetGateway(mocks.NewMockGateway(s.ctrl)))
				s.Require().NoError(e.SetSnapshotStore(mocks.NewMockSnapshotStore(s.ctrl)))

				return e
			},
			bars: nil,
			code: argoErrors.ErrCodeInvalidParameter,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			var ended bool

			onEnd := engine.OnStepEndCallback(func(_ engine.StepResult, err error) {
				ended = true
				s.Error(err)
			})

			_, err := tc.setup().Step(s.ctx, tc.bars, engine.LiveCallbacks{OnStepEnd: &onEnd})
			s.Error(err)
			s.True(argoErrors.HasCode(err, tc.code), "got %v", err)
			s.True(ended)
		})
	}
}

// ============================================================================
// Step Tests
// ============================================================================

func (s *LiveEngineV1TestSuite) TestStepOpensFromFreshState() {
	e := s.newEngine()
	gateway := mocks.NewMockGateway(s.ctrl)
	store := mocks.NewMockSnapshotStore(s.ctrl)
	s.Require().NoError(e.SetGateway(gateway))
	s.Require().NoError(e.SetSnapshotStore(store))

	var saved *risk.State

	store.EXPECT().Load(gomock.Any(), "BTCUSDT").Return(nil, notFound())
	gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, order types.Order) (types.Fill, error) {
			s.Equal(types.PurchaseTypeBuy, order.Side)
			s.Equal(types.OrderIntentOpen, order.Intent)
			s.Equal("BTCUSDT", order.Symbol)
			s.InDelta(90.0, order.Quantity, 1e-9)
			s.Equal(100.0, order.Price)
			s.Equal(1, order.PositionID)
			s.NoError(order.Validate())

			return filled(order), nil
		})
	store.EXPECT().Save(gomock.Any(), "BTCUSDT", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, state *risk.State) error {
			saved = state.Clone()

			return nil
		})

	result, err := e.Step(s.ctx, s.hourlyBars([]float64{100, 100, 100}, 2), engine.LiveCallbacks{})
	s.Require().NoError(err)

	s.False(result.Skipped)
	s.Equal("BTCUSDT", result.Key)
	s.Equal(s.start.Add(2*time.Hour), result.BarTime)
	s.Require().Len(result.Orders, 1)
	s.Require().Len(result.Fills, 1)
	s.Require().Len(result.Opened, 1)
	s.Zero(result.FailedOrders)
	s.Equal(10000.0, result.Equity)

	s.Require().NotNil(saved)
	s.Len(saved.Positions, 1)
	s.Equal(s.start.Add(2*time.Hour), saved.LastBarTime)
	s.Equal(1, saved.BarsApplied)
	s.Equal(0, saved.Positions[1].EntryIndex)
}

func (s *LiveEngineV1TestSuite) TestStepSkipsAppliedBar() {
	e := s.newEngine()
	gateway := mocks.NewMockGateway(s.ctrl)
	store := mocks.NewMockSnapshotStore(s.ctrl)
	s.Require().NoError(e.SetGateway(gateway))
	s.Require().NoError(e.SetSnapshotStore(store))

	state := risk.NewState(10000)
	state.LastBarTime = s.start.Add(2 * time.Hour)
	store.EXPECT().Load(gomock.Any(), "BTCUSDT").Return(state, nil)

	result, err := e.Step(s.ctx, s.hourlyBars([]float64{100, 100, 100}, 2), engine.LiveCallbacks{})
	s.Require().NoError(err)
	s.True(result.Skipped)
	s.Empty(result.Orders)
}

func (s *LiveEngineV1TestSuite) TestStepLoadFailure() {
	e := s.newEngine()
	store := mocks.NewMockSnapshotStore(s.ctrl)
	s.Require().NoError(e.SetGateway(mocks.NewMockGateway(s.ctrl)))
	s.Require().NoError(e.SetSnapshotStore(store))

	store.EXPECT().Load(gomock.Any(), "BTCUSDT").Return(nil, errors.New("redis down"))

	_, err := e.Step(s.ctx, s.hourlyBars([]float64{100}), engine.LiveCallbacks{})
	s.True(argoErrors.HasCode(err, argoErrors.ErrCodeSnapshotFailed))
}

func (s *LiveEngineV1TestSuite) TestStepStartCallbackAborts() {
	e := s.newEngine()
	store := mocks.NewMockSnapshotStore(s.ctrl)
	s.Require().NoError(e.SetGateway(mocks.NewMockGateway(s.ctrl)))
	s.Require().NoError(e.SetSnapshotStore(store))

	store.EXPECT().Load(gomock.Any(), "BTCUSDT").Return(nil, notFound())

	onStart := engine.OnStepStartCallback(func(key string, bar types.Bar) error {
		s.Equal("BTCUSDT", key)
		s.Equal("BTCUSDT", bar.Symbol)

		return errors.New("market closed")
	})

	_, err := e.Step(s.ctx, s.hourlyBars([]float64{100, 100}, 1), engine.LiveCallbacks{OnStepStart: &onStart})
	s.True(argoErrors.HasCode(err, argoErrors.ErrCodeCallbackFailed))
}

func (s *LiveEngineV1TestSuite) TestStepOrderFailures() {
	tests := []struct {
		name      string
		placeFill types.Fill
		placeErr  error
		expectErr bool
	}{
		{
			name:      "gateway error",
			placeErr:  argoErrors.New(argoErrors.ErrCodeOrderFailed, "exchange unavailable"),
			expectErr: true,
		},
		{
			name:      "rejected fill",
			placeFill: types.Fill{Status: types.OrderStatusRejected},
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			e := s.newEngine()
			gateway := mocks.NewMockGateway(s.ctrl)
			store := mocks.NewMockSnapshotStore(s.ctrl)
			m := metrics.NewMetrics()
			s.Require().NoError(e.SetGateway(gateway))
			s.Require().NoError(e.SetSnapshotStore(store))
			s.Require().NoError(e.SetMetrics(m))

			var reported []error

			onError := engine.OnErrorCallback(func(err error) { reported = append(reported, err) })

			store.EXPECT().Load(gomock.Any(), "BTCUSDT").Return(nil, notFound())
			gateway.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(tc.placeFill, tc.placeErr)
			// the decision stands even though the order did not fill
			store.EXPECT().Save(gomock.Any(), "BTCUSDT", gomock.Any()).DoAndReturn(
				func(_ context.Context, _ string, state *risk.State) error {
					s.Len(state.Positions, 1)

					return nil
				})

			result, err := e.Step(s.ctx, s.hourlyBars([]float64{100, 100}, 1), engine.LiveCallbacks{OnError: &onError})
			if tc.expectErr {
				s.True(argoErrors.HasCode(err, argoErrors.ErrCodeOrderFailed))
			} else {
				s.NoError(err)
			}

			s.Equal(1, result.FailedOrders)
			s.Len(reported, 1)
			s.Equal(1.0, testutil.ToFloat64(m.OrdersFailed))
			s.Equal(0.0, testutil.ToFloat64(m.OrdersPlaced.WithLabelValues("BUY", "OPEN")))
			s.Equal(1.0, testutil.ToFloat64(m.PositionsOpened.WithLabelValues("LONG")))
		})
	}
}

func (s *LiveEngineV1TestSuite) TestStepLadderAcrossCalls() {
	dir := s.T().TempDir()
	store := risk.NewFileSnapshotStore(filepath.Join(dir, "state"))
	paper := trading.NewPaperGateway(commission_fee.NewZeroCommissionFee(), 0, 10000)
	m := metrics.NewMetrics()

	j, err := journal.NewJournal(filepath.Join(dir, "journal.db"))
	s.Require().NoError(err)
	defer j.Close()

	newEngine := func() *LiveEngineV1 {
		e := s.newEngine()
		s.Require().NoError(e.SetGateway(paper))
		s.Require().NoError(e.SetSnapshotStore(store))
		s.Require().NoError(e.SetJournal(j))
		s.Require().NoError(e.SetMetrics(m))

		return e
	}

	var closed []types.Trade

	onTrade := engine.OnTradeClosedCallback(func(trade types.Trade) error {
		closed = append(closed, trade)

		return nil
	})
	callbacks := engine.LiveCallbacks{OnTradeClosed: &onTrade}

	// step 1: entry on the alert bar
	first, err := newEngine().Step(s.ctx, s.hourlyBars([]float64{100, 100, 100}, 2), callbacks)
	s.Require().NoError(err)
	s.Require().Len(first.Opened, 1)

	// step 2 runs in a fresh engine, as a cron invocation would
	second, err := newEngine().Step(s.ctx, s.hourlyBars([]float64{100, 100, 100, 103.5}, 2), callbacks)
	s.Require().NoError(err)
	s.Require().Len(second.Trades, 1)
	s.Require().Len(second.Orders, 1)

	order := second.Orders[0]
	s.Equal(types.PurchaseTypeSell, order.Side)
	s.Equal(types.OrderIntentClose, order.Intent)
	s.Equal(string(types.ExitReasonTP1), order.Reason)
	s.InDelta(45.0, order.Quantity, 1e-9)
	s.Equal(103.5, order.Price)
	s.InDelta(10157.5, second.Capital, 1e-9)
	s.Len(closed, 1)

	// repeating the last step is a no-op
	again, err := newEngine().Step(s.ctx, s.hourlyBars([]float64{100, 100, 100, 103.5}, 2), callbacks)
	s.Require().NoError(err)
	s.True(again.Skipped)
	s.InDelta(10157.5, again.Capital, 1e-9)

	state, err := store.Load(s.ctx, "BTCUSDT")
	s.Require().NoError(err)
	s.Require().Len(state.Positions, 1)
	s.True(state.Positions[1].TP1Hit)
	s.Equal(2, state.BarsApplied)
	s.Len(state.ClosedTrades, 1)
	s.Equal(1, state.ClosedTrades[0].ExitIndex)

	orders, err := j.Orders(s.ctx, journal.Filter{})
	s.Require().NoError(err)
	s.Len(orders, 2)

	fills, err := j.Fills(s.ctx, journal.Filter{})
	s.Require().NoError(err)
	s.Len(fills, 2)

	unfilled, err := j.UnfilledOrders(s.ctx)
	s.Require().NoError(err)
	s.Empty(unfilled)

	s.Len(paper.Fills(), 2)
	s.InDelta(10000-90*100+45*103.5, paper.Cash(), 1e-9)

	s.Equal(2.0, testutil.ToFloat64(m.BarsProcessed))
	s.Equal(1.0, testutil.ToFloat64(m.TradesClosed.WithLabelValues("TP1")))
	s.Equal(1.0, testutil.ToFloat64(m.OrdersPlaced.WithLabelValues("SELL", "CLOSE")))
	s.Equal(1.0, testutil.ToFloat64(m.OpenPositions))
	s.InDelta(10157.5, testutil.ToFloat64(m.Capital), 1e-9)
}

package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-ladder/internal/metrics"
	"github.com/rxtech-lab/argo-ladder/internal/risk"
	"github.com/rxtech-lab/argo-ladder/internal/trading"
	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// Lifecycle callback types for a live step.
// All callbacks with error return can abort the step if they return an error.

// OnStepStartCallback is called once the snapshot is loaded and before the bar is applied.
type OnStepStartCallback func(key string, bar types.Bar) error

// OnStepEndCallback is called when the step ends (always called via defer).
type OnStepEndCallback func(result StepResult, err error)

// OnOrderPlacedCallback is called before an order is sent to the gateway.
type OnOrderPlacedCallback func(order types.Order) error

// OnOrderFilledCallback is called with every execution report the gateway returns.
type OnOrderFilledCallback func(fill types.Fill) error

// OnTradeClosedCallback is called for every closing trade the risk manager produced.
type OnTradeClosedCallback func(trade types.Trade) error

// OnErrorCallback is called when a non-fatal error occurs, such as a failed order.
type OnErrorCallback func(err error)

// LiveCallbacks holds all lifecycle callback functions for a live step.
// All fields are pointers - nil means no callback will be invoked.
type LiveCallbacks struct {
	OnStepStart   *OnStepStartCallback
	OnStepEnd     *OnStepEndCallback
	OnOrderPlaced *OnOrderPlacedCallback
	OnOrderFilled *OnOrderFilledCallback
	OnTradeClosed *OnTradeClosedCallback
	OnError       *OnErrorCallback
}

// Journal records orders and fills for reconciliation.
type Journal interface {
	RecordOrder(ctx context.Context, order types.Order) error
	RecordFill(ctx context.Context, fill types.Fill) error
}

// StepResult summarises one live step.
type StepResult struct {
	Key     string
	BarTime time.Time
	// Skipped is set when the newest bar was already applied by an earlier step.
	Skipped       bool
	Orders        []types.Order
	Fills         []types.Fill
	Trades        []types.Trade
	Opened        []types.Position
	Rejections    []risk.Rejection
	FailedOrders  int
	BreakerActive bool
	Capital       float64
	Equity        float64
}

// LiveEngine applies the newest closed bar to a persisted risk state and
// routes the resulting decisions to an execution gateway.
type LiveEngine interface {
	// Initialize parses the YAML engine configuration.
	Initialize(config string) error

	// SetGateway configures where orders are sent.
	SetGateway(gateway trading.Gateway) error

	// SetSnapshotStore configures where the risk state is persisted between steps.
	SetSnapshotStore(store risk.SnapshotStore) error

	// SetJournal configures an optional order and fill journal.
	SetJournal(journal Journal) error

	// SetMetrics configures optional Prometheus collectors.
	SetMetrics(m *metrics.Metrics) error

	// Step applies the last bar of bars. Earlier bars are history for indicators,
	// signals and stop-loss models.
	Step(ctx context.Context, bars []types.Bar, callbacks LiveCallbacks) (StepResult, error)

	// GetConfigSchema returns the JSON schema for engine configuration.
	GetConfigSchema() (string, error)
}

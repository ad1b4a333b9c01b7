package trading

import (
	"context"

	"github.com/rxtech-lab/argo-ladder/internal/types"
)

// Gateway executes the market orders the live engine derives from risk manager decisions.
type Gateway interface {
	// PlaceOrder submits order and blocks until the venue reports an execution.
	// A rejected order is reported through Fill.Status, not through the error.
	PlaceOrder(ctx context.Context, order types.Order) (types.Fill, error)
}

// BarFeed supplies closed OHLCV bars for a symbol, oldest first.
type BarFeed interface {
	LatestBars(ctx context.Context, symbol string, interval string, limit int) ([]types.Bar, error)
}

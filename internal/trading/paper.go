package trading

import (
	"context"
	"fmt"
	"sync"

	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

// PaperGateway fills every order immediately at its reference price, adjusted by slippage.
type PaperGateway struct {
	mu       sync.Mutex
	fees     commission_fee.CommissionFee
	slippage float64
	cash     float64
	seq      int64
	fills    []types.Fill
}

// NewPaperGateway creates a paper gateway. slippage is a fraction of price applied against the order side.
func NewPaperGateway(fees commission_fee.CommissionFee, slippage float64, cash float64) *PaperGateway {
	if fees == nil {
		fees = commission_fee.NewZeroCommissionFee()
	}

	return &PaperGateway{
		fees:     fees,
		slippage: slippage,
		cash:     cash,
	}
}

func (p *PaperGateway) PlaceOrder(ctx context.Context, order types.Order) (types.Fill, error) {
	if err := ctx.Err(); err != nil {
		return types.Fill{}, errors.Wrap(errors.ErrCodeOrderFailed, "order cancelled", err)
	}

	if err := order.Validate(); err != nil {
		return types.Fill{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price := order.Price
	if order.Side == types.PurchaseTypeBuy {
		price *= 1 + p.slippage
	} else {
		price *= 1 - p.slippage
	}

	fee := p.fees.Calculate(order.Quantity, price)
	p.seq++

	fill := types.Fill{
		OrderID:         order.ID,
		ExchangeOrderID: fmt.Sprintf("paper-%d", p.seq),
		Symbol:          order.Symbol,
		Side:            order.Side,
		Quantity:        order.Quantity,
		Price:           price,
		Fee:             fee,
		Status:          types.OrderStatusFilled,
		Timestamp:       order.Timestamp,
	}

	if order.Side == types.PurchaseTypeBuy {
		p.cash -= order.Quantity*price + fee
	} else {
		p.cash += order.Quantity*price - fee
	}

	p.fills = append(p.fills, fill)

	return fill, nil
}

// Cash returns the paper cash balance after all fills so far.
func (p *PaperGateway) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cash
}

// Fills returns a copy of every fill produced so far.
func (p *PaperGateway) Fills() []types.Fill {
	p.mu.Lock()
	defer p.mu.Unlock()

	fills := make([]types.Fill, len(p.fills))
	copy(fills, p.fills)

	return fills
}

package trading

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PaperGatewayTestSuite struct {
	suite.Suite
}

func TestPaperGatewaySuite(t *testing.T) {
	suite.Run(t, new(PaperGatewayTestSuite))
}

func newOrder(side types.PurchaseType, intent types.OrderIntent, qty, price float64) types.Order {
	return types.Order{
		ID:        uuid.New().String(),
		Symbol:    "BTCUSDT",
		Side:      side,
		Intent:    intent,
		Quantity:  qty,
		Price:     price,
		Reason:    "test",
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *PaperGatewayTestSuite) TestPlaceOrder() {
	tests := []struct {
		name          string
		side          types.PurchaseType
		slippage      float64
		expectedPrice float64
		expectedCash  float64
	}{
		{
			name:          "buy without slippage",
			side:          types.PurchaseTypeBuy,
			expectedPrice: 100,
			expectedCash:  1000 - 200 - 0.2,
		},
		{
			name:          "buy with slippage pays more",
			side:          types.PurchaseTypeBuy,
			slippage:      0.01,
			expectedPrice: 101,
			expectedCash:  1000 - 202 - 0.202,
		},
		{
			name:          "sell with slippage receives less",
			side:          types.PurchaseTypeSell,
			slippage:      0.01,
			expectedPrice: 99,
			expectedCash:  1000 + 198 - 0.198,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			gateway := NewPaperGateway(commission_fee.NewPercentageCommissionFee(0.001), tc.slippage, 1000)
			order := newOrder(tc.side, types.OrderIntentOpen, 2, 100)

			fill, err := gateway.PlaceOrder(context.Background(), order)
			suite.Require().NoError(err)

			suite.Equal(order.ID, fill.OrderID)
			suite.Equal("paper-1", fill.ExchangeOrderID)
			suite.Equal(types.OrderStatusFilled, fill.Status)
			suite.Equal(tc.side, fill.Side)
			suite.Equal(2.0, fill.Quantity)
			suite.InDelta(tc.expectedPrice, fill.Price, 1e-9)
			suite.InDelta(tc.expectedPrice*2*0.001, fill.Fee, 1e-9)
			suite.InDelta(tc.expectedCash, gateway.Cash(), 1e-9)
			suite.Len(gateway.Fills(), 1)
		})
	}
}

func (suite *PaperGatewayTestSuite) TestSequentialIDs() {
	gateway := NewPaperGateway(nil, 0, 0)

	for i := 0; i < 3; i++ {
		_, err := gateway.PlaceOrder(context.Background(), newOrder(types.PurchaseTypeBuy, types.OrderIntentOpen, 1, 10))
		suite.Require().NoError(err)
	}

	fills := gateway.Fills()
	suite.Require().Len(fills, 3)
	suite.Equal("paper-3", fills[2].ExchangeOrderID)
	suite.Equal(0.0, fills[0].Fee)
}

func (suite *PaperGatewayTestSuite) TestInvalidOrder() {
	gateway := NewPaperGateway(nil, 0, 0)
	order := newOrder(types.PurchaseTypeBuy, types.OrderIntentOpen, 0, 10)

	_, err := gateway.PlaceOrder(context.Background(), order)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	suite.Empty(gateway.Fills())
}

func (suite *PaperGatewayTestSuite) TestCancelledContext() {
	gateway := NewPaperGateway(nil, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.PlaceOrder(ctx, newOrder(types.PurchaseTypeSell, types.OrderIntentClose, 1, 10))
	suite.True(errors.HasCode(err, errors.ErrCodeOrderFailed))
}

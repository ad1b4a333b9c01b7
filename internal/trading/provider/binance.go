package tradingprovider

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-ladder/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-ladder/internal/logger"
	"github.com/rxtech-lab/argo-ladder/internal/types"
	"github.com/rxtech-lab/argo-ladder/internal/utils"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
	"go.uber.org/zap"
)

const (
	// BinanceDecimalPrecision is the fallback quantity precision.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC).
	BinanceDecimalPrecision = 8

	// binanceTakerRate is the spot taker fee used when sizing buys against the free balance.
	binanceTakerRate = 0.001
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// KlinesService interface for fetching candlesticks.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	Limit(limit int) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewKlinesService() KlinesService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// newBinanceClient builds the SDK client. BaseURL takes precedence over UseTestnet.
func newBinanceClient(config BinanceProviderConfig) BinanceClient {
	binance.UseTestnet = config.UseTestnet

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &realBinanceClient{client: client}
}

// BinanceGateway places spot market orders on Binance.
type BinanceGateway struct {
	client           BinanceClient
	quoteAsset       string
	decimalPrecision int
	fees             commission_fee.CommissionFee
	log              *logger.Logger
}

// NewBinanceGateway creates a gateway talking to Binance (or its testnet) with config.
func NewBinanceGateway(config BinanceProviderConfig, log *logger.Logger) (*BinanceGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return newBinanceGatewayWithClient(newBinanceClient(config), config, log), nil
}

func newBinanceGatewayWithClient(client BinanceClient, config BinanceProviderConfig, log *logger.Logger) *BinanceGateway {
	precision := config.DecimalPrecision
	if precision <= 0 {
		precision = BinanceDecimalPrecision
	}

	quote := config.QuoteAsset
	if quote == "" {
		quote = DefaultQuoteAsset
	}

	return &BinanceGateway{
		client:           client,
		quoteAsset:       quote,
		decimalPrecision: precision,
		fees:             commission_fee.NewPercentageCommissionFee(binanceTakerRate),
		log:              log.Named("binance"),
	}
}

// PlaceOrder sends order as a MARKET order. Opening buys are clamped to what the
// free quote balance can pay for.
func (b *BinanceGateway) PlaceOrder(ctx context.Context, order types.Order) (types.Fill, error) {
	if err := order.Validate(); err != nil {
		return types.Fill{}, err
	}

	var side binance.SideType

	switch order.Side {
	case types.PurchaseTypeBuy:
		side = binance.SideTypeBuy
	case types.PurchaseTypeSell:
		side = binance.SideTypeSell
	default:
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported order side: %s", order.Side)
	}

	quantity := utils.RoundToDecimalPrecision(order.Quantity, b.decimalPrecision)

	if order.Side == types.PurchaseTypeBuy && order.Intent == types.OrderIntentOpen {
		free, err := b.freeBalance(ctx, b.quoteAsset)
		if err != nil {
			return types.Fill{}, err
		}

		clamped := utils.ClampQuantity(quantity, free, order.Price, b.fees, b.decimalPrecision)
		if clamped < quantity {
			b.log.Warn("buy quantity clamped to free balance",
				zap.String("order_id", order.ID),
				zap.Float64("requested", quantity),
				zap.Float64("clamped", clamped),
				zap.Float64("free", free),
			)
		}

		quantity = clamped
	}

	if quantity <= 0 {
		return types.Fill{}, errors.Newf(errors.ErrCodeOrderFailed,
			"order quantity %.8f is too small after rounding to %d decimal places",
			order.Quantity, b.decimalPrecision)
	}

	resp, err := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(strconv.FormatFloat(quantity, 'f', b.decimalPrecision, 64)).
		NewClientOrderID(order.ID).
		Do(ctx)
	if err != nil {
		return types.Fill{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	fill := convertOrderResponseToFill(resp, order)

	b.log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("exchange_order_id", fill.ExchangeOrderID),
		zap.String("status", string(fill.Status)),
		zap.Float64("quantity", fill.Quantity),
		zap.Float64("price", fill.Price),
	)

	return fill, nil
}

// freeBalance returns the free amount of asset on the account.
func (b *BinanceGateway) freeBalance(ctx context.Context, asset string) (float64, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeOrderFailed, "failed to get account from Binance", err)
	}

	for _, balance := range account.Balances {
		if balance.Asset == asset {
			free, err := strconv.ParseFloat(balance.Free, 64)
			if err != nil {
				return 0, errors.Wrapf(errors.ErrCodeOrderFailed, err, "invalid %s balance", asset)
			}

			return free, nil
		}
	}

	return 0, nil
}

func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeFilled, binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeRejected, binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusFailed
	}
}

// convertOrderResponseToFill averages the executed price from the quote quantity.
func convertOrderResponseToFill(resp *binance.CreateOrderResponse, order types.Order) types.Fill {
	executed, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	quote, _ := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64)

	price := order.Price
	if executed > 0 && quote > 0 {
		price = quote / executed
	}

	var fee float64

	for _, f := range resp.Fills {
		commission, _ := strconv.ParseFloat(f.Commission, 64)
		fee += commission
	}

	timestamp := order.Timestamp
	if resp.TransactTime > 0 {
		timestamp = time.UnixMilli(resp.TransactTime).UTC()
	}

	return types.Fill{
		OrderID:         order.ID,
		ExchangeOrderID: strconv.FormatInt(resp.OrderID, 10),
		Symbol:          order.Symbol,
		Side:            order.Side,
		Quantity:        executed,
		Price:           price,
		Fee:             fee,
		Status:          mapBinanceOrderStatus(resp.Status),
		Timestamp:       timestamp,
	}
}

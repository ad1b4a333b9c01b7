package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ladder/pkg/errors"
)

type PurchaseType string

type OrderStatus string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusFailed   OrderStatus = "FAILED"
)

// OrderIntent says whether an order opens or reduces a ladder position.
type OrderIntent string

const (
	OrderIntentOpen  OrderIntent = "OPEN"
	OrderIntentClose OrderIntent = "CLOSE"
)

// Order is a market order derived from a risk manager decision.
type Order struct {
	ID         string       `yaml:"id" json:"id" csv:"id" validate:"required,uuid"`
	PositionID int          `yaml:"position_id" json:"position_id" csv:"position_id"`
	Symbol     string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side       PurchaseType `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	Intent     OrderIntent  `yaml:"intent" json:"intent" csv:"intent" validate:"required,oneof=OPEN CLOSE"`
	Quantity   float64      `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,gt=0"`
	// Price is the reference price the decision was made at.
	Price     float64   `yaml:"price" json:"price" csv:"price" validate:"required,gt=0"`
	Reason    string    `yaml:"reason" json:"reason" csv:"reason"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp" validate:"required"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order", err)
	}

	return nil
}

// Fill is the execution report returned by a gateway.
type Fill struct {
	OrderID         string       `yaml:"order_id" json:"order_id" csv:"order_id"`
	ExchangeOrderID string       `yaml:"exchange_order_id" json:"exchange_order_id" csv:"exchange_order_id"`
	Symbol          string       `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side            PurchaseType `yaml:"side" json:"side" csv:"side"`
	Quantity        float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price           float64      `yaml:"price" json:"price" csv:"price"`
	Fee             float64      `yaml:"fee" json:"fee" csv:"fee"`
	Status          OrderStatus  `yaml:"status" json:"status" csv:"status"`
	Timestamp       time.Time    `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
}

// EntrySide maps a position side to the order side that opens it.
func EntrySide(side Side) PurchaseType {
	if side == SideShort {
		return PurchaseTypeSell
	}

	return PurchaseTypeBuy
}

// ExitSide maps a position side to the order side that reduces it.
func ExitSide(side Side) PurchaseType {
	if side == SideShort {
		return PurchaseTypeBuy
	}

	return PurchaseTypeSell
}

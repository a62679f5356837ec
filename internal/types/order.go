package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/quantfold/backtest/pkg/errors"
)

type OrderSide string

type OrderType string

type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderSpec describes an order to be placed with the portfolio.
type OrderSpec struct {
	Symbol   string    `yaml:"symbol" json:"symbol" validate:"required"`
	Side     OrderSide `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type     OrderType `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT STOP"`
	Quantity float64   `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	// LimitPrice and StopPrice are recorded on the order but the engine only
	// executes market orders.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
	StopPrice  optional.Option[float64] `yaml:"stop_price" json:"stop_price"`
	Reason     string                   `yaml:"reason" json:"reason"`
}

// Validate validates the OrderSpec struct.
func (s *OrderSpec) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order spec", err)
	}

	return nil
}

// Order is the ledger record of a placed order. IDs are assigned by the
// owning portfolio and are unique and monotonically increasing within it.
type Order struct {
	ID       int64     `yaml:"id" json:"id" csv:"id"`
	Symbol   string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side     OrderSide `yaml:"side" json:"side" csv:"side"`
	Type     OrderType `yaml:"type" json:"type" csv:"type"`
	Quantity float64   `yaml:"quantity" json:"quantity" csv:"quantity"`

	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price" csv:"-"`
	StopPrice  optional.Option[float64] `yaml:"stop_price" json:"stop_price" csv:"-"`

	// Status transitions PENDING -> FILLED | REJECTED | CANCELLED exactly once.
	Status    OrderStatus `yaml:"status" json:"status" csv:"status"`
	Reason    string      `yaml:"reason" json:"reason" csv:"reason"`
	CreatedAt time.Time   `yaml:"created_at" json:"created_at" csv:"created_at"`

	FilledAt       optional.Option[time.Time] `yaml:"filled_at" json:"filled_at" csv:"-"`
	FilledPrice    float64                    `yaml:"filled_price" json:"filled_price" csv:"filled_price"`
	FilledQuantity float64                    `yaml:"filled_quantity" json:"filled_quantity" csv:"filled_quantity"`
}

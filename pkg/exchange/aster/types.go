package aster

import (
	"fmt"

	"agent-core/pkg/exchange/common"
)

// AccountInfo is the parsed account snapshot.
type AccountInfo struct {
	Equity           float64 // margin balance: wallet + unrealized
	WalletBalance    float64
	AvailableBalance float64
	UnrealizedPnL    float64
	ROI              float64 // unrealized PnL over wallet balance
	UpdateTime       int64
}

// Position is one open position as reported by the venue. Quantity is
// always positive; Side carries the direction.
type Position struct {
	Symbol        string
	Side          common.Side
	Quantity      float64
	EntryPrice    float64
	UnrealizedPnL float64
	Leverage      float64
}

// OrderParams captures an order intent.
type OrderParams struct {
	Symbol        string
	Side          common.Side
	Type          common.OrderType
	Quantity      float64
	Price         float64 // LIMIT only
	StopPrice     float64 // STOP_MARKET / TAKE_PROFIT_MARKET
	TimeInForce   common.TimeInForce
	ReduceOnly    bool
	ClosePosition bool
	ClientOrderID string
}

// OrderAck is the immediate response to order placement. Fill details are
// provisional until reconciled with GetOrder.
type OrderAck struct {
	Symbol        string
	OrderID       int64
	ClientOrderID string
	Status        string
}

// Order is the authoritative order state from the order-status endpoint.
type Order struct {
	Symbol      string
	OrderID     int64
	Status      string
	Side        string
	Type        string
	Price       float64
	AvgPrice    float64
	ExecutedQty float64
	CumQuote    float64
	UpdateTime  int64
}

// APIError is a non-2xx response from the venue.
type APIError struct {
	Status  int
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aster api error (http %d, code %d): %s", e.Status, e.Code, e.Message)
}

// ParseError marks a malformed numeric field in a venue response.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("aster: malformed decimal in field %q: %q", e.Field, e.Value)
}

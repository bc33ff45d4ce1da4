// Package common holds the venue-independent exchange primitives: order
// enums, server-time synchronization, and client-side request pacing.
package common

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType covers the order types the engine places.
type OrderType string

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeLimit            OrderType = "LIMIT"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// TimeInForce captures TIF semantics for limit orders.
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
)

// TradeState is the engine's normalized view of an order's lifecycle, as
// recorded in telemetry.
type TradeState string

const (
	TradeStateOpen      TradeState = "open"
	TradeStateClosed    TradeState = "closed"
	TradeStateCancelled TradeState = "cancelled"
	TradeStateError     TradeState = "error"
)

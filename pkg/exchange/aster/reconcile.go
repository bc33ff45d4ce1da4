package aster

import "agent-core/pkg/exchange/common"

// ExecutedPrice derives the true fill price of an order: cumulative quote
// spent over executed quantity. With no fills it falls back to the order's
// limit price, then to the caller's intended price.
func ExecutedPrice(o *Order, intended float64) float64 {
	if o == nil {
		return intended
	}
	if o.ExecutedQty > 0 && o.CumQuote > 0 {
		return o.CumQuote / o.ExecutedQty
	}
	if o.Price > 0 {
		return o.Price
	}
	return intended
}

// MapStatus normalizes a venue order status into the engine's trade state.
func MapStatus(status string) common.TradeState {
	switch status {
	case "FILLED":
		return common.TradeStateClosed
	case "PARTIALLY_FILLED":
		return common.TradeStateOpen
	case "CANCELED":
		return common.TradeStateCancelled
	case "REJECTED":
		return common.TradeStateError
	default:
		return common.TradeStateOpen
	}
}

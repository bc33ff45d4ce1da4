package indicators

import "math"

// Baseline exit distances before volatility widening.
const (
	baseTakeProfitPct = 0.02
	baseStopLossPct   = 0.01
	volTakeProfitMult = 1.5
	volStopLossMult   = 1.0
)

// AdaptiveTargets derives take-profit and stop-loss levels for a position at
// price, widening both proportionally with volatility. For side "BUY" the
// result satisfies takeProfit > price > stopLoss; for side "SELL" it is
// mirrored (stopLoss > price > takeProfit).
func AdaptiveTargets(price, volatility float64, side string) (takeProfit, stopLoss float64) {
	if volatility < 0 || math.IsNaN(volatility) || math.IsInf(volatility, 0) {
		volatility = 0
	}
	tpPct := baseTakeProfitPct + volatility*volTakeProfitMult
	slPct := baseStopLossPct + volatility*volStopLossMult

	if side == "SELL" {
		return price * (1 - tpPct), price * (1 + slPct)
	}
	return price * (1 + tpPct), price * (1 - slPct)
}

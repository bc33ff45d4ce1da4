package strategy

import (
	"fmt"
	"time"

	"agent-core/internal/indicators"
)

// meanReversion buys RSI-oversold dips near support and scales out into
// strength. It never opens shorts; SELL signals only reduce an existing
// position.
type meanReversion struct {
	id     string
	symbol string
	buf    *PriceBuffer
	thr    *throttle

	rsiPeriod    int
	oversold     float64
	overbought   float64
	scaleOutGain float64
	minHistory   int
}

func newMeanReversion(id, symbol string, params map[string]float64) *meanReversion {
	rsiPeriod := int(param(params, "rsi_period", 14))
	return &meanReversion{
		id:           id,
		symbol:       symbol,
		buf:          NewPriceBuffer(int(param(params, "history", 50))),
		thr:          newThrottle(5*time.Minute, 6, 20),
		rsiPeriod:    rsiPeriod,
		oversold:     param(params, "rsi_oversold", 30),
		overbought:   param(params, "rsi_overbought", 70),
		scaleOutGain: param(params, "scale_out_gain_pct", 3),
		minHistory:   rsiPeriod + 1,
	}
}

func (s *meanReversion) Name() string { return KindMeanReversion }

func (s *meanReversion) GenerateSignal(price float64, account AccountState, positions []Position) Signal {
	if !isFinite(price) || !isFinite(account.Equity) {
		return hold(price, "non-finite price or equity")
	}
	s.buf.Add(price)

	if reason, stop := s.thr.blocked(); stop {
		return hold(price, reason)
	}
	if s.buf.Len() < s.minHistory {
		return hold(price, fmt.Sprintf("warming up: %d/%d samples", s.buf.Len(), s.minHistory))
	}

	prices := s.buf.Prices()
	rsi := indicators.RSI(prices, s.rsiPeriod)

	pos, open := findPosition(positions, s.symbol)
	if !open {
		if rsi < s.oversold {
			s.thr.markTraded()
			return Signal{
				Action:     ActionBuy,
				Price:      price,
				Confidence: (s.oversold - rsi) / s.oversold,
				Reason:     fmt.Sprintf("RSI %.1f below oversold %.1f", rsi, s.oversold),
			}
		}
		if support := indicators.Support(prices); support > 0 && price <= support*1.005 {
			s.thr.markTraded()
			return Signal{
				Action:     ActionBuy,
				Price:      price,
				Confidence: 0.4,
				Reason:     fmt.Sprintf("price %.4f at support %.4f", price, support),
			}
		}
		return hold(price, fmt.Sprintf("RSI %.1f neutral, no entry", rsi))
	}

	gain := gainPercent(pos, price)
	if gain >= s.scaleOutGain || rsi > s.overbought {
		s.thr.markTraded()
		return Signal{
			Action:     reduceAction(pos),
			Quantity:   pos.Quantity / 2,
			Price:      price,
			Confidence: 0.6,
			Reason:     fmt.Sprintf("scale out: gain %.2f%%, RSI %.1f", gain, rsi),
		}
	}
	return hold(price, fmt.Sprintf("holding: gain %.2f%%, RSI %.1f", gain, rsi))
}

// reduceAction is the side that shrinks the position.
func reduceAction(p Position) Action {
	if p.Side == "SELL" {
		return ActionBuy
	}
	return ActionSell
}

package strategy

import (
	"fmt"
	"time"
)

// gridDCA accumulates a long position: an immediate entry once history is
// available, further buys each time the price steps a fixed percentage
// below the average entry, and a partial exit once the position shows a
// fixed gain.
type gridDCA struct {
	id     string
	symbol string
	buf    *PriceBuffer
	thr    *throttle

	gridStepPct float64
	takeGainPct float64
	minHistory  int
}

func newGridDCA(id, symbol string, params map[string]float64) *gridDCA {
	return &gridDCA{
		id:          id,
		symbol:      symbol,
		buf:         NewPriceBuffer(int(param(params, "history", 30))),
		thr:         newThrottle(10*time.Minute, 4, 12),
		gridStepPct: param(params, "grid_step_pct", 2),
		takeGainPct: param(params, "take_gain_pct", 4),
		minHistory:  int(param(params, "min_history", 5)),
	}
}

func (s *gridDCA) Name() string { return KindGridDCA }

func (s *gridDCA) GenerateSignal(price float64, account AccountState, positions []Position) Signal {
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

	pos, open := findPosition(positions, s.symbol)
	if !open {
		s.thr.markTraded()
		return Signal{
			Action:     ActionBuy,
			Price:      price,
			Confidence: 0.5,
			Reason:     "initial accumulation entry",
		}
	}

	gain := gainPercent(pos, price)
	if gain >= s.takeGainPct {
		s.thr.markTraded()
		return Signal{
			Action:     reduceAction(pos),
			Quantity:   pos.Quantity / 2,
			Price:      price,
			Confidence: 0.6,
			Reason:     fmt.Sprintf("scale out at +%.2f%%", gain),
		}
	}

	stepDown := pos.EntryPrice * (1 - s.gridStepPct/100)
	if pos.Side == "BUY" && price <= stepDown {
		s.thr.markTraded()
		return Signal{
			Action:     ActionBuy,
			Price:      price,
			Confidence: 0.5,
			Reason:     fmt.Sprintf("grid add: price %.4f is %.1f%% below entry %.4f", price, s.gridStepPct, pos.EntryPrice),
		}
	}
	return hold(price, fmt.Sprintf("within grid: gain %.2f%%", gain))
}

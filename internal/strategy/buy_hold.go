package strategy

import (
	"fmt"
	"time"
)

// buyHold establishes a single long position once enough history exists
// and then does nothing. Exits are left to protective orders.
type buyHold struct {
	id         string
	symbol     string
	buf        *PriceBuffer
	thr        *throttle
	minHistory int
}

func newBuyHold(id, symbol string, params map[string]float64) *buyHold {
	return &buyHold{
		id:         id,
		symbol:     symbol,
		buf:        NewPriceBuffer(int(param(params, "history", 20))),
		thr:        newThrottle(time.Hour, 1, 2),
		minHistory: int(param(params, "min_history", 3)),
	}
}

func (s *buyHold) Name() string { return KindBuyHold }

func (s *buyHold) GenerateSignal(price float64, account AccountState, positions []Position) Signal {
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

	if _, open := findPosition(positions, s.symbol); !open {
		s.thr.markTraded()
		return Signal{
			Action:     ActionBuy,
			Price:      price,
			Confidence: 0.5,
			Reason:     "establish long-term holding",
		}
	}
	return hold(price, "holding")
}

// Package strategy holds the signal-generation variants. A strategy sees
// the current price and the exchange's authoritative account and position
// state, and answers with a single trade signal. HOLD is the default
// answer, never an error.
package strategy

import (
	"fmt"
	"math"
	"time"
)

// Action is the verb of a trade signal.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is a strategy's answer for one tick. Quantity zero on an entry
// means "let the risk manager size it". TakeProfit/StopLoss zero means
// "derive adaptive targets from volatility".
type Signal struct {
	Action     Action
	Quantity   float64
	Price      float64
	TakeProfit float64
	StopLoss   float64
	Confidence float64
	Reason     string
}

// AccountState is the slice of account info a strategy may consult.
type AccountState struct {
	Equity           float64
	AvailableBalance float64
}

// Position is an open position as reported by the exchange. Quantity is
// always positive; Side carries the direction.
type Position struct {
	Symbol        string
	Side          string
	Quantity      float64
	EntryPrice    float64
	UnrealizedPnL float64
	Leverage      float64
}

// Strategy generates one signal per tick. Implementations own their price
// history and trade throttles; they never call the exchange.
type Strategy interface {
	Name() string
	GenerateSignal(price float64, account AccountState, positions []Position) Signal
}

// Known strategy identifiers.
const (
	KindMeanReversion = "mean_reversion"
	KindScored        = "scored"
	KindGridDCA       = "grid_dca"
	KindBuyHold       = "buy_hold"
)

// New constructs a variant by identifier. Params override the variant's
// built-in thresholds; unknown keys are ignored.
func New(id, kind, symbol string, params map[string]float64) (Strategy, error) {
	switch kind {
	case KindMeanReversion:
		return newMeanReversion(id, symbol, params), nil
	case KindScored:
		return newScored(id, symbol, params), nil
	case KindGridDCA:
		return newGridDCA(id, symbol, params), nil
	case KindBuyHold:
		return newBuyHold(id, symbol, params), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}

// param reads a threshold override, falling back to the variant default.
func param(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok && isFinite(v) {
		return v
	}
	return def
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// findPosition returns the open position for the symbol, if any. The
// exchange's fetch is the sole source of truth; variants never cache
// position state across ticks.
func findPosition(positions []Position, symbol string) (Position, bool) {
	for _, p := range positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}

// gainPercent is the unrealized gain of a position at the current price,
// as a percentage of the entry price. Positive means profitable for the
// position's side.
func gainPercent(p Position, price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	gain := (price - p.EntryPrice) / p.EntryPrice * 100
	if p.Side == "SELL" {
		gain = -gain
	}
	return gain
}

// hold builds the default signal.
func hold(price float64, reason string) Signal {
	return Signal{Action: ActionHold, Price: price, Reason: reason}
}

// throttle enforces the per-strategy minimum inter-trade interval and the
// hourly and daily caps. It is checked before any indicator work.
type throttle struct {
	minInterval time.Duration
	hourlyCap   int
	dailyCap    int

	lastTrade  time.Time
	tradeTimes []time.Time
	now        func() time.Time
}

func newThrottle(minInterval time.Duration, hourlyCap, dailyCap int) *throttle {
	return &throttle{
		minInterval: minInterval,
		hourlyCap:   hourlyCap,
		dailyCap:    dailyCap,
		now:         time.Now,
	}
}

// blocked reports whether trading is currently throttled, with a reason.
func (t *throttle) blocked() (string, bool) {
	now := t.now()
	if !t.lastTrade.IsZero() && now.Sub(t.lastTrade) < t.minInterval {
		return fmt.Sprintf("min trade interval %s not elapsed", t.minInterval), true
	}

	hourly, daily := 0, 0
	for _, ts := range t.tradeTimes {
		age := now.Sub(ts)
		if age < time.Hour {
			hourly++
		}
		if age < 24*time.Hour {
			daily++
		}
	}
	if t.hourlyCap > 0 && hourly >= t.hourlyCap {
		return fmt.Sprintf("hourly trade cap %d reached", t.hourlyCap), true
	}
	if t.dailyCap > 0 && daily >= t.dailyCap {
		return fmt.Sprintf("daily trade cap %d reached", t.dailyCap), true
	}
	return "", false
}

// markTraded records a non-HOLD signal and prunes entries older than a day.
func (t *throttle) markTraded() {
	now := t.now()
	t.lastTrade = now

	kept := t.tradeTimes[:0]
	for _, ts := range t.tradeTimes {
		if now.Sub(ts) < 24*time.Hour {
			kept = append(kept, ts)
		}
	}
	t.tradeTimes = append(kept, now)
}

// Package risk implements the per-agent risk controls: position sizing,
// pre-trade assessment, the drawdown circuit breaker, and daily trade
// accounting. A Manager is owned by exactly one agent runner and performs no
// I/O; well-formed numeric input never produces an error.
package risk

import (
	"fmt"
	"math"
	"time"
)

// Manager tracks one agent's risk state across ticks.
type Manager struct {
	cfg Config

	peakEquity  float64
	maxDrawdown float64

	dailyTrades  int
	dailyResetAt time.Time

	outcomes []TradeOutcome

	now func() time.Time
}

// NewManager creates a risk manager with the given thresholds.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		cfg: cfg,
		now: time.Now,
	}
	m.dailyResetAt = m.now()
	return m
}

// Config returns the thresholds the manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// PeakEquity returns the highest equity observed so far.
func (m *Manager) PeakEquity() float64 {
	return m.peakEquity
}

// CalculatePositionSize converts equity into a whole number of base-asset
// units. The base allocation is MaxPositionSizePercent of equity, scaled
// down as volatility rises (floored at half the base) and divided by
// leverage. When the asset is expensive enough that the allocation floors to
// zero units, the allocation may be raised opportunistically to 25% of
// equity to secure one unit, provided equity covers at least twice the unit
// price. Zero or negative equity sizes to zero by definition.
func (m *Manager) CalculatePositionSize(equity, volatility, leverage, price float64) int {
	if equity <= 0 || price <= 0 || !isFinite(equity) || !isFinite(price) {
		return 0
	}
	if !isFinite(volatility) || volatility < 0 {
		volatility = 0
	}

	alloc := equity * m.cfg.MaxPositionSizePercent / 100

	// Volatility scaling: 1.0 at zero volatility down to 0.5 at 5%+.
	volFactor := 1 - math.Min(volatility*10, 0.5)
	alloc *= volFactor

	if leverage > 1 {
		alloc /= leverage
	}

	qty := int(math.Floor(alloc / price))
	if qty == 0 && equity >= 2*price && equity*0.25 >= price {
		qty = 1
	}
	if qty < 0 {
		qty = 0
	}
	return qty
}

// AssessPositionRisk computes loss exposure and the risk:reward profile of an
// intended position, and recommends REDUCE when any limit is breached. The
// returned targets are slippage-adjusted: take profit tightened toward entry
// and stop loss widened away from it by EntryPrice*SlippagePercent/100.
func (m *Manager) AssessPositionRisk(p PositionParams) PositionRisk {
	stopDistance := math.Abs(p.EntryPrice - p.StopLossPrice)
	profitDistance := math.Abs(p.TakeProfitPrice - p.EntryPrice)

	res := PositionRisk{
		MaxLoss: stopDistance * p.Quantity,
		Action:  p.Side,
	}
	if p.Equity > 0 {
		res.RiskPercent = res.MaxLoss / p.Equity * 100
	}
	if stopDistance > 0 {
		res.RiskReward = profitDistance / stopDistance
	}

	slip := p.EntryPrice * m.cfg.SlippagePercent / 100
	if p.Side == ActionSell {
		res.AdjustedTakeProfit = p.TakeProfitPrice + slip
		res.AdjustedStopLoss = p.StopLossPrice + slip
	} else {
		res.AdjustedTakeProfit = p.TakeProfitPrice - slip
		res.AdjustedStopLoss = p.StopLossPrice - slip
	}

	switch {
	case res.RiskPercent > m.cfg.MaxRiskPerTradePercent:
		res.Action = ActionReduce
		res.Reason = fmt.Sprintf("risk %.2f%% exceeds %.2f%% cap", res.RiskPercent, m.cfg.MaxRiskPerTradePercent)
	case res.RiskReward < m.cfg.MinRiskReward:
		res.Action = ActionReduce
		res.Reason = fmt.Sprintf("risk:reward %.2f below minimum %.2f", res.RiskReward, m.cfg.MinRiskReward)
	case p.Volatility > maxAssessVolatility:
		res.Action = ActionReduce
		res.Reason = fmt.Sprintf("volatility %.2f%% above %.0f%% ceiling", p.Volatility*100, maxAssessVolatility*100)
	case p.Leverage > maxAssessLeverage:
		res.Action = ActionReduce
		res.Reason = fmt.Sprintf("leverage %.1fx above %.0fx ceiling", p.Leverage, maxAssessLeverage)
	}

	return res
}

// CheckCircuitBreaker updates peak equity and decides whether trading must
// halt. It trips when drawdown from peak exceeds MaxDrawdownPercent, or when
// total loss from starting equity exceeds 50%, whichever comes first. Both
// comparisons are strict.
func (m *Manager) CheckCircuitBreaker(equity, startingEquity float64) BreakerResult {
	if equity > m.peakEquity {
		m.peakEquity = equity
	}

	res := BreakerResult{}
	if m.peakEquity > 0 {
		res.DrawdownPercent = (m.peakEquity - equity) / m.peakEquity * 100
	}
	if res.DrawdownPercent > m.maxDrawdown {
		m.maxDrawdown = res.DrawdownPercent
	}

	if res.DrawdownPercent > m.cfg.MaxDrawdownPercent {
		res.ShouldStop = true
		res.Reason = fmt.Sprintf("drawdown %.2f%% exceeds max %.2f%%", res.DrawdownPercent, m.cfg.MaxDrawdownPercent)
		return res
	}

	if startingEquity > 0 {
		totalLoss := (startingEquity - equity) / startingEquity * 100
		if totalLoss > 50 {
			res.ShouldStop = true
			res.Reason = fmt.Sprintf("total loss %.2f%% from starting equity exceeds 50%%", totalLoss)
		}
	}
	return res
}

// CheckDailyTradeLimit enforces MaxDailyTrades with a rolling 24h reset.
func (m *Manager) CheckDailyTradeLimit() LimitResult {
	now := m.now()
	if now.Sub(m.dailyResetAt) >= 24*time.Hour {
		m.dailyTrades = 0
		m.dailyResetAt = now
	}

	remaining := m.cfg.MaxDailyTrades - m.dailyTrades
	if remaining < 0 {
		remaining = 0
	}
	if m.dailyTrades >= m.cfg.MaxDailyTrades {
		return LimitResult{
			CanTrade: false,
			Reason:   fmt.Sprintf("daily trade limit reached: %d/%d", m.dailyTrades, m.cfg.MaxDailyTrades),
		}
	}
	return LimitResult{CanTrade: true, TradesRemaining: remaining}
}

// RecordTrade appends a realized trade outcome (pnl >= 0 counts as a win),
// increments the daily counter, and evicts history beyond the retention cap.
func (m *Manager) RecordTrade(pnl float64) {
	m.dailyTrades++
	m.outcomes = append(m.outcomes, TradeOutcome{
		Win: pnl >= 0,
		PnL: pnl,
		At:  m.now(),
	})
	if len(m.outcomes) > outcomeRetention {
		m.outcomes = m.outcomes[len(m.outcomes)-outcomeRetention:]
	}
}

// RecordEntry counts an opening order against the daily limit without
// polluting the outcome history; its realized result is unknown until the
// position reduces or closes.
func (m *Manager) RecordEntry() {
	m.dailyTrades++
}

// WinRate returns the fraction of retained outcomes that were wins, or the
// neutral 0.5 when no history exists.
func (m *Manager) WinRate() float64 {
	if len(m.outcomes) == 0 {
		return 0.5
	}
	wins := 0
	for _, o := range m.outcomes {
		if o.Win {
			wins++
		}
	}
	return float64(wins) / float64(len(m.outcomes))
}

// IsWinRateAcceptable reports whether trading should continue given recent
// outcomes. The gate only engages once a minimum sample exists.
func (m *Manager) IsWinRateAcceptable() bool {
	if len(m.outcomes) < minWinRateSample {
		return true
	}
	return m.WinRate() >= m.cfg.MinWinRate
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

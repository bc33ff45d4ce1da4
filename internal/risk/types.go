package risk

import "time"

// Recommended actions returned by position assessment.
const (
	ActionBuy    = "BUY"
	ActionSell   = "SELL"
	ActionReduce = "REDUCE"
)

// Assessment trip levels, independent of per-agent configuration.
const (
	maxAssessVolatility = 0.05
	maxAssessLeverage   = 3.0
)

// outcomeRetention bounds the trade history used for win-rate statistics.
const outcomeRetention = 100

// minWinRateSample is how many outcomes must exist before the win-rate gate
// is enforced at all.
const minWinRateSample = 10

// Config defines the static risk thresholds for one agent. Set once at
// construction and never mutated afterwards.
type Config struct {
	MaxDrawdownPercent     float64 `json:"max_drawdown_percent"`
	MaxPositionSizePercent float64 `json:"max_position_size_percent"`
	MaxRiskPerTradePercent float64 `json:"max_risk_per_trade_percent"`
	MaxDailyTrades         int     `json:"max_daily_trades"`
	MinWinRate             float64 `json:"min_win_rate"`
	SlippagePercent        float64 `json:"slippage_percent"`
	MinRiskReward          float64 `json:"min_risk_reward"`
}

// DefaultConfig returns the thresholds used when an agent declares none.
func DefaultConfig() Config {
	return Config{
		MaxDrawdownPercent:     15,
		MaxPositionSizePercent: 10,
		MaxRiskPerTradePercent: 2,
		MaxDailyTrades:         20,
		MinWinRate:             0.4,
		SlippagePercent:        0.1,
		MinRiskReward:          1.5,
	}
}

// PositionParams carries the inputs of a pre-trade risk assessment.
type PositionParams struct {
	Side            string
	EntryPrice      float64
	StopLossPrice   float64
	TakeProfitPrice float64
	Quantity        float64
	Equity          float64
	Leverage        float64
	Volatility      float64
}

// PositionRisk is the immutable result of a risk assessment.
type PositionRisk struct {
	MaxLoss            float64
	RiskPercent        float64
	RiskReward         float64
	Action             string
	Reason             string
	AdjustedTakeProfit float64
	AdjustedStopLoss   float64
}

// BreakerResult reports the circuit-breaker decision for this tick.
type BreakerResult struct {
	ShouldStop      bool
	Reason          string
	DrawdownPercent float64
}

// LimitResult reports the daily trade-limit decision.
type LimitResult struct {
	CanTrade        bool
	Reason          string
	TradesRemaining int
}

// TradeOutcome classifies a realized trade.
type TradeOutcome struct {
	Win bool
	PnL float64
	At  time.Time
}

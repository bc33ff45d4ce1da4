// Package telemetry defines the records the engine emits for external
// observability and the fire-and-forget sink the runtimes write them to.
// The engine never reads these records back.
package telemetry

import "time"

// TradeRecord captures one order attempt, successful or not. Executed
// values come from reconciliation; on reconciliation failure they hold the
// intended values.
type TradeRecord struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Quantity      float64   `json:"quantity"`
	IntendedPrice float64   `json:"intended_price"`
	ExecutedPrice float64   `json:"executed_price"`
	State         string    `json:"state"`
	OrderID       int64     `json:"order_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	At            time.Time `json:"at"`
}

// SignalRecord captures one strategy decision, HOLDs included.
type SignalRecord struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Price      float64   `json:"price"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// AnalysisRecord captures the market view at the top of a tick.
type AnalysisRecord struct {
	ID         string             `json:"id"`
	AgentID    string             `json:"agent_id"`
	Symbol     string             `json:"symbol"`
	Price      float64            `json:"price"`
	Equity     float64            `json:"equity"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	At         time.Time          `json:"at"`
}

// StatusRecord is the per-agent heartbeat written at the end of each tick.
type StatusRecord struct {
	AgentID string    `json:"agent_id"`
	State   string    `json:"state"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

// DecisionRecord explains what the runtime did with a signal: sizing,
// risk verdict, throttles.
type DecisionRecord struct {
	ID      string         `json:"id"`
	AgentID string         `json:"agent_id"`
	Symbol  string         `json:"symbol"`
	Action  string         `json:"action"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

// ExitPlanRecord announces the protective TP/SL attached to a trade.
type ExitPlanRecord struct {
	TradeID    string    `json:"trade_id"`
	AgentID    string    `json:"agent_id"`
	Symbol     string    `json:"symbol"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	At         time.Time `json:"at"`
}

// Agent status states.
const (
	StateRunning = "running"
	StateHalted  = "halted"
	StateError   = "error"
)

package db

import "time"

// TradeRow is one executed (or attempted) order.
type TradeRow struct {
	ID            string
	AgentID       string
	Symbol        string
	Side          string
	Quantity      float64
	IntendedPrice float64
	ExecutedPrice float64
	State         string
	OrderID       int64
	Reason        string
	CreatedAt     time.Time
}

// SignalRow is one strategy decision, including HOLDs.
type SignalRow struct {
	ID         string
	AgentID    string
	Symbol     string
	Action     string
	Price      float64
	Confidence float64
	Reason     string
	CreatedAt  time.Time
}

// AnalysisRow is a per-tick market snapshot. Payload carries the full
// indicator set as JSON.
type AnalysisRow struct {
	ID        string
	AgentID   string
	Symbol    string
	Price     float64
	Equity    float64
	Payload   string
	CreatedAt time.Time
}

// StatusRow is the latest heartbeat per agent. One row per agent.
type StatusRow struct {
	AgentID   string
	State     string
	Detail    string
	UpdatedAt time.Time
}

// DecisionRow explains what the runtime did with a signal. Payload carries
// sizing and risk-assessment details as JSON.
type DecisionRow struct {
	ID        string
	AgentID   string
	Symbol    string
	Action    string
	Payload   string
	CreatedAt time.Time
}

// ExitPlanRow records the protective orders attached to a trade.
type ExitPlanRow struct {
	TradeID    string
	AgentID    string
	Symbol     string
	TakeProfit float64
	StopLoss   float64
	CreatedAt  time.Time
}

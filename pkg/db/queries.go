// Package db stores and serves the engine's telemetry stream: trades,
// signals, analyses, agent statuses, decisions and exit plans.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// Execer is satisfied by both *sql.DB and *sql.Tx so inserts can run
// standalone or inside a batched transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertTrade writes one trade row.
func InsertTrade(ctx context.Context, e Execer, t TradeRow) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO trades (id, agent_id, symbol, side, quantity, intended_price, executed_price, state, order_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.AgentID, t.Symbol, t.Side, t.Quantity, t.IntendedPrice, t.ExecutedPrice, t.State, t.OrderID, t.Reason, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// InsertSignal writes one signal row.
func InsertSignal(ctx context.Context, e Execer, s SignalRow) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO signals (id, agent_id, symbol, action, price, confidence, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.AgentID, s.Symbol, s.Action, s.Price, s.Confidence, s.Reason, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// InsertAnalysis writes one analysis row.
func InsertAnalysis(ctx context.Context, e Execer, a AnalysisRow) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO analyses (id, agent_id, symbol, price, equity, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.AgentID, a.Symbol, a.Price, a.Equity, a.Payload, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// UpsertStatus replaces the agent's heartbeat row.
func UpsertStatus(ctx context.Context, e Execer, s StatusRow) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO statuses (agent_id, state, detail, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			state = excluded.state,
			detail = excluded.detail,
			updated_at = excluded.updated_at
	`, s.AgentID, s.State, s.Detail, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

// InsertDecision writes one decision row.
func InsertDecision(ctx context.Context, e Execer, d DecisionRow) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO decisions (id, agent_id, symbol, action, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.ID, d.AgentID, d.Symbol, d.Action, d.Payload, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// InsertExitPlan writes the protective-order plan for a trade.
func InsertExitPlan(ctx context.Context, e Execer, p ExitPlanRow) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO exit_plans (trade_id, agent_id, symbol, take_profit, stop_loss, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade_id) DO UPDATE SET
			take_profit = excluded.take_profit,
			stop_loss = excluded.stop_loss
	`, p.TradeID, p.AgentID, p.Symbol, p.TakeProfit, p.StopLoss, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exit plan: %w", err)
	}
	return nil
}

// Queries serves the read side for the status API.
type Queries struct {
	db *sql.DB
}

func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// RecentTrades returns an agent's trades, newest first.
func (q *Queries) RecentTrades(ctx context.Context, agentID string, limit int) ([]TradeRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, agent_id, symbol, side, quantity, intended_price, executed_price, state, COALESCE(order_id, 0), COALESCE(reason, ''), created_at
		FROM trades
		WHERE agent_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var t TradeRow
		if err := rows.Scan(&t.ID, &t.AgentID, &t.Symbol, &t.Side, &t.Quantity, &t.IntendedPrice, &t.ExecutedPrice, &t.State, &t.OrderID, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecentSignals returns an agent's signals, newest first.
func (q *Queries) RecentSignals(ctx context.Context, agentID string, limit int) ([]SignalRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, agent_id, symbol, action, price, COALESCE(confidence, 0), COALESCE(reason, ''), created_at
		FROM signals
		WHERE agent_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var out []SignalRow
	for rows.Next() {
		var s SignalRow
		if err := rows.Scan(&s.ID, &s.AgentID, &s.Symbol, &s.Action, &s.Price, &s.Confidence, &s.Reason, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AgentStatuses returns the latest heartbeat of every agent.
func (q *Queries) AgentStatuses(ctx context.Context) ([]StatusRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT agent_id, state, COALESCE(detail, ''), updated_at
		FROM statuses
		ORDER BY agent_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query statuses: %w", err)
	}
	defer rows.Close()

	var out []StatusRow
	for rows.Next() {
		var s StatusRow
		if err := rows.Scan(&s.AgentID, &s.State, &s.Detail, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExitPlan returns the protective-order plan for a trade.
func (q *Queries) ExitPlan(ctx context.Context, tradeID string) (ExitPlanRow, error) {
	var p ExitPlanRow
	err := q.db.QueryRowContext(ctx, `
		SELECT trade_id, agent_id, symbol, take_profit, stop_loss, created_at
		FROM exit_plans
		WHERE trade_id = ?
	`, tradeID).Scan(&p.TradeID, &p.AgentID, &p.Symbol, &p.TakeProfit, &p.StopLoss, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ExitPlanRow{}, ErrNotFound
	}
	if err != nil {
		return ExitPlanRow{}, fmt.Errorf("query exit plan: %w", err)
	}
	return p, nil
}

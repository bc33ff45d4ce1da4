package db

import (
	"database/sql"
	"fmt"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS trades (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    quantity REAL NOT NULL,
    intended_price REAL NOT NULL,
    executed_price REAL NOT NULL,
    state TEXT NOT NULL,
    order_id INTEGER,
    reason TEXT,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_agent ON trades(agent_id, created_at);

CREATE TABLE IF NOT EXISTS signals (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    action TEXT NOT NULL,
    price REAL NOT NULL,
    confidence REAL,
    reason TEXT,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_agent ON signals(agent_id, created_at);

CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    price REAL NOT NULL,
    equity REAL NOT NULL,
    payload TEXT,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_agent ON analyses(agent_id, created_at);

CREATE TABLE IF NOT EXISTS statuses (
    agent_id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    detail TEXT,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    action TEXT NOT NULL,
    payload TEXT,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_agent ON decisions(agent_id, created_at);

CREATE TABLE IF NOT EXISTS exit_plans (
    trade_id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    take_profit REAL NOT NULL,
    stop_loss REAL NOT NULL,
    created_at DATETIME NOT NULL
);
`

// InitSchema creates the telemetry tables if they do not exist yet.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

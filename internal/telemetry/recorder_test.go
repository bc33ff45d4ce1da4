package telemetry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"agent-core/internal/events"
	"agent-core/internal/persistence"
	"agent-core/pkg/db"
)

func newPipeline(t *testing.T) (*Sink, *db.Database, func()) {
	t.Helper()
	d, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.InitSchema(d.DB); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	bus := events.NewBus()
	writer := persistence.NewBatchWriter(d.DB, 1, 10*time.Millisecond)
	recorder := NewRecorder(bus, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		recorder.Run(ctx)
		close(done)
	}()

	stop := func() {
		cancel()
		<-done
		writer.Close()
		d.Close()
	}
	return NewSink(bus), d, stop
}

func waitForCount(t *testing.T, d *db.Database, table string, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		var n int
		if err := d.DB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("%s count stuck at %d, expected %d", table, n, want)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSinkToStorePipeline(t *testing.T) {
	sink, d, stop := newPipeline(t)
	defer stop()
	now := time.Now().UTC()

	sink.Analysis(AnalysisRecord{ID: "a1", AgentID: "agent-1", Symbol: "BTCUSDT", Price: 100, Equity: 1000, Indicators: map[string]float64{"rsi": 42}, At: now})
	sink.Signal(SignalRecord{ID: "s1", AgentID: "agent-1", Symbol: "BTCUSDT", Action: "BUY", Price: 100, Reason: "oversold", At: now})
	sink.Trade(TradeRecord{ID: "t1", AgentID: "agent-1", Symbol: "BTCUSDT", Side: "BUY", Quantity: 1, IntendedPrice: 100, ExecutedPrice: 100.2, State: "closed", At: now})
	sink.ExitPlan(ExitPlanRecord{TradeID: "t1", AgentID: "agent-1", Symbol: "BTCUSDT", TakeProfit: 102, StopLoss: 99, At: now})
	sink.Status(StatusRecord{AgentID: "agent-1", State: StateRunning, At: now})

	waitForCount(t, d, "analyses", 1)
	waitForCount(t, d, "signals", 1)
	waitForCount(t, d, "trades", 1)
	waitForCount(t, d, "exit_plans", 1)
	waitForCount(t, d, "statuses", 1)

	var payload string
	if err := d.DB.QueryRow(`SELECT payload FROM analyses WHERE id = 'a1'`).Scan(&payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if payload != `{"rsi":42}` {
		t.Fatalf("payload=%q", payload)
	}
}

func TestDecisionDetailsSerialized(t *testing.T) {
	sink, d, stop := newPipeline(t)
	defer stop()

	sink.Decision(DecisionRecord{
		ID: "d1", AgentID: "agent-1", Symbol: "BTCUSDT", Action: "BUY",
		Details: map[string]any{"quantity": 2}, At: time.Now().UTC(),
	})
	waitForCount(t, d, "decisions", 1)

	var payload string
	if err := d.DB.QueryRow(`SELECT payload FROM decisions WHERE id = 'd1'`).Scan(&payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if payload != `{"quantity":2}` {
		t.Fatalf("payload=%q", payload)
	}
}

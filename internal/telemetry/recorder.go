package telemetry

import (
	"context"
	"log"

	"github.com/bytedance/sonic"

	"agent-core/internal/events"
	"agent-core/internal/persistence"
	"agent-core/pkg/db"
)

const subscriberBuffer = 256

// Recorder drains the telemetry topics and turns records into batched
// database writes. It is the only consumer of the bus and the only writer
// to the telemetry store.
type Recorder struct {
	writer *persistence.BatchWriter
	unsubs []func()
	chans  []<-chan any
}

// NewRecorder subscribes to every telemetry topic.
func NewRecorder(bus *events.Bus, writer *persistence.BatchWriter) *Recorder {
	r := &Recorder{writer: writer}
	for _, topic := range events.Topics() {
		ch, unsub := bus.Subscribe(topic, subscriberBuffer)
		r.chans = append(r.chans, ch)
		r.unsubs = append(r.unsubs, unsub)
	}
	return r
}

// Run consumes records until the context ends, then unsubscribes. The
// batch writer's own Close drains whatever was already enqueued.
func (r *Recorder) Run(ctx context.Context) {
	defer func() {
		for _, unsub := range r.unsubs {
			unsub()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-r.chans[0]:
			r.handle(v)
		case v := <-r.chans[1]:
			r.handle(v)
		case v := <-r.chans[2]:
			r.handle(v)
		case v := <-r.chans[3]:
			r.handle(v)
		case v := <-r.chans[4]:
			r.handle(v)
		case v := <-r.chans[5]:
			r.handle(v)
		}
	}
}

func (r *Recorder) handle(v any) {
	switch rec := v.(type) {
	case AnalysisRecord:
		payload := marshal(rec.Indicators)
		r.writer.Enqueue(func(ctx context.Context, e db.Execer) error {
			return db.InsertAnalysis(ctx, e, db.AnalysisRow{
				ID: rec.ID, AgentID: rec.AgentID, Symbol: rec.Symbol,
				Price: rec.Price, Equity: rec.Equity, Payload: payload, CreatedAt: rec.At,
			})
		})
	case SignalRecord:
		r.writer.Enqueue(func(ctx context.Context, e db.Execer) error {
			return db.InsertSignal(ctx, e, db.SignalRow{
				ID: rec.ID, AgentID: rec.AgentID, Symbol: rec.Symbol,
				Action: rec.Action, Price: rec.Price, Confidence: rec.Confidence,
				Reason: rec.Reason, CreatedAt: rec.At,
			})
		})
	case TradeRecord:
		r.writer.Enqueue(func(ctx context.Context, e db.Execer) error {
			return db.InsertTrade(ctx, e, db.TradeRow{
				ID: rec.ID, AgentID: rec.AgentID, Symbol: rec.Symbol, Side: rec.Side,
				Quantity: rec.Quantity, IntendedPrice: rec.IntendedPrice,
				ExecutedPrice: rec.ExecutedPrice, State: rec.State,
				OrderID: rec.OrderID, Reason: rec.Reason, CreatedAt: rec.At,
			})
		})
	case StatusRecord:
		r.writer.Enqueue(func(ctx context.Context, e db.Execer) error {
			return db.UpsertStatus(ctx, e, db.StatusRow{
				AgentID: rec.AgentID, State: rec.State, Detail: rec.Detail, UpdatedAt: rec.At,
			})
		})
	case DecisionRecord:
		payload := marshal(rec.Details)
		r.writer.Enqueue(func(ctx context.Context, e db.Execer) error {
			return db.InsertDecision(ctx, e, db.DecisionRow{
				ID: rec.ID, AgentID: rec.AgentID, Symbol: rec.Symbol,
				Action: rec.Action, Payload: payload, CreatedAt: rec.At,
			})
		})
	case ExitPlanRecord:
		r.writer.Enqueue(func(ctx context.Context, e db.Execer) error {
			return db.InsertExitPlan(ctx, e, db.ExitPlanRow{
				TradeID: rec.TradeID, AgentID: rec.AgentID, Symbol: rec.Symbol,
				TakeProfit: rec.TakeProfit, StopLoss: rec.StopLoss, CreatedAt: rec.At,
			})
		})
	default:
		log.Printf("telemetry: unknown record type %T", v)
	}
}

func marshal(v any) string {
	if v == nil {
		return ""
	}
	out, err := sonic.MarshalString(v)
	if err != nil {
		log.Printf("telemetry: marshal payload: %v", err)
		return ""
	}
	return out
}

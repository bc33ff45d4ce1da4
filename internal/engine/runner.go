// Package engine runs one trading agent: an indefinite tick loop that
// reads exchange state, asks the strategy for a signal, gates it through
// the risk manager, executes, reconciles and reports telemetry. Every
// runner owns its strategy and risk manager exclusively; the only shared
// dependency is the telemetry sink.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"agent-core/internal/indicators"
	"agent-core/internal/risk"
	"agent-core/internal/strategy"
	"agent-core/internal/telemetry"
	"agent-core/pkg/config"
	"agent-core/pkg/exchange/aster"
	"agent-core/pkg/exchange/common"
)

// ScanInterval is the pause between ticks. It doubles as the retry policy:
// any transient failure is simply retried on the next tick.
const ScanInterval = 15 * time.Second

// volatilityWindow bounds the runner's own price history used for sizing
// and adaptive targets.
const volatilityWindow = 60

// ExchangeClient is the signed exchange surface a runner needs.
type ExchangeClient interface {
	GetAccountInfo(ctx context.Context) (*aster.AccountInfo, error)
	GetPositions(ctx context.Context, symbol string) ([]aster.Position, error)
	PlaceOrder(ctx context.Context, p aster.OrderParams) (*aster.OrderAck, error)
	GetOrder(ctx context.Context, symbol string, orderID int64) (*aster.Order, error)
}

// PriceSource answers current-price lookups independently of the signed
// account API.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Runner drives one agent.
type Runner struct {
	agent    config.AgentConfig
	exchange ExchangeClient
	source   PriceSource
	strat    strategy.Strategy
	risk     *risk.Manager
	sink     *telemetry.Sink

	interval       time.Duration
	window         *strategy.PriceBuffer
	startingEquity float64
	now            func() time.Time
}

// NewRunner wires an agent's exclusively-owned components together.
func NewRunner(agent config.AgentConfig, ex ExchangeClient, src PriceSource, strat strategy.Strategy, rm *risk.Manager, sink *telemetry.Sink) *Runner {
	return &Runner{
		agent:    agent,
		exchange: ex,
		source:   src,
		strat:    strat,
		risk:     rm,
		sink:     sink,
		interval: ScanInterval,
		window:   strategy.NewPriceBuffer(volatilityWindow),
		now:      time.Now,
	}
}

// Run ticks until the context ends. A failing tick logs, reports an error
// status and waits for the next tick; it never terminates the loop.
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("agent %s: starting %s on %s, interval %s", r.agent.ID, r.strat.Name(), r.agent.Symbol, r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("agent %s: tick failed: %v", r.agent.ID, err)
			r.status(telemetry.StateError, err.Error())
		}

		select {
		case <-ctx.Done():
			log.Printf("agent %s: stopping", r.agent.ID)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) tick(ctx context.Context) error {
	account, err := r.exchange.GetAccountInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}
	rawPositions, err := r.exchange.GetPositions(ctx, r.agent.Symbol)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}
	price, err := r.source.Price(ctx, r.agent.Symbol)
	if err != nil {
		return fmt.Errorf("fetch price: %w", err)
	}

	if r.startingEquity == 0 {
		r.startingEquity = account.Equity
	}
	r.window.Add(price)
	volatility := indicators.Volatility(r.window.Prices(), 20)

	r.sink.Analysis(telemetry.AnalysisRecord{
		ID:      uuid.NewString(),
		AgentID: r.agent.ID,
		Symbol:  r.agent.Symbol,
		Price:   price,
		Equity:  account.Equity,
		Indicators: map[string]float64{
			"volatility": volatility,
			"rsi":        indicators.RSI(r.window.Prices(), 14),
			"sma20":      indicators.SMA(r.window.Prices(), 20),
		},
		At: r.now().UTC(),
	})

	if breaker := r.risk.CheckCircuitBreaker(account.Equity, r.startingEquity); breaker.ShouldStop {
		r.signal(strategy.Signal{Action: strategy.ActionHold, Price: price, Reason: breaker.Reason})
		r.status(telemetry.StateHalted, breaker.Reason)
		return nil
	}

	positions := toStrategyPositions(rawPositions)
	sig := r.strat.GenerateSignal(price, strategy.AccountState{
		Equity:           account.Equity,
		AvailableBalance: account.AvailableBalance,
	}, positions)
	r.signal(sig)

	if sig.Action == strategy.ActionHold {
		r.status(telemetry.StateRunning, sig.Reason)
		return nil
	}

	if limit := r.risk.CheckDailyTradeLimit(); !limit.CanTrade {
		r.decision(sig.Action, map[string]any{"blocked": limit.Reason})
		r.status(telemetry.StateRunning, limit.Reason)
		return nil
	}
	if !r.risk.IsWinRateAcceptable() {
		reason := fmt.Sprintf("win rate %.2f below minimum", r.risk.WinRate())
		r.decision(sig.Action, map[string]any{"blocked": reason})
		r.status(telemetry.StateRunning, reason)
		return nil
	}

	r.execute(ctx, sig, account, positions, price, volatility)
	return nil
}

// execute places the primary order, attaches protective orders and
// reconciles the fill. Placement failures are recorded and absorbed; the
// loop never dies on an order error.
func (r *Runner) execute(ctx context.Context, sig strategy.Signal, account *aster.AccountInfo, positions []strategy.Position, price, volatility float64) {
	quantity := sig.Quantity
	reducing := quantity > 0
	if !reducing {
		leverage := positionLeverage(positions, r.agent.Symbol)
		quantity = float64(r.risk.CalculatePositionSize(account.Equity, volatility, leverage, price))
		if quantity == 0 {
			reason := "position size computed as zero"
			r.decision(sig.Action, map[string]any{"blocked": reason})
			r.status(telemetry.StateRunning, reason)
			return
		}
	}

	takeProfit, stopLoss := sig.TakeProfit, sig.StopLoss
	if takeProfit == 0 || stopLoss == 0 {
		takeProfit, stopLoss = indicators.AdaptiveTargets(price, volatility, string(sig.Action))
	}

	assessment := r.risk.AssessPositionRisk(risk.PositionParams{
		Side:            string(sig.Action),
		EntryPrice:      price,
		StopLossPrice:   stopLoss,
		TakeProfitPrice: takeProfit,
		Quantity:        quantity,
		Equity:          account.Equity,
		Leverage:        positionLeverage(positions, r.agent.Symbol),
		Volatility:      volatility,
	})
	if assessment.Action == risk.ActionReduce {
		quantity = quantity / 2
		if !reducing {
			quantity = float64(int(quantity))
		}
		if quantity <= 0 {
			reason := "risk assessment reduced size to zero"
			r.decision(sig.Action, map[string]any{"blocked": reason, "max_loss": assessment.MaxLoss})
			r.status(telemetry.StateRunning, reason)
			return
		}
	}
	takeProfit, stopLoss = assessment.AdjustedTakeProfit, assessment.AdjustedStopLoss

	tradeID := uuid.NewString()
	ack, err := r.exchange.PlaceOrder(ctx, aster.OrderParams{
		Symbol:        r.agent.Symbol,
		Side:          common.Side(sig.Action),
		Type:          common.OrderTypeMarket,
		Quantity:      quantity,
		ReduceOnly:    reducing,
		ClientOrderID: tradeID,
	})
	if err != nil {
		log.Printf("agent %s: place order: %v", r.agent.ID, err)
		r.trade(telemetry.TradeRecord{
			ID: tradeID, AgentID: r.agent.ID, Symbol: r.agent.Symbol,
			Side: string(sig.Action), Quantity: quantity,
			IntendedPrice: price, ExecutedPrice: price,
			State: string(common.TradeStateError), Reason: err.Error(),
		})
		r.status(telemetry.StateRunning, "order placement failed")
		return
	}

	r.placeProtectiveOrders(ctx, sig.Action, quantity, takeProfit, stopLoss)

	executedPrice, state := r.reconcile(ctx, ack.OrderID, price)
	r.recordOutcome(sig, positions, executedPrice, quantity)

	r.trade(telemetry.TradeRecord{
		ID: tradeID, AgentID: r.agent.ID, Symbol: r.agent.Symbol,
		Side: string(sig.Action), Quantity: quantity,
		IntendedPrice: price, ExecutedPrice: executedPrice,
		State: string(state), OrderID: ack.OrderID, Reason: sig.Reason,
	})
	if takeProfit > 0 && stopLoss > 0 {
		r.sink.ExitPlan(telemetry.ExitPlanRecord{
			TradeID: tradeID, AgentID: r.agent.ID, Symbol: r.agent.Symbol,
			TakeProfit: takeProfit, StopLoss: stopLoss, At: r.now().UTC(),
		})
	}
	r.decision(sig.Action, map[string]any{
		"quantity":       quantity,
		"executed_price": executedPrice,
		"take_profit":    takeProfit,
		"stop_loss":      stopLoss,
		"risk_percent":   assessment.RiskPercent,
		"risk_reward":    assessment.RiskReward,
	})
	r.status(telemetry.StateRunning, fmt.Sprintf("executed %s %v", sig.Action, quantity))
}

// placeProtectiveOrders attaches reduce-only stop and target orders.
// Failures here are logged and tolerated.
func (r *Runner) placeProtectiveOrders(ctx context.Context, action strategy.Action, quantity, takeProfit, stopLoss float64) {
	if takeProfit <= 0 && stopLoss <= 0 {
		return
	}
	closeSide := common.SideSell
	if action == strategy.ActionSell {
		closeSide = common.SideBuy
	}

	if stopLoss > 0 {
		_, err := r.exchange.PlaceOrder(ctx, aster.OrderParams{
			Symbol:     r.agent.Symbol,
			Side:       closeSide,
			Type:       common.OrderTypeStopMarket,
			Quantity:   quantity,
			StopPrice:  stopLoss,
			ReduceOnly: true,
		})
		if err != nil {
			log.Printf("agent %s: stop-loss order: %v", r.agent.ID, err)
		}
	}
	if takeProfit > 0 {
		_, err := r.exchange.PlaceOrder(ctx, aster.OrderParams{
			Symbol:     r.agent.Symbol,
			Side:       closeSide,
			Type:       common.OrderTypeTakeProfitMarket,
			Quantity:   quantity,
			StopPrice:  takeProfit,
			ReduceOnly: true,
		})
		if err != nil {
			log.Printf("agent %s: take-profit order: %v", r.agent.ID, err)
		}
	}
}

// reconcile fetches the authoritative fill. On failure it falls back to
// the intended values; the trade is recorded either way.
func (r *Runner) reconcile(ctx context.Context, orderID int64, intended float64) (float64, common.TradeState) {
	order, err := r.exchange.GetOrder(ctx, r.agent.Symbol, orderID)
	if err != nil {
		log.Printf("agent %s: reconcile order %d failed, recording intended values: %v", r.agent.ID, orderID, err)
		return intended, common.TradeStateOpen
	}
	return aster.ExecutedPrice(order, intended), aster.MapStatus(order.Status)
}

// recordOutcome feeds the risk manager. Entries only count against the
// daily limit; reductions of an open position realize a PnL sample for the
// win-rate gate.
func (r *Runner) recordOutcome(sig strategy.Signal, positions []strategy.Position, executedPrice, quantity float64) {
	if pos, ok := findPosition(positions, r.agent.Symbol); ok && string(sig.Action) != pos.Side {
		pnl := (executedPrice - pos.EntryPrice) * quantity
		if pos.Side == "SELL" {
			pnl = -pnl
		}
		r.risk.RecordTrade(pnl)
		return
	}
	r.risk.RecordEntry()
}

func (r *Runner) signal(sig strategy.Signal) {
	r.sink.Signal(telemetry.SignalRecord{
		ID:         uuid.NewString(),
		AgentID:    r.agent.ID,
		Symbol:     r.agent.Symbol,
		Action:     string(sig.Action),
		Price:      sig.Price,
		Confidence: sig.Confidence,
		Reason:     sig.Reason,
		At:         r.now().UTC(),
	})
}

func (r *Runner) trade(rec telemetry.TradeRecord) {
	rec.At = r.now().UTC()
	r.sink.Trade(rec)
}

func (r *Runner) decision(action strategy.Action, details map[string]any) {
	r.sink.Decision(telemetry.DecisionRecord{
		ID:      uuid.NewString(),
		AgentID: r.agent.ID,
		Symbol:  r.agent.Symbol,
		Action:  string(action),
		Details: details,
		At:      r.now().UTC(),
	})
}

func (r *Runner) status(state, detail string) {
	r.sink.Status(telemetry.StatusRecord{
		AgentID: r.agent.ID,
		State:   state,
		Detail:  detail,
		At:      r.now().UTC(),
	})
}

func toStrategyPositions(in []aster.Position) []strategy.Position {
	out := make([]strategy.Position, 0, len(in))
	for _, p := range in {
		out = append(out, strategy.Position{
			Symbol:        p.Symbol,
			Side:          string(p.Side),
			Quantity:      p.Quantity,
			EntryPrice:    p.EntryPrice,
			UnrealizedPnL: p.UnrealizedPnL,
			Leverage:      p.Leverage,
		})
	}
	return out
}

func findPosition(positions []strategy.Position, symbol string) (strategy.Position, bool) {
	for _, p := range positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return strategy.Position{}, false
}

func positionLeverage(positions []strategy.Position, symbol string) float64 {
	if p, ok := findPosition(positions, symbol); ok && p.Leverage > 0 {
		return p.Leverage
	}
	return 1
}

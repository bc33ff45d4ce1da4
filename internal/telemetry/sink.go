package telemetry

import "agent-core/internal/events"

// Sink is the write-only telemetry surface handed to every agent runtime.
// All methods are fire-and-forget: a slow or absent consumer never blocks
// a trading tick.
type Sink struct {
	bus *events.Bus
}

// NewSink wraps the process event bus.
func NewSink(bus *events.Bus) *Sink {
	return &Sink{bus: bus}
}

func (s *Sink) Trade(r TradeRecord)       { s.bus.Publish(events.TopicTrade, r) }
func (s *Sink) Signal(r SignalRecord)     { s.bus.Publish(events.TopicSignal, r) }
func (s *Sink) Analysis(r AnalysisRecord) { s.bus.Publish(events.TopicAnalysis, r) }
func (s *Sink) Status(r StatusRecord)     { s.bus.Publish(events.TopicStatus, r) }
func (s *Sink) Decision(r DecisionRecord) { s.bus.Publish(events.TopicDecision, r) }
func (s *Sink) ExitPlan(r ExitPlanRecord) { s.bus.Publish(events.TopicExitPlan, r) }

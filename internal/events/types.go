package events

// Topic enumerates the telemetry streams produced by agent runtimes.
type Topic string

const (
	TopicAnalysis Topic = "analysis"
	TopicSignal   Topic = "signal"
	TopicTrade    Topic = "trade"
	TopicStatus   Topic = "status"
	TopicDecision Topic = "decision"
	TopicExitPlan Topic = "exit_plan"
)

// Topics lists every stream, for consumers that subscribe to all of them.
func Topics() []Topic {
	return []Topic{
		TopicAnalysis,
		TopicSignal,
		TopicTrade,
		TopicStatus,
		TopicDecision,
		TopicExitPlan,
	}
}

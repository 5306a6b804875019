package model

// OutcomeEvent is emitted after each message reaches a terminal outcome.
// It is published to Kafka topic concierge.outcomes for downstream analytics
// and never influences the acknowledgment decision.
type OutcomeEvent struct {
	MessageID  string `json:"message_id"`
	Cuisine    string `json:"cuisine,omitempty"`
	Outcome    string `json:"outcome"` // delivered | discard_malformed | discard_no_results | transient_failure
	Candidates int    `json:"candidates"`
	Resolved   int    `json:"resolved"`
	Deliveries int64  `json:"deliveries"`
	Timestamp  string `json:"timestamp"`
}

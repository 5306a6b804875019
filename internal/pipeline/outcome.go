package pipeline

// Outcome is the terminal classification of one processing attempt. It
// exists only long enough to drive the acknowledgment decision.
type Outcome int

const (
	// Delivered: the email was sent; remove the message.
	Delivered Outcome = iota
	// DiscardMalformed: the payload can never succeed; remove the message.
	DiscardMalformed
	// DiscardNoResults: no candidates sampled or none resolved; remove the
	// message, there is nothing to retry into existence.
	DiscardNoResults
	// TransientFailure: a downstream service failed; leave the message
	// unacknowledged so the queue redelivers it.
	TransientFailure
)

// ShouldAck reports whether the message must be removed from the queue.
// Everything except a transient failure is terminal.
func (o Outcome) ShouldAck() bool {
	return o != TransientFailure
}

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case DiscardMalformed:
		return "discard_malformed"
	case DiscardNoResults:
		return "discard_no_results"
	case TransientFailure:
		return "transient_failure"
	default:
		return "unknown"
	}
}

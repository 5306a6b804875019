package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"concierge-backend/internal/audit"
	"concierge-backend/internal/compose"
	"concierge-backend/internal/model"
	"concierge-backend/internal/queue"
)

// batchSize bounds how many messages one drain pulls from the queue.
const batchSize = 10

// Queue is the at-least-once message source. Ack removes a message; a
// message that is never acked becomes visible again after its timeout.
type Queue interface {
	Receive(ctx context.Context, max int) ([]queue.Message, error)
	Ack(ctx context.Context, id string) error
}

// Sampler returns up to count unique candidate ids for a cuisine in
// randomized order. An empty result is a legitimate zero-match answer.
type Sampler interface {
	Sample(ctx context.Context, cuisine string, count int) ([]string, error)
}

// Fetcher resolves ids to detail records, omitting ids the store does not
// have. It errors only on transport failure.
type Fetcher interface {
	FetchMany(ctx context.Context, ids []string) (map[string]model.Restaurant, error)
}

// Sender delivers one composed message to a recipient address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DeliveryGuard makes the send side effect idempotent across redeliveries.
type DeliveryGuard interface {
	Seen(ctx context.Context, msgID string) bool
	Mark(ctx context.Context, msgID string)
}

// OutcomePublisher receives fire-and-forget terminal outcome events.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, evt model.OutcomeEvent) error
}

// DiscardLog records permanently dropped messages.
type DiscardLog interface {
	Write(ctx context.Context, d audit.Discard) error
}

// Deps are the worker's collaborators. Queue, Sampler, Fetcher and Sender
// are required; Guard, Events and Discards may be nil.
type Deps struct {
	Queue    Queue
	Sampler  Sampler
	Fetcher  Fetcher
	Sender   Sender
	Guard    DeliveryGuard
	Events   OutcomePublisher
	Discards DiscardLog
}

// Worker drives queued requests through sample -> fetch -> compose -> send
// and applies the accept/retry/discard policy per message.
type Worker struct {
	deps       Deps
	numResults int
}

func NewWorker(deps Deps, numResults int) *Worker {
	if numResults <= 0 {
		numResults = 3
	}
	return &Worker{deps: deps, numResults: numResults}
}

// Drain pulls one bounded batch and processes the messages in parallel;
// each message owns its request-scoped data, so the only shared state is
// the clients, which are safe for concurrent use. It returns the number of
// successfully acknowledged messages. Individual message failures are
// logged and left for redelivery, never returned as errors.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	msgs, err := w.deps.Queue.Receive(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("worker: receive: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	type result struct {
		msg     queue.Message
		outcome Outcome
	}

	workerCount := calcWorkerCount(len(msgs))
	jobs := make(chan queue.Message)
	results := make(chan result, len(msgs))

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				results <- result{msg: m, outcome: w.processMessage(ctx, m)}
			}
		}()
	}

	go func() {
		for _, m := range msgs {
			jobs <- m
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	processed := 0
	for r := range results {
		if !r.outcome.ShouldAck() {
			log.Printf("Worker: message %s left for redelivery (delivery %d)", r.msg.ID, r.msg.DeliveryCount)
			continue
		}
		if err := w.deps.Queue.Ack(ctx, r.msg.ID); err != nil {
			log.Printf("Worker: ack %s failed: %v", r.msg.ID, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// processMessage runs one message to a terminal outcome. It never panics the
// batch: every failure, including a panic in a collaborator, becomes an
// outcome, and a panicked message stays queued for redelivery.
func (w *Worker) processMessage(ctx context.Context, msg queue.Message) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: panic on %s: %v", msg.ID, r)
			outcome = TransientFailure
		}
	}()

	req, err := model.ParseRequest(msg.Body)
	if err != nil {
		log.Printf("Worker: malformed payload on %s: %v", msg.ID, err)
		w.recordDiscard(ctx, msg.ID, "malformed", err.Error(), "")
		return w.finish(ctx, msg, "", 0, 0, DiscardMalformed)
	}

	// A redelivery whose previous attempt sent the email but lost the ack
	// must not send again.
	if w.deps.Guard != nil && w.deps.Guard.Seen(ctx, msg.ID) {
		log.Printf("Worker: message %s already delivered, acking without re-send", msg.ID)
		return w.finish(ctx, msg, req.Cuisine, 0, 0, Delivered)
	}

	// Over-request 2x so fetch misses still leave a full result list.
	ids, err := w.deps.Sampler.Sample(ctx, req.Cuisine, 2*w.numResults)
	if err != nil {
		log.Printf("Worker: sample failed on %s (cuisine=%s): %v", msg.ID, req.Cuisine, err)
		return w.finish(ctx, msg, req.Cuisine, 0, 0, TransientFailure)
	}
	if len(ids) > w.numResults {
		ids = ids[:w.numResults]
	}
	if len(ids) == 0 {
		log.Printf("Worker: no index hits on %s (cuisine=%s)", msg.ID, req.Cuisine)
		w.recordDiscard(ctx, msg.ID, "no_results", "no candidates sampled", req.Cuisine)
		return w.finish(ctx, msg, req.Cuisine, 0, 0, DiscardNoResults)
	}

	records, err := w.deps.Fetcher.FetchMany(ctx, ids)
	if err != nil {
		log.Printf("Worker: fetch failed on %s (cuisine=%s, ids=%d): %v", msg.ID, req.Cuisine, len(ids), err)
		return w.finish(ctx, msg, req.Cuisine, len(ids), 0, TransientFailure)
	}

	results := make([]model.Restaurant, 0, len(ids))
	for _, id := range ids {
		if rec, ok := records[id]; ok {
			results = append(results, rec)
		}
	}
	if len(results) == 0 {
		log.Printf("Worker: no store matches on %s (cuisine=%s, ids=%d)", msg.ID, req.Cuisine, len(ids))
		w.recordDiscard(ctx, msg.ID, "no_results", "no ids resolved to records", req.Cuisine)
		return w.finish(ctx, msg, req.Cuisine, len(ids), 0, DiscardNoResults)
	}

	m := compose.Compose(req, results)
	if err := w.deps.Sender.Send(ctx, req.Email, m.Subject, m.Body); err != nil {
		// Recipient address deliberately kept out of the error log.
		log.Printf("Worker: delivery failed on %s (cuisine=%s): %v", msg.ID, req.Cuisine, err)
		return w.finish(ctx, msg, req.Cuisine, len(ids), len(results), TransientFailure)
	}
	if w.deps.Guard != nil {
		w.deps.Guard.Mark(ctx, msg.ID)
	}
	log.Printf("Worker: delivered %s suggestions for message %s (%d results)", req.Cuisine, msg.ID, len(results))
	return w.finish(ctx, msg, req.Cuisine, len(ids), len(results), Delivered)
}

// finish publishes the outcome event (best effort) and returns the outcome.
func (w *Worker) finish(ctx context.Context, msg queue.Message, cuisine string, candidates, resolved int, outcome Outcome) Outcome {
	if w.deps.Events != nil {
		evt := model.OutcomeEvent{
			MessageID:  msg.ID,
			Cuisine:    cuisine,
			Outcome:    outcome.String(),
			Candidates: candidates,
			Resolved:   resolved,
			Deliveries: msg.DeliveryCount,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := w.deps.Events.PublishOutcome(ctx, evt); err != nil {
			log.Printf("Worker: outcome publish failed for %s: %v", msg.ID, err)
		}
	}
	return outcome
}

func (w *Worker) recordDiscard(ctx context.Context, msgID, reason, detail, cuisine string) {
	if w.deps.Discards == nil {
		return
	}
	err := w.deps.Discards.Write(ctx, audit.Discard{
		MessageID: msgID,
		Reason:    reason,
		Detail:    detail,
		Cuisine:   cuisine,
	})
	if err != nil {
		log.Printf("Worker: discard audit write failed for %s: %v", msgID, err)
	}
}

func calcWorkerCount(n int) int {
	if n <= 0 {
		return 1
	}
	if n > 4 {
		return 4
	}
	return n
}

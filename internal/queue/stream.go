package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// readWait bounds how long a drain blocks waiting for new entries when the
// pending list is empty, mirroring a short-poll receive.
const readWait = 3 * time.Second

// Message is one dequeued request. DeliveryCount starts at 1 and grows each
// time the visibility window lapses and the entry is re-claimed.
type Message struct {
	ID            string
	Body          []byte
	DeliveryCount int64
}

// Stream is an at-least-once queue on a Redis Stream consumer group.
// Entries stay in the group's pending list until acknowledged; an entry idle
// longer than the visibility timeout becomes claimable again, which is the
// redelivery mechanism. The pipeline keeps no retry counter of its own.
type Stream struct {
	rdb        *redis.Client
	stream     string
	group      string
	consumer   string
	visibility time.Duration
}

func NewStream(rdb *redis.Client, stream, group, consumer string, visibility time.Duration) *Stream {
	return &Stream{
		rdb:        rdb,
		stream:     stream,
		group:      group,
		consumer:   consumer,
		visibility: visibility,
	}
}

// EnsureGroup creates the consumer group (and the stream) if needed.
// An already-existing group is not an error.
func (s *Stream) EnsureGroup(ctx context.Context) error {
	// redis/go-redis/v9: XGroupCreateMkStream creates the stream and group
	// in one call. Start id "0" makes pre-existing entries consumable.
	err := s.rdb.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("queue: create group: %w", err)
	}
	return nil
}

// Enqueue appends a request payload to the stream and returns the entry id.
func (s *Stream) Enqueue(ctx context.Context, body []byte) (string, error) {
	// redis/go-redis/v9: XAdd appends an entry; MaxLen keeps the stream from
	// growing without bound once entries are acked and deleted elsewhere.
	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: 100_000,
		Approx: true,
		Values: map[string]any{"body": body},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("queue: enqueue: %w", err)
	}
	return id, nil
}

// Receive returns up to max messages: first entries whose visibility window
// has lapsed (redeliveries), then new entries. It blocks briefly for new
// entries only when nothing was reclaimed.
func (s *Stream) Receive(ctx context.Context, max int) ([]Message, error) {
	out := make([]Message, 0, max)

	// redis/go-redis/v9: XPendingExt lists pending entries idle beyond the
	// visibility timeout along with their per-entry delivery counts.
	pending, err := s.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.stream,
		Group:  s.group,
		Idle:   s.visibility,
		Start:  "-",
		End:    "+",
		Count:  int64(max),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("queue: pending scan: %w", err)
	}

	if len(pending) > 0 {
		ids := make([]string, 0, len(pending))
		retries := make(map[string]int64, len(pending))
		for _, p := range pending {
			ids = append(ids, p.ID)
			retries[p.ID] = p.RetryCount
		}
		// redis/go-redis/v9: XClaim transfers ownership of lapsed entries to
		// this consumer; MinIdle guards against racing another drainer.
		claimed, err := s.rdb.XClaim(ctx, &redis.XClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.visibility,
			Messages: ids,
		}).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("queue: claim: %w", err)
		}
		for _, m := range claimed {
			out = append(out, toMessage(m, retries[m.ID]+1))
		}
	}

	if len(out) >= max {
		return out[:max], nil
	}

	block := readWait
	if len(out) > 0 {
		block = -1 // already have work; do not hold the batch waiting
	}
	// redis/go-redis/v9: XReadGroup with ">" delivers entries never seen by
	// this group and adds them to the pending list.
	streams, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    int64(max - len(out)),
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: read: %w", err)
	}
	for _, st := range streams {
		for _, m := range st.Messages {
			out = append(out, toMessage(m, 1))
		}
	}
	return out, nil
}

// Ack removes a message permanently. Acking twice is a no-op, never an error.
func (s *Stream) Ack(ctx context.Context, id string) error {
	// redis/go-redis/v9: XAck drops the entry from the pending list; XDel
	// then removes the payload itself from the stream.
	if err := s.rdb.XAck(ctx, s.stream, s.group, id).Err(); err != nil {
		return fmt.Errorf("queue: ack %s: %w", id, err)
	}
	if err := s.rdb.XDel(ctx, s.stream, id).Err(); err != nil {
		return fmt.Errorf("queue: delete %s: %w", id, err)
	}
	return nil
}

func toMessage(m redis.XMessage, deliveries int64) Message {
	msg := Message{ID: m.ID, DeliveryCount: deliveries}
	if body, ok := m.Values["body"].(string); ok {
		msg.Body = []byte(body)
	}
	return msg
}

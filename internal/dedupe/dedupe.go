package dedupe

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// deliveredKey is the RedisBloom filter tracking queue message ids whose
// email was already sent. It makes the send side effect idempotent across
// redeliveries where the ack was lost after a successful send.
const deliveredKey = "concierge:delivered"

// Guard answers "was this message already delivered?" with a Bloom filter.
// A false positive would suppress a legitimate email, so the filter is sized
// for a very low error rate; a lookup failure fails open (re-send) because a
// duplicate email beats a silently dropped one.
type Guard struct {
	rdb *redis.Client
}

func NewGuard(rdb *redis.Client) *Guard {
	return &Guard{rdb: rdb}
}

// Init reserves the Bloom filter. Safe to call on every startup.
func (g *Guard) Init(ctx context.Context) {
	// RedisBloom (redis/go-redis/v9): BF.RESERVE creates the filter with
	// error rate 0.0001 and 1M capacity. Fails harmlessly if it exists.
	if err := g.rdb.Do(ctx, "BF.RESERVE", deliveredKey, 0.0001, 1_000_000).Err(); err != nil {
		log.Printf("dedupe: reserve filter (may already exist): %v", err)
	}
}

// Seen reports whether msgID was previously marked as delivered.
func (g *Guard) Seen(ctx context.Context, msgID string) bool {
	if g == nil || g.rdb == nil {
		return false
	}
	// RedisBloom (redis/go-redis/v9): BF.EXISTS is a read-only membership
	// probe; it must not add, since delivery has not happened yet.
	res := g.rdb.Do(ctx, "BF.EXISTS", deliveredKey, msgID)
	if res.Err() != nil {
		log.Printf("dedupe: BF.EXISTS error: %v", res.Err())
		return false
	}
	return toBool(res)
}

// Mark records msgID as delivered. Called after a successful send, before
// the ack, so a lost ack cannot cause a duplicate email.
func (g *Guard) Mark(ctx context.Context, msgID string) {
	if g == nil || g.rdb == nil {
		return
	}
	if err := g.rdb.Do(ctx, "BF.ADD", deliveredKey, msgID).Err(); err != nil {
		log.Printf("dedupe: BF.ADD error: %v", err)
	}
}

// toBool normalizes the reply, which is an int (0/1) or bool depending on
// the Redis version.
func toBool(res *redis.Cmd) bool {
	if v, err := res.Int(); err == nil {
		return v == 1
	}
	if b, err := res.Bool(); err == nil {
		return b
	}
	return false
}

package optout

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const suppressionKey = "concierge:optout"

// Service maintains the recipient suppression list. The enqueue boundary
// consults it so suppressed addresses never enter the queue.
type Service struct {
	rdb *redis.Client
}

func NewService(rdb *redis.Client) *Service {
	return &Service{rdb: rdb}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Suppress adds an address to the suppression list.
func (s *Service) Suppress(ctx context.Context, email string) error {
	// redis/go-redis/v9: SAdd on a Set gives idempotent membership.
	if err := s.rdb.SAdd(ctx, suppressionKey, normalize(email)).Err(); err != nil {
		return fmt.Errorf("optout: suppress: %w", err)
	}
	return nil
}

// Reinstate removes an address from the suppression list.
func (s *Service) Reinstate(ctx context.Context, email string) error {
	if err := s.rdb.SRem(ctx, suppressionKey, normalize(email)).Err(); err != nil {
		return fmt.Errorf("optout: reinstate: %w", err)
	}
	return nil
}

// IsSuppressed reports whether an address opted out.
func (s *Service) IsSuppressed(ctx context.Context, email string) (bool, error) {
	// redis/go-redis/v9: SIsMember is an O(1) membership check.
	ok, err := s.rdb.SIsMember(ctx, suppressionKey, normalize(email)).Result()
	if err != nil {
		return false, fmt.Errorf("optout: check: %w", err)
	}
	return ok, nil
}

package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"concierge-backend/internal/model"
)

// Fetcher resolves restaurant ids to detail records kept as Redis hashes
// under "<table>:<id>". Ids absent from the store are silently omitted;
// only a transport failure is an error.
type Fetcher struct {
	rdb   *redis.Client
	table string
}

func NewFetcher(rdb *redis.Client, table string) *Fetcher {
	return &Fetcher{rdb: rdb, table: table}
}

func (f *Fetcher) key(id string) string {
	return f.table + ":" + id
}

// FetchMany performs one pipelined batch read for all ids in a single round
// trip rather than N individual calls.
func (f *Fetcher) FetchMany(ctx context.Context, ids []string) (map[string]model.Restaurant, error) {
	out := make(map[string]model.Restaurant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	// redis/go-redis/v9: Pipeline batches the HGetAll commands into one
	// request/response exchange with the server.
	pipe := f.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, f.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("store: batch get: %w", err)
	}

	for i, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil || len(vals) == 0 {
			continue // missing id: omitted, not an error
		}
		rec := model.Restaurant{
			ID:      vals["id"],
			Name:    vals["name"],
			Address: vals["address"],
			Cuisine: vals["cuisine"],
		}
		if rec.ID == "" {
			rec.ID = ids[i]
		}
		out[ids[i]] = rec
	}
	return out, nil
}

package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Discard records one permanently dropped message so operators can see what
// the pipeline threw away and why.
type Discard struct {
	MessageID string `json:"message_id"`
	Reason    string `json:"reason"` // malformed | no_results
	Detail    string `json:"detail,omitempty"`
	Cuisine   string `json:"cuisine,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Store appends discard records to dated JSONL files.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(day time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("discards_%s.jsonl", day.Format("2006-01-02")))
}

// Write appends one discard record to today's file.
func (s *Store) Write(_ context.Context, d Discard) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if d.Timestamp == "" {
		d.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	f, err := os.OpenFile(s.path(time.Now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Recent returns up to limit of today's discards, newest last. A missing
// file means no discards yet, not an error.
func (s *Store) Recent(_ context.Context, limit int) ([]Discard, error) {
	f, err := os.Open(s.path(time.Now()))
	if err != nil {
		if os.IsNotExist(err) {
			return []Discard{}, nil
		}
		return nil, err
	}
	defer f.Close()

	all := []Discard{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var d Discard
		if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
			continue // skip torn writes
		}
		all = append(all, d)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

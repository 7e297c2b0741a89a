package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Mode records how a message was published.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

// Entry is one journaled publish call.
type Entry struct {
	RunID     string          `json:"run_id"`
	Seq       int64           `json:"seq"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Mode      Mode            `json:"mode"`
	Archived  bool            `json:"archived"`
	Delivered bool            `json:"delivered"`
}

// Run is one manifest run.
type Run struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartedAt string `json:"started_at"`
	Events    int    `json:"events"`
}

// ErrRunNotFound is returned by FindRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// Begin starts a new run and returns its id.
func (j *Journal) Begin(ctx context.Context, name string) (string, error) {
	id := j.ids.Generate()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, started_at)
		VALUES (?, ?, ?)
	`,
		id,
		name,
		j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// Record inserts an event.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency - rewriting the
// same seq is silently ignored. The run must exist (foreign key constraint).
//
// An empty payload is stored as null.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("record event: empty run id")
	}
	payload := string(e.Payload)
	if payload == "" {
		payload = "null"
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, topic, payload, mode, archived, delivered)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		e.RunID,
		e.Seq,
		e.Topic,
		payload,
		string(e.Mode),
		e.Archived,
		e.Delivered,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

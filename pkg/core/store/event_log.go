package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"startup_valuation/pkg/models"
)

// Event kinds.
const (
	KindQuick = "quick"
	KindChat  = "chat"
)

const eventFile = "valuation_events.jsonl"

const createEventsTable = `
CREATE TABLE IF NOT EXISTS valuation_events (
	id          UUID PRIMARY KEY,
	request_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	snapshot    JSONB NOT NULL,
	valuation   JSONB,
	intents     TEXT[],
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const insertEvent = `
INSERT INTO valuation_events (id, request_id, kind, snapshot, valuation, intents, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Event is one completed valuation, recorded for audit. Events are never read
// back into a conversation.
type Event struct {
	ID        string                   `json:"id"`
	RequestID string                   `json:"requestId"`
	Kind      string                   `json:"kind"`
	Snapshot  models.ValuationSnapshot `json:"snapshot"`
	Valuation *models.ValuationRange   `json:"valuation"`
	Intents   []string                 `json:"intents,omitempty"`
	CreatedAt time.Time                `json:"createdAt"`
}

// Recorder is what the orchestrator writes to.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Execer is the subset of *pgxpool.Pool the event log needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EventLog writes to Postgres when a pool is configured and to a JSONL file otherwise.
type EventLog struct {
	db      Execer
	fileDir string
	mu      sync.Mutex
	now     func() time.Time
}

// NewEventLog returns a log backed by db, or by fileDir when db is nil.
// With neither, events go to .cache/valuation_events.
func NewEventLog(db Execer, fileDir string) *EventLog {
	if db == nil && fileDir == "" {
		fileDir = filepath.Join(".cache", "valuation_events")
	}
	return &EventLog{db: db, fileDir: fileDir, now: time.Now}
}

// EnsureSchema creates the events table. It is a no-op for the file backend.
func (l *EventLog) EnsureSchema(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	if _, err := l.db.Exec(ctx, createEventsTable); err != nil {
		return fmt.Errorf("failed to create valuation_events: %w", err)
	}
	return nil
}

func (l *EventLog) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}

	if l.db != nil {
		return l.recordDB(ctx, e)
	}
	return l.recordFile(e)
}

func (l *EventLog) recordDB(ctx context.Context, e Event) error {
	snapshotJSON, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	var valuationJSON []byte
	if e.Valuation != nil {
		if valuationJSON, err = json.Marshal(e.Valuation); err != nil {
			return fmt.Errorf("failed to marshal valuation: %w", err)
		}
	}
	if _, err := l.db.Exec(ctx, insertEvent,
		e.ID, e.RequestID, e.Kind, snapshotJSON, valuationJSON, e.Intents, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert valuation event: %w", err)
	}
	return nil
}

func (l *EventLog) recordFile(e Event) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.fileDir, 0755); err != nil {
		return fmt.Errorf("failed to create event dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.fileDir, eventFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

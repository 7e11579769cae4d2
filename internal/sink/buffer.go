package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftsignal/bedrockobs/internal/events"
)

// Buffer stores events in a local SQLite file for later forwarding. It
// is the delivery path when no events credential is configured.
type Buffer struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBuffer opens (or creates) the buffer database at path.
func NewBuffer(path string, logger *slog.Logger) (*Buffer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open buffer database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS buffered_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		attributes TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Buffer{db: db, logger: logger}, nil
}

// Emit inserts one event. Failures are logged, never surfaced.
func (b *Buffer) Emit(ctx context.Context, ev events.Event) {
	attrs, err := json.Marshal(ev.Attributes)
	if err != nil {
		b.logger.Warn("event marshal failed", slog.String("type", ev.Type), slog.Any("error", err))
		return
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO buffered_events (event_type, attributes, created_at) VALUES (?, ?, ?)`,
		ev.Type, string(attrs), time.Now().UTC())
	if err != nil {
		b.logger.Warn("event buffering failed", slog.String("type", ev.Type), slog.Any("error", err))
	}
}

// Drain returns all buffered events in insertion order and removes them.
func (b *Buffer) Drain(ctx context.Context) ([]events.Event, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin drain: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT event_type, attributes FROM buffered_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read buffered events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var typ, raw string
		if err := rows.Scan(&typ, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan buffered event: %w", err)
		}
		var attrs map[string]any
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			return nil, fmt.Errorf("failed to decode buffered event: %w", err)
		}
		out = append(out, events.Event{Type: typ, Attributes: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM buffered_events`); err != nil {
		return nil, fmt.Errorf("failed to clear buffer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit drain: %w", err)
	}
	return out, nil
}

// Len reports the number of buffered events.
func (b *Buffer) Len(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buffered_events`).Scan(&n)
	return n, err
}

// Close releases the database handle.
func (b *Buffer) Close() error {
	return b.db.Close()
}

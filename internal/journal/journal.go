// Package journal is the durable activity log of a run: one row per
// significant event, distinct from the external tool's own log files.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/modkit/espclean/internal/log"
)

// Journal appends run events to the journal table and mirrors them to slog.
type Journal struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger
}

// Entry is one journal row, as read back by List.
type Entry struct {
	ID     int64
	RunID  string
	At     time.Time
	Plugin string
	Event  string
	Detail string
}

func New(db *sql.DB, runID string) *Journal {
	return &Journal{
		db:     db,
		runID:  runID,
		logger: log.WithComponent("journal").With("run_id", runID),
	}
}

// Record appends one event. A write failure is logged and swallowed: the
// journal must never fail a run.
func (j *Journal) Record(ctx context.Context, plugin, event, detail string) {
	j.logger.Info(event, "plugin", plugin, "detail", detail)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := j.db.ExecContext(ctx, `
INSERT INTO journal(run_id, at, plugin, event, detail)
VALUES(?, ?, ?, ?, ?);
`, j.runID, now, plugin, event, detail)
	if err != nil {
		j.logger.Warn("failed to write journal entry", "event", event, "error", err)
	}
}

// List returns the journal entries for a run, oldest-first.
func List(ctx context.Context, db *sql.DB, runID string) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, run_id, at, COALESCE(plugin, ''), event, COALESCE(detail, '')
FROM journal WHERE run_id = ? ORDER BY id;
`, runID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.RunID, &at, &e.Plugin, &e.Event, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			e.At = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

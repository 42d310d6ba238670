// Package skiplist is the feedback registry: per game, a fixed baseline set
// plus a learned set of plugins that produced no findings, persisted so later
// runs never queue them again.
package skiplist

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/modkit/espclean/internal/log"
)

// Registry answers skip queries and records non-cleanable plugins.
type Registry struct {
	db   *sql.DB
	game string

	mu      sync.Mutex
	learned map[string]string // lowercased pattern -> original form
	logger  *slog.Logger
}

// NewRegistry loads the learned entries for game from db.
func NewRegistry(ctx context.Context, db *sql.DB, game string) (*Registry, error) {
	r := &Registry{
		db:      db,
		game:    game,
		learned: make(map[string]string),
		logger:  log.WithComponent("skiplist"),
	}

	rows, err := db.QueryContext(ctx, "SELECT pattern FROM skip_entries WHERE game = ?;", game)
	if err != nil {
		return nil, fmt.Errorf("load skip entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pattern string
		if err := rows.Scan(&pattern); err != nil {
			return nil, fmt.Errorf("scan skip entry: %w", err)
		}
		r.learned[strings.ToLower(pattern)] = pattern
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skip entries: %w", err)
	}

	return r, nil
}

// ShouldSkip reports whether pluginName is excluded from processing, either
// by the game's baseline set or by a learned entry.
func (r *Registry) ShouldSkip(pluginName string) bool {
	for _, pattern := range Baseline(r.game) {
		if matches(pattern, pluginName) {
			return true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pattern := range r.learned {
		if matches(pattern, pluginName) {
			return true
		}
	}
	return false
}

// RecordNonCleanable adds pluginName to the learned set and persists it.
// Adding an existing entry is a no-op. The in-memory set is updated even when
// persistence fails, so the current run stays consistent; the caller treats a
// returned error as a warning, not a run failure.
func (r *Registry) RecordNonCleanable(ctx context.Context, pluginName string) error {
	key := strings.ToLower(pluginName)

	r.mu.Lock()
	if _, exists := r.learned[key]; exists {
		r.mu.Unlock()
		return nil
	}
	r.learned[key] = pluginName
	r.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
INSERT INTO skip_entries(game, pattern, added_at)
VALUES(?, ?, ?)
ON CONFLICT(game, pattern) DO NOTHING;
`, r.game, pluginName, now)
	if err != nil {
		r.logger.Warn("failed to persist skip entry", "plugin", pluginName, "error", err)
		return fmt.Errorf("persist skip entry: %w", err)
	}

	r.logger.Debug("recorded non-cleanable plugin", "plugin", pluginName, "game", r.game)
	return nil
}

// Learned returns the learned entries, for CLI listing.
func (r *Registry) Learned() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.learned))
	for _, pattern := range r.learned {
		out = append(out, pattern)
	}
	return out
}

// matches applies the skip-entry match policy: exact case-insensitive
// filename match, or — for extension-less entries — case-insensitive match
// against the plugin's filename stem.
func matches(pattern, pluginName string) bool {
	if strings.EqualFold(pattern, pluginName) {
		return true
	}
	if filepath.Ext(pattern) == "" {
		stem := strings.TrimSuffix(pluginName, filepath.Ext(pluginName))
		return strings.EqualFold(pattern, stem)
	}
	return false
}

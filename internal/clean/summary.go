// Package clean drives a full cleaning run: queue construction from the
// load order, skip filtering, per-plugin tool sessions, and the aggregated
// run summary.
package clean

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modkit/espclean/internal/xedit"
)

// Summary aggregates one run's results. Counters and lists are updated
// after each plugin's outcome is final, never concurrently.
type Summary struct {
	RunID      string    `json:"run_id"`
	Game       string    `json:"game"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Processed int `json:"processed"`
	Cleaned   int `json:"cleaned"`

	Skipped      []string `json:"skipped"`
	Failed       []string `json:"failed"`
	UDRCleaned   []string `json:"udr_cleaned"`
	ITMCleaned   []string `json:"itm_cleaned"`
	NavmeshFound []string `json:"navmesh_found"`
	PartialForms []string `json:"partial_forms"`
}

func newSummary(runID, game string) *Summary {
	return &Summary{
		RunID:        runID,
		Game:         game,
		StartedAt:    time.Now().UTC(),
		Skipped:      []string{},
		Failed:       []string{},
		UDRCleaned:   []string{},
		ITMCleaned:   []string{},
		NavmeshFound: []string{},
		PartialForms: []string{},
	}
}

// apply folds one plugin's final outcome into the summary.
func (s *Summary) apply(plugin string, rec xedit.OutcomeRecord) {
	s.Processed++

	if rec.Undeletes {
		s.UDRCleaned = append(s.UDRCleaned, plugin)
	}
	if rec.Removals {
		s.ITMCleaned = append(s.ITMCleaned, plugin)
	}
	if rec.DeletedNavmesh {
		s.NavmeshFound = append(s.NavmeshFound, plugin)
	}
	if rec.PartialForms {
		s.PartialForms = append(s.PartialForms, plugin)
	}

	switch rec.Disposition {
	case xedit.DispositionCleaned:
		s.Cleaned++
	case xedit.DispositionFailed:
		s.Failed = append(s.Failed, plugin)
	}
}

// insertRun records the run's start row.
func insertRun(ctx context.Context, db *sql.DB, s *Summary) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO runs(id, game, started_at) VALUES(?, ?, ?);
`, s.RunID, s.Game, s.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// finishRun persists the run's final counters and lists.
func finishRun(ctx context.Context, db *sql.DB, s *Summary) error {
	marshal := func(v []string) string {
		b, _ := json.Marshal(v)
		return string(b)
	}

	_, err := db.ExecContext(ctx, `
UPDATE runs SET
  finished_at = ?, processed = ?, cleaned = ?,
  failed = ?, udr_cleaned = ?, itm_cleaned = ?,
  navmesh_found = ?, partial_forms = ?
WHERE id = ?;
`,
		s.FinishedAt.Format(time.RFC3339Nano), s.Processed, s.Cleaned,
		marshal(s.Failed), marshal(s.UDRCleaned), marshal(s.ITMCleaned),
		marshal(s.NavmeshFound), marshal(s.PartialForms),
		s.RunID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// LastRun loads the most recently started run's summary, or nil when no run
// has ever been recorded.
func LastRun(ctx context.Context, db *sql.DB) (*Summary, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, game, started_at, COALESCE(finished_at, ''), processed, cleaned,
       failed, udr_cleaned, itm_cleaned, navmesh_found, partial_forms
FROM runs ORDER BY started_at DESC LIMIT 1;
`)

	var s Summary
	var startedAt, finishedAt string
	var failed, udr, itm, navmesh, partial string
	err := row.Scan(&s.RunID, &s.Game, &startedAt, &finishedAt, &s.Processed, &s.Cleaned,
		&failed, &udr, &itm, &navmesh, &partial)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load last run: %w", err)
	}

	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		s.StartedAt = t
	}
	if finishedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			s.FinishedAt = t
		}
	}
	for dst, src := range map[*[]string]string{
		&s.Failed: failed, &s.UDRCleaned: udr, &s.ITMCleaned: itm,
		&s.NavmeshFound: navmesh, &s.PartialForms: partial,
	} {
		if err := json.Unmarshal([]byte(src), dst); err != nil {
			return nil, fmt.Errorf("decode run lists: %w", err)
		}
	}
	return &s, nil
}

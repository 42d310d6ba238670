package clean

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/modkit/espclean/internal/events"
	"github.com/modkit/espclean/internal/journal"
	"github.com/modkit/espclean/internal/log"
	"github.com/modkit/espclean/internal/xedit"
)

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks github.com/modkit/espclean/internal/clean SkipRegistry,PluginSource,ToolRunner

// ErrRunInProgress is returned when a run is requested while another is
// still active. Runs are strictly single-flight.
var ErrRunInProgress = errors.New("a cleaning run is already in progress")

// SkipRegistry answers skip queries and learns non-cleanable plugins.
type SkipRegistry interface {
	ShouldSkip(pluginName string) bool
	RecordNonCleanable(ctx context.Context, pluginName string) error
}

// PluginSource yields the load order's plugin names, load-order sorted.
type PluginSource interface {
	Plugins(ctx context.Context) ([]string, error)
}

// Orchestrator runs the cleaning queue: load order in, summary out.
type Orchestrator struct {
	game     xedit.Game
	exePath  string
	registry SkipRegistry
	source   PluginSource
	runner   ToolRunner
	hub      *events.Hub
	db       *sql.DB
	logger   *slog.Logger

	running atomic.Bool
}

func NewOrchestrator(game xedit.Game, exePath string, registry SkipRegistry, source PluginSource, runner ToolRunner, hub *events.Hub, db *sql.DB) *Orchestrator {
	return &Orchestrator{
		game:     game,
		exePath:  exePath,
		registry: registry,
		source:   source,
		runner:   runner,
		hub:      hub,
		db:       db,
		logger:   log.WithComponent("orchestrator"),
	}
}

// Running reports whether a run is currently active.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Run processes every non-skipped plugin in the load order, one at a time,
// and returns the run summary. A broken tool binding fails the whole run
// before anything is queued; per-plugin failures are recorded and the queue
// moves on. Cancellation fails the in-flight plugin and leaves the rest
// unprocessed.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	if err := xedit.CheckExecutable(o.exePath); err != nil {
		return nil, err
	}

	all, err := o.source.Plugins(ctx)
	if err != nil {
		return nil, fmt.Errorf("read load order: %w", err)
	}

	runID := uuid.NewString()
	summary := newSummary(runID, o.game.Code)
	jrnl := journal.New(o.db, runID)

	// Journal rows and the end-of-run summary describe how the run ended,
	// "cancelled" included; their writes must survive ctx cancellation.
	pctx := context.WithoutCancel(ctx)

	queue := make([]string, 0, len(all))
	for _, plugin := range all {
		if o.registry.ShouldSkip(plugin) {
			summary.Skipped = append(summary.Skipped, plugin)
			jrnl.Record(pctx, plugin, "plugin.skipped", "matched skip list")
			continue
		}
		queue = append(queue, plugin)
	}

	if err := insertRun(pctx, o.db, summary); err != nil {
		return nil, err
	}

	o.logger.Info("run started",
		"run_id", runID, "game", o.game.Code, "queued", len(queue), "skipped", len(summary.Skipped))
	jrnl.Record(pctx, "", "run.started", fmt.Sprintf("%d plugins queued", len(queue)))
	o.hub.Publish(events.TypeRunStarted, summary)

	for i, plugin := range queue {
		// Cancellation that arrived while the previous plugin was still
		// finishing naturally must halt here, before the next launch.
		if ctx.Err() != nil {
			jrnl.Record(pctx, "", "run.cancelled",
				fmt.Sprintf("%d of %d plugins left unprocessed", len(queue)-i, len(queue)))
			break
		}

		jrnl.Record(pctx, plugin, "plugin.started", "")
		o.hub.Publish(events.TypePluginStarted, events.Progress{
			Index: i + 1, Total: len(queue), Plugin: plugin, Message: "cleaning",
		})

		rec := o.runner.Run(ctx, plugin)
		o.recordOutcome(pctx, jrnl, summary, plugin, rec)

		// Counters settle before the event: a plugin.done subscriber
		// always observes this plugin's results included.
		o.hub.Publish(events.TypePluginDone, events.Progress{
			Index: i + 1, Total: len(queue), Plugin: plugin, Message: string(rec.Disposition),
		})

		if rec.FailureReason == xedit.ReasonCancelled {
			jrnl.Record(pctx, "", "run.cancelled",
				fmt.Sprintf("%d of %d plugins left unprocessed", len(queue)-i-1, len(queue)))
			break
		}
	}

	summary.FinishedAt = time.Now().UTC()
	if err := finishRun(pctx, o.db, summary); err != nil {
		o.logger.Warn("could not persist run summary", "run_id", runID, "error", err)
	}

	jrnl.Record(pctx, "", "run.finished",
		fmt.Sprintf("processed %d, cleaned %d, failed %d", summary.Processed, summary.Cleaned, len(summary.Failed)))
	o.hub.Publish(events.TypeRunFinished, summary)
	o.logger.Info("run finished",
		"run_id", runID, "processed", summary.Processed, "cleaned", summary.Cleaned, "failed", len(summary.Failed))

	return summary, nil
}

func (o *Orchestrator) recordOutcome(ctx context.Context, jrnl *journal.Journal, summary *Summary, plugin string, rec xedit.OutcomeRecord) {
	summary.apply(plugin, rec)

	switch rec.Disposition {
	case xedit.DispositionCleaned:
		jrnl.Record(ctx, plugin, "plugin.cleaned", describeFindings(rec))

	case xedit.DispositionNothingToClean:
		jrnl.Record(ctx, plugin, "plugin.nothing_to_clean", "")
		if err := o.registry.RecordNonCleanable(ctx, plugin); err != nil {
			o.logger.Warn("skip list not persisted", "plugin", plugin, "error", err)
		}

	case xedit.DispositionFailed:
		jrnl.Record(ctx, plugin, "plugin.failed", string(rec.FailureReason))
		// A crash on a missing requirement will recur every run until the
		// load order changes; learn the plugin so later runs skip it.
		if rec.FailureReason == xedit.ReasonMissingRequirement {
			if err := o.registry.RecordNonCleanable(ctx, plugin); err != nil {
				o.logger.Warn("skip list not persisted", "plugin", plugin, "error", err)
			}
		}
	}
}

func describeFindings(rec xedit.OutcomeRecord) string {
	var parts []string
	if rec.Undeletes {
		parts = append(parts, "udr")
	}
	if rec.Removals {
		parts = append(parts, "itm")
	}
	if rec.DeletedNavmesh {
		parts = append(parts, "deleted navmesh")
	}
	if rec.PartialForms {
		parts = append(parts, "partial forms")
	}
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}

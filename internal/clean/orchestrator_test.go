package clean

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modkit/espclean/internal/clean/mocks"
	"github.com/modkit/espclean/internal/events"
	"github.com/modkit/espclean/internal/journal"
	"github.com/modkit/espclean/internal/storage"
	"github.com/modkit/espclean/internal/xedit"
)

type fixture struct {
	orch     *Orchestrator
	registry *mocks.MockSkipRegistry
	source   *mocks.MockPluginSource
	runner   *mocks.MockToolRunner
	hub      *events.Hub
	db       *sql.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	exe := filepath.Join(t.TempDir(), "SSEEdit.exe")
	require.NoError(t, os.WriteFile(exe, []byte("stub"), 0o755))

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	game, err := xedit.GameByCode("sse")
	require.NoError(t, err)

	f := &fixture{
		registry: mocks.NewMockSkipRegistry(ctrl),
		source:   mocks.NewMockPluginSource(ctrl),
		runner:   mocks.NewMockToolRunner(ctrl),
		hub:      events.NewHub(64),
		db:       db,
	}
	f.orch = NewOrchestrator(game, exe, f.registry, f.source, f.runner, f.hub, db)
	return f
}

func cleanedRecord() xedit.OutcomeRecord {
	return xedit.OutcomeRecord{
		Undeletes:   true,
		Removals:    true,
		Disposition: xedit.DispositionCleaned,
	}
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"Skyrim.esm", "A.esp", "B.esp"}, nil)
	f.registry.EXPECT().ShouldSkip("Skyrim.esm").Return(true)
	f.registry.EXPECT().ShouldSkip("A.esp").Return(false)
	f.registry.EXPECT().ShouldSkip("B.esp").Return(false)

	f.runner.EXPECT().Run(gomock.Any(), "A.esp").Return(cleanedRecord())
	f.runner.EXPECT().Run(gomock.Any(), "B.esp").Return(xedit.OutcomeRecord{
		Disposition: xedit.DispositionNothingToClean,
	})
	f.registry.EXPECT().RecordNonCleanable(gomock.Any(), "B.esp").Return(nil)

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Cleaned)
	assert.Equal(t, []string{"Skyrim.esm"}, summary.Skipped)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, []string{"A.esp"}, summary.UDRCleaned)
	assert.Equal(t, []string{"A.esp"}, summary.ITMCleaned)
	assert.False(t, summary.FinishedAt.IsZero())
}

func TestRunFailureKeepsQueueMoving(t *testing.T) {
	f := newFixture(t)

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"A.esp", "B.esp"}, nil)
	f.registry.EXPECT().ShouldSkip(gomock.Any()).Return(false).Times(2)

	f.runner.EXPECT().Run(gomock.Any(), "A.esp").Return(xedit.Failed(xedit.ReasonTimedOut))
	f.runner.EXPECT().Run(gomock.Any(), "B.esp").Return(cleanedRecord())

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, []string{"A.esp"}, summary.Failed)
	assert.Equal(t, 1, summary.Cleaned)
}

func TestRunMissingRequirementLearnsSkip(t *testing.T) {
	f := newFixture(t)

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"Broken.esp"}, nil)
	f.registry.EXPECT().ShouldSkip("Broken.esp").Return(false)
	f.runner.EXPECT().Run(gomock.Any(), "Broken.esp").Return(xedit.Failed(xedit.ReasonMissingRequirement))
	// Both outcomes: counted as failed and learned for future skips.
	f.registry.EXPECT().RecordNonCleanable(gomock.Any(), "Broken.esp").Return(nil)

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Broken.esp"}, summary.Failed)
}

func TestRunCancellationStopsQueue(t *testing.T) {
	f := newFixture(t)

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"A.esp", "B.esp", "C.esp"}, nil)
	f.registry.EXPECT().ShouldSkip(gomock.Any()).Return(false).Times(3)

	f.runner.EXPECT().Run(gomock.Any(), "A.esp").Return(cleanedRecord())
	f.runner.EXPECT().Run(gomock.Any(), "B.esp").Return(xedit.Failed(xedit.ReasonCancelled))
	// C.esp is never run.

	summary, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, []string{"B.esp"}, summary.Failed)
}

// Cancellation that lands while a plugin is finishing naturally must stop
// the queue before the next launch, not one plugin later.
func TestRunCancelledBetweenPluginsLaunchesNothingFurther(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"A.esp", "B.esp"}, nil)
	f.registry.EXPECT().ShouldSkip(gomock.Any()).Return(false).Times(2)

	// A.esp completes normally, but the operator cancels while it runs.
	// B.esp has no expectation: any launch attempt fails the test.
	f.runner.EXPECT().Run(gomock.Any(), "A.esp").DoAndReturn(
		func(context.Context, string) xedit.OutcomeRecord {
			cancel()
			return cleanedRecord()
		})

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Cleaned)
	assert.Empty(t, summary.Failed)

	entries, err := journal.List(context.Background(), f.db, summary.RunID)
	require.NoError(t, err)
	var seen []string
	for _, e := range entries {
		seen = append(seen, e.Event)
	}
	assert.Contains(t, seen, "run.cancelled")
	assert.NotContains(t, seen, "plugin.failed")
}

// The journal rows and summary describing a cancelled run must be written
// even though the run's context is already dead.
func TestRunCancelledStillPersistsSummaryAndJournal(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"A.esp", "B.esp"}, nil)
	f.registry.EXPECT().ShouldSkip(gomock.Any()).Return(false).Times(2)
	f.runner.EXPECT().Run(gomock.Any(), "A.esp").DoAndReturn(
		func(context.Context, string) xedit.OutcomeRecord {
			cancel()
			return xedit.Failed(xedit.ReasonCancelled)
		})

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)

	loaded, err := LastRun(context.Background(), f.db)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, summary.RunID, loaded.RunID)
	assert.False(t, loaded.FinishedAt.IsZero())
	assert.Equal(t, []string{"A.esp"}, loaded.Failed)

	entries, err := journal.List(context.Background(), f.db, summary.RunID)
	require.NoError(t, err)
	var seen []string
	for _, e := range entries {
		seen = append(seen, e.Event)
	}
	assert.Contains(t, seen, "run.cancelled")
	assert.Equal(t, "run.finished", seen[len(seen)-1])
}

func TestRunBrokenToolAbortsBeforeQueueing(t *testing.T) {
	f := newFixture(t)
	f.orch.exePath = filepath.Join(t.TempDir(), "absent.exe")

	_, err := f.orch.Run(context.Background())
	require.ErrorIs(t, err, xedit.ErrNoExecutable)
}

func TestRunSingleFlight(t *testing.T) {
	f := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"A.esp"}, nil)
	f.registry.EXPECT().ShouldSkip("A.esp").Return(false)
	f.runner.EXPECT().Run(gomock.Any(), "A.esp").DoAndReturn(
		func(context.Context, string) xedit.OutcomeRecord {
			close(started)
			<-release
			return cleanedRecord()
		})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(context.Background())
		done <- err
	}()

	<-started
	_, err := f.orch.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.True(t, f.orch.Running())

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.orch.Running())
}

func TestRunPublishesProgressEvents(t *testing.T) {
	f := newFixture(t)

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"A.esp"}, nil)
	f.registry.EXPECT().ShouldSkip("A.esp").Return(false)
	f.runner.EXPECT().Run(gomock.Any(), "A.esp").Return(cleanedRecord())

	_, err := f.orch.Run(context.Background())
	require.NoError(t, err)

	var types []string
	for _, ev := range f.hub.SnapshotSince(0) {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{
		events.TypeRunStarted,
		events.TypePluginStarted,
		events.TypePluginDone,
		events.TypeRunFinished,
	}, types)
}

func TestRunPersistsSummaryAndJournal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.source.EXPECT().Plugins(gomock.Any()).Return([]string{"A.esp"}, nil)
	f.registry.EXPECT().ShouldSkip("A.esp").Return(false)
	f.runner.EXPECT().Run(gomock.Any(), "A.esp").Return(cleanedRecord())

	summary, err := f.orch.Run(ctx)
	require.NoError(t, err)

	loaded, err := LastRun(ctx, f.db)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, summary.RunID, loaded.RunID)
	assert.Equal(t, 1, loaded.Processed)
	assert.Equal(t, 1, loaded.Cleaned)
	assert.Equal(t, []string{"A.esp"}, loaded.UDRCleaned)

	entries, err := journal.List(ctx, f.db, summary.RunID)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "run.started", entries[0].Event)
	assert.Equal(t, "run.finished", entries[len(entries)-1].Event)
}

func TestLastRunEmptyDatabase(t *testing.T) {
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()

	loaded, err := LastRun(context.Background(), db)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// Guard against the summary's started_at ordering assumption in LastRun.
func TestLastRunPicksNewest(t *testing.T) {
	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer db.Close()

	old := newSummary("run-old", "sse")
	old.StartedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, insertRun(ctx, db, old))
	old.FinishedAt = old.StartedAt.Add(time.Minute)
	require.NoError(t, finishRun(ctx, db, old))

	fresh := newSummary("run-new", "sse")
	require.NoError(t, insertRun(ctx, db, fresh))
	fresh.FinishedAt = time.Now().UTC()
	require.NoError(t, finishRun(ctx, db, fresh))

	loaded, err := LastRun(ctx, db)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "run-new", loaded.RunID)
}

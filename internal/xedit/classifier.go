package xedit

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/modkit/espclean/internal/log"
)

// Primary-log line prefixes, matched case-insensitively after trimming
// leading whitespace.
const (
	markerUndeleting    = "undeleting:"
	markerRemoving      = "removing:"
	markerSkipping      = "skipping:" // deleted navmesh the tool refused to touch
	markerMakingPartial = "making partial form:"
)

// logSettleTimeout bounds the wait for the primary log to appear after the
// tool exits; the file is flushed asynchronously and may lag the process.
const (
	logSettleTimeout = 2 * time.Second
	logSettlePoll    = 100 * time.Millisecond
)

// Classifier reads a job's primary log after a natural exit and turns it
// into an OutcomeRecord. It must only run on jobs the watchdog concluded
// with VerdictCompleted: an aborted tool leaves logs that lie.
type Classifier struct {
	// PreserveLogs leaves the tool's log files in place after
	// classification instead of consuming them.
	PreserveLogs bool

	logger *slog.Logger
}

func NewClassifier(preserveLogs bool) *Classifier {
	return &Classifier{
		PreserveLogs: preserveLogs,
		logger:       log.WithComponent("classifier"),
	}
}

// Classify inspects the primary log and consumes both log files. An absent
// primary log means the tool had nothing to report: nothing to clean. An
// unreadable one is a failure of this run, not of the plugin's content.
func (c *Classifier) Classify(ctx context.Context, job *Job) OutcomeRecord {
	path, err := c.awaitLog(ctx, job.PrimaryLogPath())
	if err != nil {
		// An interrupted wait says nothing about the plugin: the log may
		// merely be late. Never let this outcome feed the skip list.
		if ctx.Err() != nil {
			c.logger.Warn("classification interrupted", "job_id", job.ID, "plugin", job.Plugin)
			return Failed(ReasonCancelled)
		}
		c.logger.Error("primary log unreadable", "job_id", job.ID, "plugin", job.Plugin, "error", err)
		return Failed(ReasonClassification)
	}

	var rec OutcomeRecord
	if path == "" {
		rec.Disposition = DispositionNothingToClean
		c.logger.Info("no primary log after exit, nothing to clean",
			"job_id", job.ID, "plugin", job.Plugin)
		c.consumeLogs(job)
		return rec
	}

	if err := scanPrimaryLog(path, &rec); err != nil {
		c.logger.Error("primary log unreadable", "job_id", job.ID, "plugin", job.Plugin, "error", err)
		c.consumeLogs(job)
		return Failed(ReasonClassification)
	}

	if rec.Undeletes || rec.Removals || rec.DeletedNavmesh || rec.PartialForms {
		rec.Disposition = DispositionCleaned
	} else {
		rec.Disposition = DispositionNothingToClean
	}

	c.logger.Info("classified outcome",
		"job_id", job.ID, "plugin", job.Plugin, "disposition", rec.Disposition,
		"udr", rec.Undeletes, "itm", rec.Removals,
		"navmesh", rec.DeletedNavmesh, "partial_forms", rec.PartialForms)

	c.consumeLogs(job)
	return rec
}

// awaitLog polls briefly for the primary log. Returns ("", nil) when the
// file never appears within the settle window, (path, nil) once it exists,
// and ctx.Err() when cancellation cuts the wait short.
func (c *Classifier) awaitLog(ctx context.Context, path string) (string, error) {
	deadline := time.Now().Add(logSettleTimeout)
	for {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			return path, nil
		case !os.IsNotExist(err):
			return "", fmt.Errorf("stat primary log: %w", err)
		}

		if time.Now().After(deadline) {
			return "", nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(logSettlePoll):
		}
	}
}

func scanPrimaryLog(path string, rec *OutcomeRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open primary log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		switch {
		case strings.HasPrefix(line, markerUndeleting):
			rec.Undeletes = true
		case strings.HasPrefix(line, markerRemoving):
			rec.Removals = true
		case strings.HasPrefix(line, markerSkipping):
			rec.DeletedNavmesh = true
		case strings.HasPrefix(line, markerMakingPartial):
			rec.PartialForms = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read primary log: %w", err)
	}
	return nil
}

// consumeLogs removes both log files so a stale log can never be read as
// the next job's outcome. Deletion failure degrades the run, it does not
// fail it.
func (c *Classifier) consumeLogs(job *Job) {
	if c.PreserveLogs {
		return
	}
	for _, path := range []string{job.PrimaryLogPath(), job.ExceptionLogPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("could not remove tool log", "path", path, "error", err)
		}
	}
}

// Package xedit supervises the external xEdit-family cleaning tool: it
// builds invocations, bounds their execution, and classifies what the tool
// did from its log files. The tool exposes no structured return value; its
// process lifetime and two text logs are the only observable outputs.
package xedit

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// ErrNoExecutable marks a missing or unusable tool executable. Detected at
// run start it aborts the whole run before anything is queued.
var ErrNoExecutable = errors.New("cleaning tool executable not found")

// Job is one plugin's cleaning session. Owned exclusively by the
// orchestrator for the duration of one plugin's processing.
type Job struct {
	ID         string
	Plugin     string
	Invocation Invocation
	Timeout    time.Duration
	StartedAt  time.Time
}

// NewJob builds the job for one plugin: invocation arguments, timeout, and
// the deterministic log paths derived from the invocation.
func NewJob(exePath string, game Game, plugin string, timeout time.Duration, allowPartialForms bool) *Job {
	return &Job{
		ID:     uuid.NewString(),
		Plugin: plugin,
		Invocation: Invocation{
			ExePath:           exePath,
			Game:              game,
			Plugin:            plugin,
			AllowPartialForms: allowPartialForms,
		},
		Timeout: timeout,
	}
}

// PrimaryLogPath is the tool's result log for this job.
func (j *Job) PrimaryLogPath() string { return j.Invocation.PrimaryLogPath() }

// ExceptionLogPath is the tool's exception log for this job.
func (j *Job) ExceptionLogPath() string { return j.Invocation.ExceptionLogPath() }

// FailureReason categorizes why a job failed.
type FailureReason string

const (
	ReasonSpawnFailed        FailureReason = "spawn_failed"
	ReasonTimedOut           FailureReason = "timed_out"
	ReasonUnresponsive       FailureReason = "unresponsive"
	ReasonMissingRequirement FailureReason = "missing_requirement"
	ReasonCancelled          FailureReason = "cancelled"
	ReasonClassification     FailureReason = "classification_error"
)

// Disposition is a job's terminal outcome. Exactly one per job.
type Disposition string

const (
	DispositionCleaned        Disposition = "cleaned"
	DispositionNothingToClean Disposition = "nothing_to_clean"
	DispositionFailed         Disposition = "failed"
)

// OutcomeRecord captures what the tool did to one plugin, as read from its
// primary log.
type OutcomeRecord struct {
	Undeletes      bool `json:"undeletes"`       // UDR: undeleted and disabled references
	Removals       bool `json:"removals"`        // ITM: identical-to-master records removed
	DeletedNavmesh bool `json:"deleted_navmesh"` // NVM: deleted navmeshes found
	PartialForms   bool `json:"partial_forms"`   // partial forms created

	Disposition   Disposition   `json:"disposition"`
	FailureReason FailureReason `json:"failure_reason,omitempty"`
}

// Failed builds the OutcomeRecord for a job that never produced a
// trustworthy log.
func Failed(reason FailureReason) OutcomeRecord {
	return OutcomeRecord{Disposition: DispositionFailed, FailureReason: reason}
}

// CheckExecutable verifies the tool binding before any plugin is queued.
func CheckExecutable(exePath string) error {
	if exePath == "" {
		return fmt.Errorf("%w: tool path is empty", ErrNoExecutable)
	}
	info, err := os.Stat(exePath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoExecutable, exePath)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNoExecutable, exePath)
	}
	return nil
}

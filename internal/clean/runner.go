package clean

import (
	"context"
	"log/slog"
	"time"

	"github.com/modkit/espclean/internal/log"
	"github.com/modkit/espclean/internal/xedit"
)

// ToolRunner executes one plugin's cleaning session end to end and reports
// its final outcome. Every failure mode collapses into the OutcomeRecord;
// a session never errors out of the run loop.
type ToolRunner interface {
	Run(ctx context.Context, plugin string) xedit.OutcomeRecord
}

// SessionRunner is the production ToolRunner: launch, watchdog race,
// classification.
type SessionRunner struct {
	exePath           string
	game              xedit.Game
	timeout           time.Duration
	allowPartialForms bool

	sup        *xedit.Supervisor
	watchdog   *xedit.Watchdog
	classifier *xedit.Classifier
	logger     *slog.Logger
}

// SessionConfig carries the tool binding for a run's sessions.
type SessionConfig struct {
	ExePath           string
	Game              xedit.Game
	Timeout           time.Duration
	PollInterval      time.Duration
	GracePeriod       time.Duration
	AllowPartialForms bool
	PreserveLogs      bool
}

func NewSessionRunner(cfg SessionConfig) *SessionRunner {
	return &SessionRunner{
		exePath:           cfg.ExePath,
		game:              cfg.Game,
		timeout:           cfg.Timeout,
		allowPartialForms: cfg.AllowPartialForms,
		sup:               xedit.NewSupervisor(cfg.GracePeriod),
		watchdog:          xedit.NewWatchdog(cfg.PollInterval, cfg.Timeout),
		classifier:        xedit.NewClassifier(cfg.PreserveLogs),
		logger:            log.WithComponent("session"),
	}
}

// Run processes one plugin. The classifier only sees jobs whose watchdog
// race ended in a natural exit; any abort verdict wins over whatever the
// log files might say.
func (r *SessionRunner) Run(ctx context.Context, plugin string) xedit.OutcomeRecord {
	job := xedit.NewJob(r.exePath, r.game, plugin, r.timeout, r.allowPartialForms)

	h, err := r.sup.Launch(job)
	if err != nil {
		r.logger.Error("could not launch tool", "plugin", plugin, "error", err)
		return xedit.Failed(xedit.ReasonSpawnFailed)
	}

	verdict := r.watchdog.Watch(ctx, r.sup, h, job)
	if verdict != xedit.VerdictCompleted {
		return xedit.Failed(verdict.FailureReason())
	}

	return r.classifier.Classify(ctx, job)
}

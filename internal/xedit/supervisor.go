package xedit

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modkit/espclean/internal/log"
)

// Supervisor launches the cleaning tool and owns its process lifecycle:
// exit signalling through the handle's done channel and an idempotent
// terminate.
type Supervisor struct {
	grace  time.Duration
	logger *slog.Logger
}

func NewSupervisor(grace time.Duration) *Supervisor {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Supervisor{
		grace:  grace,
		logger: log.WithComponent("supervisor"),
	}
}

// Handle is a running (or exited) tool process. The goroutine started by
// Launch is the sole caller of cmd.Wait; everyone else coordinates through
// the done channel.
type Handle struct {
	cmd       *exec.Cmd
	startedAt time.Time
	done      chan struct{}
	waitErr   error
}

// PID returns the tool's OS process id.
func (h *Handle) PID() int { return h.cmd.Process.Pid }

// StartedAt is the recorded launch timestamp.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Done is closed when the process has exited, naturally or by force.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Exited reports whether the process has already exited.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Launch validates the executable, spawns the tool, and records the start
// timestamp. A spawn failure aborts only the current job.
func (s *Supervisor) Launch(job *Job) (*Handle, error) {
	if err := CheckExecutable(job.Invocation.ExePath); err != nil {
		return nil, err
	}

	cmd := exec.Command(job.Invocation.ExePath, job.Invocation.Args()...)
	cmd.Dir = filepath.Dir(job.Invocation.ExePath)

	s.logger.Debug("launching tool",
		"job_id", job.ID, "plugin", job.Plugin, "args", job.Invocation.Args())

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start tool: %w", err)
	}

	h := &Handle{
		cmd:       cmd,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	job.StartedAt = h.startedAt

	go func() {
		h.waitErr = cmd.Wait()
		if h.waitErr != nil {
			// The tool's exit code carries no outcome; the log files do.
			s.logger.Debug("tool exited with error", "job_id", job.ID, "error", h.waitErr)
		}
		close(h.done)
	}()

	s.logger.Info("tool started", "job_id", job.ID, "plugin", job.Plugin, "pid", h.PID())
	return h, nil
}

// Terminate stops the process: graceful close request, a grace interval,
// then force-kill. Terminating an already-exited process is a no-op —
// "already exited" is success, not an error.
func (s *Supervisor) Terminate(h *Handle) {
	if h.Exited() {
		return
	}

	s.logger.Warn("terminating tool", "pid", h.PID())
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Signal fails if the process just exited; the wait below settles it.
		s.logger.Debug("graceful close request failed", "pid", h.PID(), "error", err)
	}

	grace := time.NewTimer(s.grace)
	defer grace.Stop()

	select {
	case <-h.done:
		s.logger.Info("tool exited after close request", "pid", h.PID())
	case <-grace.C:
		s.logger.Warn("tool did not exit within grace period, killing", "pid", h.PID())
		if err := h.cmd.Process.Kill(); err != nil {
			s.logger.Debug("kill failed", "pid", h.PID(), "error", err)
		}
		<-h.done
	}
}

package xedit

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/modkit/espclean/internal/log"
)

// Verdict is how one job's supervision race concluded.
type Verdict string

const (
	// VerdictCompleted: the tool exited on its own; the log is trustworthy.
	VerdictCompleted Verdict = "completed"
	// VerdictTimedOut: wall-clock budget exhausted; process killed.
	VerdictTimedOut Verdict = "timed_out"
	// VerdictUnresponsive: no CPU progress and failing liveness checks.
	VerdictUnresponsive Verdict = "unresponsive"
	// VerdictMissingRequirement: fatal signature in the exception log.
	VerdictMissingRequirement Verdict = "missing_requirement"
	// VerdictCancelled: external cancellation won the race.
	VerdictCancelled Verdict = "cancelled"
)

// FailureReason maps an abort verdict to the job failure taxonomy.
func (v Verdict) FailureReason() FailureReason {
	switch v {
	case VerdictTimedOut:
		return ReasonTimedOut
	case VerdictUnresponsive:
		return ReasonUnresponsive
	case VerdictMissingRequirement:
		return ReasonMissingRequirement
	case VerdictCancelled:
		return ReasonCancelled
	}
	return ""
}

// fatalSignatures are exception-log substrings indicating the tool aborted
// on a missing required dependency. Matched case-insensitively.
var fatalSignatures = []string{
	"required file not found",
	"cannot find master",
	"could not open registry key",
}

// Vitals is one sample of the tool process's health.
type Vitals struct {
	CPUSeconds float64
	Responding bool
}

// VitalsProbe samples process vitals. The default probe reads them from the
// OS; tests substitute their own.
type VitalsProbe interface {
	Sample(pid int) (Vitals, error)
}

// cpuStallEpsilon is the CPU-time delta below which a sample counts as "no
// progress". Interactive tools idle at near-zero CPU too, which is why a
// stall alone never aborts — the liveness check must also fail.
const cpuStallEpsilon = 0.005

// Watchdog polls a running job's vitals and decides when to forcibly abort.
// It races the supervisor's natural-exit wait; whichever concludes first
// determines the job's fate. The stall heuristic is best-effort and cannot
// catch every hang; the wall-clock timeout is the backstop.
type Watchdog struct {
	interval time.Duration
	timeout  time.Duration
	probe    VitalsProbe
	logger   *slog.Logger
}

func NewWatchdog(interval, timeout time.Duration) *Watchdog {
	return &Watchdog{
		interval: interval,
		timeout:  timeout,
		probe:    gopsutilProbe{},
		logger:   log.WithComponent("watchdog"),
	}
}

// Watch runs the polling race for one job. On any abort condition the
// process is terminated via sup before the verdict is returned; on natural
// exit polling stops immediately with no dangling timers. Only
// VerdictCompleted leaves the log files trustworthy.
func (w *Watchdog) Watch(ctx context.Context, sup *Supervisor, h *Handle, job *Job) Verdict {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastCPU float64
	sampled := false

	for {
		select {
		case <-h.Done():
			return VerdictCompleted

		case <-ctx.Done():
			// External cancellation joins the race with equal priority.
			sup.Terminate(h)
			return VerdictCancelled

		case <-ticker.C:
			// Abort conditions in order: stall heuristic, timeout,
			// exception signature.
			vitals, err := w.probe.Sample(h.PID())
			if err == nil {
				stalled := sampled && vitals.CPUSeconds-lastCPU < cpuStallEpsilon
				if stalled && !vitals.Responding {
					w.logger.Warn("tool unresponsive with no CPU progress",
						"job_id", job.ID, "plugin", job.Plugin, "pid", h.PID())
					sup.Terminate(h)
					return VerdictUnresponsive
				}
				lastCPU = vitals.CPUSeconds
				sampled = true
			} else if h.Exited() {
				// Probe failed because the process is gone; the done
				// channel settles the race on the next iteration.
				continue
			}

			if elapsed := time.Since(job.StartedAt); elapsed > w.timeout {
				w.logger.Warn("tool exceeded timeout",
					"job_id", job.ID, "plugin", job.Plugin, "elapsed", elapsed, "timeout", w.timeout)
				sup.Terminate(h)
				return VerdictTimedOut
			}

			if sig := scanExceptionLog(job.ExceptionLogPath()); sig != "" {
				w.logger.Warn("fatal signature in exception log",
					"job_id", job.ID, "plugin", job.Plugin, "signature", sig)
				sup.Terminate(h)
				return VerdictMissingRequirement
			}
		}
	}
}

// scanExceptionLog returns the first fatal signature found in the exception
// log, or "" when the file is absent or clean. Read errors are treated as
// "clean": an unreadable exception log is not evidence of a crash.
func scanExceptionLog(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.ToLower(scanner.Text())
		for _, sig := range fatalSignatures {
			if strings.Contains(line, sig) {
				return sig
			}
		}
	}
	return ""
}

// gopsutilProbe samples vitals from the OS.
type gopsutilProbe struct{}

func (gopsutilProbe) Sample(pid int) (Vitals, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return Vitals{}, err
	}

	times, err := proc.Times()
	if err != nil {
		return Vitals{}, err
	}

	responding := true
	if running, err := proc.IsRunning(); err == nil && !running {
		responding = false
	}
	if statuses, err := proc.Status(); err == nil && slices.Contains(statuses, process.Zombie) {
		responding = false
	}

	return Vitals{
		CPUSeconds: times.User + times.System,
		Responding: responding,
	}, nil
}

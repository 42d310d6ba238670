// Package doctor validates espclean configuration and the environment it
// will run in, before any plugin is queued.
package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modkit/espclean/internal/config"
	"github.com/modkit/espclean/internal/xedit"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration against the filesystem.
type Doctor struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateTool(r)
	d.validateLoadOrder(r)
	d.validateState(r)
	d.validateAPIConfig(r)
	d.warnRiskySettings(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateTool checks the cleaning tool binding: executable present, game
// code known.
func (d *Doctor) validateTool(r *Result) {
	if err := xedit.CheckExecutable(d.cfg.Tool.Path); err != nil {
		d.addError(r, "tool", "tool.path", err.Error())
	}
	if _, err := xedit.GameByCode(d.cfg.Tool.Game); err != nil {
		d.addError(r, "tool", "tool.game", err.Error())
	}
}

// validateLoadOrder checks that the load-order file is readable.
func (d *Doctor) validateLoadOrder(r *Result) {
	f, err := os.Open(d.cfg.LoadOrder.Path)
	if err != nil {
		d.addError(r, "load_order", "load_order.path",
			fmt.Sprintf("load order file not readable: %v", err))
		return
	}
	_ = f.Close()
}

// validateState checks that the state database's directory is writable.
func (d *Doctor) validateState(r *Result) {
	dir := filepath.Dir(d.cfg.State.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.addError(r, "state", "state.path",
			fmt.Sprintf("state directory %q not creatable: %v", dir, err))
		return
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		d.addError(r, "state", "state.path",
			fmt.Sprintf("state directory %q not writable: %v", dir, err))
		return
	}
	_ = os.Remove(probe)
}

// validateAPIConfig checks API server settings.
func (d *Doctor) validateAPIConfig(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when API is enabled")
	}
	if d.cfg.API.Auth.APIKey == "" {
		d.addWarning(r, "api", "api.auth", "API enabled but no authentication configured")
	}
}

func (d *Doctor) warnRiskySettings(r *Result) {
	if t := d.cfg.Tool.Timeout; t > 0 && t < 30*time.Second {
		d.addWarning(r, "tool", "tool.timeout",
			fmt.Sprintf("timeout %s is very low; large plugins routinely take minutes", t))
	}
	if d.cfg.Tool.AllowPartialForms {
		d.addWarning(r, "tool", "tool.allow_partial_forms",
			"partial-form cleaning is experimental and changes plugin contents")
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

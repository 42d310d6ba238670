package doctor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modkit/espclean/internal/config"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	exe := filepath.Join(dir, "SSEEdit.exe")
	if err := os.WriteFile(exe, []byte("stub"), 0o755); err != nil {
		t.Fatal(err)
	}
	loadOrder := filepath.Join(dir, "plugins.txt")
	if err := os.WriteFile(loadOrder, []byte("MyMod.esp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Defaults()
	cfg.Tool.Path = exe
	cfg.Tool.Game = "sse"
	cfg.State.Path = filepath.Join(dir, "data", "state.db")
	cfg.LoadOrder.Path = loadOrder
	return cfg
}

func TestValidateHealthySetup(t *testing.T) {
	r := New(validConfig(t)).Validate()

	if !r.Valid {
		t.Fatalf("expected valid, got errors: %+v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", r.Warnings)
	}
}

func TestValidateMissingTool(t *testing.T) {
	cfg := validConfig(t)
	cfg.Tool.Path = filepath.Join(t.TempDir(), "absent.exe")

	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if len(r.Errors) != 1 || r.Errors[0].Field != "tool.path" {
		t.Errorf("errors = %+v", r.Errors)
	}
}

func TestValidateUnknownGame(t *testing.T) {
	cfg := validConfig(t)
	cfg.Tool.Game = "doom"

	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if r.Errors[0].Field != "tool.game" {
		t.Errorf("errors = %+v", r.Errors)
	}
}

func TestValidateUnreadableLoadOrder(t *testing.T) {
	cfg := validConfig(t)
	cfg.LoadOrder.Path = filepath.Join(t.TempDir(), "absent.txt")

	r := New(cfg).Validate()
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if r.Errors[0].Field != "load_order.path" {
		t.Errorf("errors = %+v", r.Errors)
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := validConfig(t)
	cfg.Tool.Timeout = 5 * time.Second
	cfg.Tool.AllowPartialForms = true
	cfg.API.Enabled = true
	cfg.API.Listen = "127.0.0.1:8089"
	cfg.API.Auth.APIKey = ""

	r := New(cfg).Validate()
	if !r.Valid {
		t.Fatalf("warnings must not invalidate: %+v", r.Errors)
	}
	if len(r.Warnings) != 3 {
		t.Errorf("warnings = %+v", r.Warnings)
	}
}

func TestFormatHuman(t *testing.T) {
	cfg := validConfig(t)
	out := FormatHuman(New(cfg).Validate())
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}

	cfg.Tool.Game = "doom"
	out = FormatHuman(New(cfg).Validate())
	if !strings.Contains(out, "Configuration invalid") || !strings.Contains(out, "ERROR") {
		t.Errorf("output = %q", out)
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(New(validConfig(t)).Validate())
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) {
		t.Errorf("output = %q", out)
	}
}

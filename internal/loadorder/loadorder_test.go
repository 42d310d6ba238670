package loadorder

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeLoadOrder(t *testing.T, content string) *FileProvider {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugins.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write load order: %v", err)
	}
	return NewFileProvider(path)
}

func TestPluginsPlainFormat(t *testing.T) {
	p := writeLoadOrder(t, `
# managed by mod manager
Skyrim.esm
Update.esm
MyMod.esp
readme.txt
`)

	got, err := p.Plugins(context.Background())
	if err != nil {
		t.Fatalf("Plugins: %v", err)
	}
	want := []string{"Skyrim.esm", "Update.esm", "MyMod.esp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPluginsStarredFormat(t *testing.T) {
	p := writeLoadOrder(t, `
*Skyrim.esm
Inactive.esp
*Active.esp
`)

	got, err := p.Plugins(context.Background())
	if err != nil {
		t.Fatalf("Plugins: %v", err)
	}
	want := []string{"Skyrim.esm", "Active.esp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPluginsDedupeCaseInsensitive(t *testing.T) {
	p := writeLoadOrder(t, `
MyMod.esp
mymod.esp
Other.esl
`)

	got, err := p.Plugins(context.Background())
	if err != nil {
		t.Fatalf("Plugins: %v", err)
	}
	want := []string{"MyMod.esp", "Other.esl"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPluginsMissingFile(t *testing.T) {
	p := NewFileProvider(filepath.Join(t.TempDir(), "absent.txt"))
	if _, err := p.Plugins(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPluginsCancelledContext(t *testing.T) {
	p := writeLoadOrder(t, "MyMod.esp\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Plugins(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

// Package loadorder adapts the external plugin-enumeration service: it
// yields the ordered list of plugin filenames a cleaning run iterates over.
package loadorder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider yields the ordered plugin queue for a run.
type Provider interface {
	Plugins(ctx context.Context) ([]string, error)
}

// FileProvider reads a plugins.txt-style load-order file: one plugin
// filename per line, '#' comments, and (in the newer game format) a '*'
// prefix marking active plugins.
type FileProvider struct {
	Path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Plugins parses the load-order file. When any line carries the '*' active
// marker the file is treated as the newer format and only starred lines are
// returned; otherwise every listed plugin is returned. Order is preserved,
// duplicates are dropped case-insensitively.
func (p *FileProvider) Plugins(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("open load order file: %w", err)
	}
	defer f.Close()

	type entry struct {
		name   string
		active bool
	}
	var entries []entry
	starred := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		active := false
		if strings.HasPrefix(line, "*") {
			active = true
			starred = true
			line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		}
		if !isPluginFile(line) {
			continue
		}
		entries = append(entries, entry{name: line, active: active})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read load order file: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	var plugins []string
	for _, e := range entries {
		if starred && !e.active {
			continue
		}
		key := strings.ToLower(e.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		plugins = append(plugins, e.name)
	}
	return plugins, nil
}

func isPluginFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".esp") ||
		strings.HasSuffix(lower, ".esm") ||
		strings.HasSuffix(lower, ".esl")
}

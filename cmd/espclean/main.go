package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/modkit/espclean/internal/api"
	"github.com/modkit/espclean/internal/clean"
	"github.com/modkit/espclean/internal/config"
	"github.com/modkit/espclean/internal/doctor"
	"github.com/modkit/espclean/internal/events"
	"github.com/modkit/espclean/internal/loadorder"
	"github.com/modkit/espclean/internal/lock"
	"github.com/modkit/espclean/internal/log"
	"github.com/modkit/espclean/internal/skiplist"
	"github.com/modkit/espclean/internal/storage"
	"github.com/modkit/espclean/internal/xedit"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "run":
		return runRun(args)
	case "check":
		return runCheck(args)
	case "serve":
		return runServe(args)
	case "config":
		return runConfigNoun(args)
	case "skiplist":
		return runSkiplistNoun(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`espclean - Batch plugin cleaning via the xEdit family of tools

Usage:
  espclean <command> [flags]

Commands:
  run               Clean every non-skipped plugin in the load order
  check             Validate configuration and environment (doctor)
  serve             Serve the status/summary API without starting a run
  config lock       Authorize current config (update integrity hashes)
  config check      Validate config syntax and integrity
  config show       Print the effective configuration
  skiplist list     Show baseline and learned skip entries
  skiplist add      Add a plugin to the learned skip list
  version           Show version information
  help              Show this help message

Use 'espclean <command> -h' for command-specific flags.
`)
}

// loadConfigArg resolves the --config flag, falling back to discovery.
func loadConfigArg(configPath string) (*config.Config, string, error) {
	if configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			return nil, "", err
		}
		configPath = discovered
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}
	return cfg, configPath, nil
}

func pidLockPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.State.Path), "espclean.pid")
}

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, usedPath, err := loadConfigArg(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("espclean starting", "version", version, "config", usedPath)

	game, err := xedit.GameByCode(cfg.Tool.Game)
	if err != nil {
		logger.Error("invalid game code", "error", err)
		return 1
	}

	lockPath := pidLockPath(cfg)
	pidLock, err := lock.Acquire(lockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", lockPath, "error", err)
		return 1
	}
	defer pidLock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()

	registry, err := skiplist.NewRegistry(ctx, db, game.Code)
	if err != nil {
		logger.Error("failed to load skip list", "error", err)
		return 1
	}

	provider := loadorder.NewFileProvider(cfg.LoadOrder.Path)
	hub := events.NewHub(256)

	runner := clean.NewSessionRunner(clean.SessionConfig{
		ExePath:           cfg.Tool.Path,
		Game:              game,
		Timeout:           cfg.Tool.Timeout,
		PollInterval:      cfg.Tool.PollInterval,
		GracePeriod:       cfg.Tool.GracePeriod,
		AllowPartialForms: cfg.Tool.AllowPartialForms,
		PreserveLogs:      cfg.Tool.PreserveLogs,
	})
	orch := clean.NewOrchestrator(game, cfg.Tool.Path, registry, provider, runner, hub, db)

	if cfg.API.Enabled {
		apiServer := api.New(api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
			Game:   game.Code,
		}, orch, hub, db, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				logger.Error("api server failed", "error", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	// First signal cancels the run (current plugin is terminated, the rest
	// stay unprocessed); a second signal exits immediately.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal, cancelling run", "signal", sig)
		cancel()
		sig = <-sigCh
		logger.Error("second signal, exiting immediately", "signal", sig)
		os.Exit(1)
	}()

	summary, err := orch.Run(ctx)
	if err != nil {
		logger.Error("run failed", "error", err)
		return 1
	}

	printSummary(summary)
	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}

func printSummary(s *clean.Summary) {
	fmt.Printf("\nRun %s (%s)\n", s.RunID, s.Game)
	fmt.Printf("  processed: %d\n", s.Processed)
	fmt.Printf("  cleaned:   %d\n", s.Cleaned)
	fmt.Printf("  skipped:   %d\n", len(s.Skipped))
	printList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Printf("  %s (%d):\n", label, len(items))
		for _, item := range items {
			fmt.Printf("    %s\n", item)
		}
	}
	printList("failed", s.Failed)
	printList("udr cleaned", s.UDRCleaned)
	printList("itm cleaned", s.ITMCleaned)
	printList("deleted navmesh found", s.NavmeshFound)
	printList("partial forms created", s.PartialForms)
}

// idleStatus is the RunStatus for API-only serving: no run ever starts.
type idleStatus struct{}

func (idleStatus) Running() bool { return false }

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, usedPath, err := loadConfigArg(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("espclean API serving", "version", version, "config", usedPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	apiServer := api.New(api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.Auth.APIKey,
		Game:   strings.ToLower(cfg.Tool.Game),
	}, idleStatus{}, events.NewHub(256), db, log.WithComponent("api"))
	if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("api server failed", "error", err)
		return 1
	}
	return 0
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output result as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfigArg(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: espclean config <lock|check|show> [flags]")
		return 1
	}
	switch args[0] {
	case "lock":
		return runConfigLock(args[1:])
	case "check":
		return runConfigCheck(args[1:])
	case "show":
		return runConfigShow(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("config lock", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	dryRun := fs.Bool("dry-run", false, "Compute hashes without writing")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	target := *configPath
	if target == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		target = discovered
	}

	report, err := config.GenerateChecksums(target, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate checksums: %v\n", err)
		return 1
	}

	if *dryRun {
		fmt.Printf("Would write %s\n  %s: %s\n", report.ChecksumPath, filepath.Base(report.ConfigPath), report.Hash)
		return 0
	}
	fmt.Printf("Locked %s\n  %s: %s\n", report.ChecksumPath, filepath.Base(report.ConfigPath), report.Hash)
	return 0
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("config check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	if _, _, err := loadConfigArg(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Config invalid: %v\n", err)
		return 1
	}
	fmt.Println("Config valid.")
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output as JSON instead of YAML")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfigArg(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Redact the API key before printing.
	if cfg.API.Auth.APIKey != "" {
		cfg.API.Auth.APIKey = "<redacted>"
	}

	if *jsonOut {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render YAML: %v\n", err)
		return 1
	}
	fmt.Print(string(data))
	return 0
}

func runSkiplistNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: espclean skiplist <list|add> [flags]")
		return 1
	}
	switch args[0] {
	case "list":
		return runSkiplistList(args[1:])
	case "add":
		return runSkiplistAdd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown skiplist action: %s\n", args[0])
		return 1
	}
}

func openRegistry(configPath string) (*skiplist.Registry, func(), error) {
	cfg, _, err := loadConfigArg(configPath)
	if err != nil {
		return nil, nil, err
	}

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return nil, nil, err
	}

	registry, err := skiplist.NewRegistry(ctx, db, strings.ToLower(cfg.Tool.Game))
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return registry, func() { _ = db.Close() }, nil
}

func runSkiplistList(args []string) int {
	fs := flag.NewFlagSet("skiplist list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, _, err := loadConfigArg(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	game := strings.ToLower(cfg.Tool.Game)

	fmt.Printf("Baseline (%s):\n", game)
	for _, entry := range skiplist.Baseline(game) {
		fmt.Printf("  %s\n", entry)
	}

	registry, closeDB, err := openRegistry(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open skip list: %v\n", err)
		return 1
	}
	defer closeDB()

	learned := registry.Learned()
	sort.Strings(learned)
	fmt.Println("Learned:")
	if len(learned) == 0 {
		fmt.Println("  (none)")
	}
	for _, entry := range learned {
		fmt.Printf("  %s\n", entry)
	}
	return 0
}

func runSkiplistAdd(args []string) int {
	fs := flag.NewFlagSet("skiplist add", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: espclean skiplist add [--config path] <plugin>")
		return 1
	}
	plugin := fs.Arg(0)

	registry, closeDB, err := openRegistry(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open skip list: %v\n", err)
		return 1
	}
	defer closeDB()

	if err := registry.RecordNonCleanable(context.Background(), plugin); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to add skip entry: %v\n", err)
		return 1
	}
	fmt.Printf("Added %q to the skip list.\n", plugin)
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    gitCommit,
		BuildTime: buildDate,
	}

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("espclean %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

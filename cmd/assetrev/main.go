package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetrev/internal/assets"
	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/metrics"
	"git.home.luguber.info/inful/assetrev/internal/pipeline"
	"git.home.luguber.info/inful/assetrev/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"assetrev.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		Input       string `short:"i" help:"Built site directory to process"`
		Output      string `short:"o" help:"Destination directory for hashed output"`
		Concurrency int    `help:"Per-phase task concurrency (0 = number of CPUs)"`
		NoMinify    bool   `help:"Skip JavaScript minification"`
	} `cmd:"" help:"Hash assets, rewrite references and emit the output tree"`

	Scan struct {
		Input string `short:"i" help:"Built site directory to enumerate"`
	} `cmd:"" help:"List assets and their classification without writing output"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg := loadConfig()
	setupLogging(cfg)

	switch kctx.Command() {
	case "run":
		if err := runPipeline(cfg); err != nil {
			slog.Error("Run failed", "error", err)
			os.Exit(1)
		}
	case "scan":
		if err := runScan(cfg); err != nil {
			slog.Error("Scan failed", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("assetrev %s (built %s, commit %s)\n", version.Version, version.BuildTime, version.GitCommit)
	}
}

// loadConfig reads the config file when present and falls back to defaults
// otherwise; an unreadable or invalid file is fatal.
func loadConfig() *config.Config {
	if _, err := os.Stat(CLI.Config); os.IsNotExist(err) {
		return config.Default()
	}
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runPipeline(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Flags override the config file.
	if CLI.Run.Input != "" {
		cfg.Build.Input = CLI.Run.Input
	}
	if CLI.Run.Output != "" {
		cfg.Build.Output = CLI.Run.Output
	}
	if CLI.Run.Concurrency > 0 {
		cfg.Pipeline.Concurrency = CLI.Run.Concurrency
	}
	minify := cfg.Pipeline.Minify == nil || *cfg.Pipeline.Minify
	if CLI.Run.NoMinify {
		minify = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var registry *prom.Registry
	if cfg.Metrics.Enabled {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	p := pipeline.New(pipeline.Options{
		InputDir:    cfg.Build.Input,
		OutputDir:   cfg.Build.Output,
		Concurrency: cfg.Pipeline.Concurrency,
		Minify:      minify,
		Recorder:    recorder,
	})
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}

	for _, f := range report.Failures {
		slog.Error("Asset failed",
			"phase", string(f.Phase),
			"asset", f.Path,
			"error", f.Err)
	}
	if registry != nil {
		logMetrics(registry)
	}
	slog.Info("Run summary",
		"run_id", report.RunID,
		"assets", report.Assets,
		"rewritten", report.Rewritten,
		"copied", report.Copied,
		"failed", len(report.Failures),
		"duration", report.Duration())

	if report.Failed() {
		return fmt.Errorf("%d asset(s) failed", len(report.Failures))
	}
	return nil
}

// logMetrics dumps gathered metric families at debug level so one-shot runs
// still expose counters without a scrape endpoint.
func logMetrics(registry *prom.Registry) {
	families, err := registry.Gather()
	if err != nil {
		slog.Warn("Failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		slog.Debug("Metric", "name", mf.GetName(), "samples", len(mf.GetMetric()))
	}
}

func runScan(cfg *config.Config) error {
	input := cfg.Build.Input
	if CLI.Scan.Input != "" {
		input = CLI.Scan.Input
	}
	reg, err := assets.Scan(input)
	if err != nil {
		return err
	}
	for _, key := range reg.Paths() {
		entry, _ := reg.Get(key)
		slog.Info("Asset",
			"path", key,
			"kind", entry.Kind.String(),
			"unhashable", assets.Unhashable(key))
	}
	slog.Info("Scan complete", "assets", reg.Len())
	return nil
}

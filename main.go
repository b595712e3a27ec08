package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"sysbar/collector"
	"sysbar/config"
	"sysbar/gpu"
	"sysbar/metrics"
	"sysbar/sink"
)

// Build info
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "sysbar: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel, cfg.LogFormat)
	log.Info("sysbar starting", "version", version, "commit", commit, "built", date)
	logConfig(log, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := collector.NewHostSource(log)
	source.DetectCapabilities(ctx, cfg.GPUTool)

	// the snapshot decides whether GPU metrics render; the adapter is only
	// switched off when auto-detect finds no device
	adapter := gpu.NewAdapter(gpu.Config{
		Tool:    cfg.GPUTool,
		Enabled: true,
	}, gpu.ExecRunner{}, gpu.NewCache(gpu.CacheDuration, nil), log)
	syncGPU(ctx, adapter, config.Snapshot{}, cfg)

	out, err := newSink(cfg, log)
	if err != nil {
		return err
	}

	build := func(snap config.Snapshot) *metrics.Registry {
		return metrics.NewHostRegistry(source, adapter, snap)
	}
	scheduler := metrics.NewScheduler(cfg, build, out, log)

	go watchReload(ctx, args, cfg, scheduler, adapter, log)

	scheduler.Run(ctx)
	log.Info("shutting down")
	return nil
}

// watchReload re-reads every configuration layer on SIGHUP. started is the
// snapshot the process was started with.
func watchReload(ctx context.Context, args []string, started config.Snapshot, scheduler *metrics.Scheduler, adapter *gpu.Adapter, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	current := started
	for {
		select {
		case <-hup:
			cfg, err := config.Load(args)
			if err != nil {
				log.Error("reload failed, keeping current configuration", "error", err)
				continue
			}
			logConfig(log, cfg)
			for _, name := range restartRequired(started, cfg) {
				log.Warn("setting changed, restart to apply it", "setting", name)
			}
			syncGPU(ctx, adapter, current, cfg)
			scheduler.Reload(cfg)
			current = cfg
			log.Info("configuration reloaded", "interval", cfg.RefreshInterval)
		case <-ctx.Done():
			return
		}
	}
}

// syncGPU turns the adapter back on when GPU metrics go from disabled to
// enabled, and lets auto-detect decide again whether a device exists.
func syncGPU(ctx context.Context, adapter *gpu.Adapter, prev, next config.Snapshot) {
	if !next.GPUEnabled || prev.GPUEnabled {
		return
	}
	adapter.SetEnabled(true)
	if next.GPUAutoDetect {
		adapter.Detect(ctx)
	}
}

// restartRequired lists the settings that differ from the running ones but
// are only read at startup.
func restartRequired(running, next config.Snapshot) []string {
	var changed []string
	if running.Sink != next.Sink {
		changed = append(changed, "sink")
	}
	if running.SinkURL != next.SinkURL {
		changed = append(changed, "sinkURL")
	}
	if running.APIKey != next.APIKey {
		changed = append(changed, "apiKey")
	}
	if running.GPUTool != next.GPUTool {
		changed = append(changed, "gpuTool")
	}
	if running.LogLevel != next.LogLevel || running.LogFormat != next.LogFormat {
		changed = append(changed, "logging")
	}
	return changed
}

func newSink(cfg config.Snapshot, log *slog.Logger) (metrics.Sink, error) {
	switch cfg.Sink {
	case config.SinkLine:
		return sink.NewLine(os.Stdout, cfg.StripIcons), nil
	case config.SinkI3Bar:
		return sink.NewI3Bar(os.Stdout, true), nil
	case config.SinkHTTP:
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		return sink.NewHTTP(cfg.SinkURL, cfg.APIKey, hostname, version, log), nil
	}
	return nil, fmt.Errorf("%w: sink %q", config.ErrInvalid, cfg.Sink)
}

func logConfig(log *slog.Logger, cfg config.Snapshot) {
	for _, w := range cfg.Warnings {
		log.Warn("config", "problem", w)
	}
	log.Info("config",
		"interval", cfg.RefreshInterval,
		"sink", cfg.Sink,
		"disk_policy", cfg.DiskPolicy,
		"gpu", cfg.GPUEnabled,
		"settings", cfg.SettingsPath,
	)
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	// stdout belongs to the status bar
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

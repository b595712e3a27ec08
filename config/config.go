// Package config builds the immutable configuration snapshot the metric
// pipeline runs with. Values are layered: defaults, then the settings file,
// then environment variables (a .env file is honored), then flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DefaultRefreshInterval = 1000 * time.Millisecond
	DefaultPingTarget      = "1.1.1.1"
	DefaultGPUTool         = "nvidia-smi"
)

const (
	DiskPolicyAll     = "all"
	DiskPolicyLargest = "largest"
)

const (
	SinkLine  = "line"
	SinkI3Bar = "i3bar"
	SinkHTTP  = "http"
)

var ErrInvalid = errors.New("invalid configuration")

// Snapshot is read-only once loaded. A reload builds a new one.
type Snapshot struct {
	RefreshInterval time.Duration
	Metrics         []string

	DiskSpace      []string
	DiskPolicy     string
	DiskMinSizeGiB float64

	GPUIndex      int
	GPUAllDevices bool
	GPUEnabled    bool
	GPUAutoDetect bool
	GPUTool       string

	PingTarget string

	Sink       string
	SinkURL    string
	APIKey     string
	StripIcons bool

	LogLevel  string
	LogFormat string

	SettingsPath string

	// Warnings collects values that were rejected in favor of defaults.
	Warnings []string
}

func Default() Snapshot {
	return Snapshot{
		RefreshInterval: DefaultRefreshInterval,
		DiskSpace:       []string{"/"},
		DiskPolicy:      DiskPolicyAll,
		GPUIndex:        0,
		GPUAllDevices:   true,
		GPUEnabled:      true,
		GPUAutoDetect:   true,
		GPUTool:         DefaultGPUTool,
		PingTarget:      DefaultPingTarget,
		Sink:            SinkLine,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// DiskMinSize is the configured capacity floor in bytes.
func (s Snapshot) DiskMinSize() uint64 {
	return uint64(s.DiskMinSizeGiB * (1 << 30))
}

// Load reads every layer. args excludes the program name.
func Load(args []string) (Snapshot, error) {
	// .env is optional, plain environment variables work without it
	_ = godotenv.Load()
	return load(args, os.Getenv)
}

func load(args []string, getenv func(string) string) (Snapshot, error) {
	snap := Default()

	flags := newFlagSet(&snap)
	if err := flags.Parse(args); err != nil {
		return snap, err
	}

	path := snap.SettingsPath
	if path == "" {
		path = getenv("MONITOR_SETTINGS")
	}
	if path != "" {
		if err := applySettingsFile(&snap, path); err != nil {
			return snap, err
		}
		snap.SettingsPath = path
	}

	applyEnv(&snap, getenv)

	// flags win over everything, re-parse onto the layered values
	flags = newFlagSet(&snap)
	if err := flags.Parse(args); err != nil {
		return snap, err
	}

	snap.validate()
	return snap, nil
}

func newFlagSet(snap *Snapshot) *pflag.FlagSet {
	flags := pflag.NewFlagSet("sysbar", pflag.ContinueOnError)
	flags.StringVarP(&snap.SettingsPath, "config", "c", snap.SettingsPath, "settings file (.json/.jsonc or .yaml)")
	flags.DurationVarP(&snap.RefreshInterval, "interval", "i", snap.RefreshInterval, "refresh interval")
	flags.StringSliceVarP(&snap.Metrics, "metrics", "m", snap.Metrics, "enabled metrics (default all)")
	flags.StringSliceVar(&snap.DiskSpace, "disk", snap.DiskSpace, `mount points for the disk space metric, or "all"`)
	flags.StringVar(&snap.DiskPolicy, "disk-policy", snap.DiskPolicy, "disk selection: all or largest")
	flags.Float64Var(&snap.DiskMinSizeGiB, "disk-min-size", snap.DiskMinSizeGiB, "minimum disk size in GiB")
	flags.IntVar(&snap.GPUIndex, "gpu-index", snap.GPUIndex, "GPU shown when not showing all devices")
	flags.BoolVar(&snap.GPUAllDevices, "gpu-all", snap.GPUAllDevices, "show every GPU when more than one is present")
	flags.BoolVar(&snap.GPUEnabled, "gpu", snap.GPUEnabled, "enable GPU metrics")
	flags.BoolVar(&snap.GPUAutoDetect, "gpu-auto-detect", snap.GPUAutoDetect, "disable GPU metrics when no GPU is found")
	flags.StringVar(&snap.GPUTool, "gpu-tool", snap.GPUTool, "vendor GPU query tool")
	flags.StringVar(&snap.PingTarget, "ping", snap.PingTarget, "latency metric target")
	flags.StringVar(&snap.Sink, "sink", snap.Sink, "output: line, i3bar or http")
	flags.StringVar(&snap.SinkURL, "sink-url", snap.SinkURL, "endpoint for the http sink")
	flags.BoolVar(&snap.StripIcons, "strip-icons", snap.StripIcons, "drop $(icon) tags from line output")
	flags.StringVar(&snap.LogLevel, "log-level", snap.LogLevel, "debug, info, warn or error")
	flags.StringVar(&snap.LogFormat, "log-format", snap.LogFormat, "text or json")
	return flags
}

// applyEnv reads MONITOR_* variables; unset or empty ones are ignored.
func applyEnv(snap *Snapshot, getenv func(string) string) {
	if v := getenv("MONITOR_REFRESH_INTERVAL"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			snap.RefreshInterval = time.Duration(ms) * time.Millisecond
		} else if d, err := time.ParseDuration(v); err == nil {
			snap.RefreshInterval = d
		} else {
			snap.warn("MONITOR_REFRESH_INTERVAL %q is not a duration", v)
		}
	}
	if v := getenv("MONITOR_METRICS"); v != "" {
		snap.Metrics = splitList(v)
	}
	if v := getenv("MONITOR_DISK_SPACE"); v != "" {
		snap.DiskSpace = splitList(v)
	}
	if v := getenv("MONITOR_DISK_POLICY"); v != "" {
		snap.DiskPolicy = v
	}
	if v := getenv("MONITOR_DISK_MIN_SIZE_GIB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			snap.DiskMinSizeGiB = f
		} else {
			snap.warn("MONITOR_DISK_MIN_SIZE_GIB %q is not a number", v)
		}
	}
	if v := getenv("MONITOR_GPU_INDEX"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			snap.GPUIndex = i
		} else {
			snap.warn("MONITOR_GPU_INDEX %q is not an integer", v)
		}
	}
	envBool(snap, getenv, "MONITOR_GPU_ALL_DEVICES", &snap.GPUAllDevices)
	envBool(snap, getenv, "MONITOR_GPU_ENABLED", &snap.GPUEnabled)
	envBool(snap, getenv, "MONITOR_GPU_AUTO_DETECT", &snap.GPUAutoDetect)
	envBool(snap, getenv, "MONITOR_STRIP_ICONS", &snap.StripIcons)
	envString(getenv, "MONITOR_GPU_TOOL", &snap.GPUTool)
	envString(getenv, "MONITOR_PING_TARGET", &snap.PingTarget)
	envString(getenv, "MONITOR_SINK", &snap.Sink)
	envString(getenv, "MONITOR_SINK_URL", &snap.SinkURL)
	envString(getenv, "API_KEY", &snap.APIKey)
	envString(getenv, "LOG_LEVEL", &snap.LogLevel)
	envString(getenv, "LOG_FORMAT", &snap.LogFormat)
}

func envString(getenv func(string) string, key string, dst *string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func envBool(snap *Snapshot, getenv func(string) string, key string, dst *bool) {
	v := getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		snap.warn("%s %q is not a boolean", key, v)
		return
	}
	*dst = b
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (s *Snapshot) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// validate replaces out of range values with defaults and records why.
func (s *Snapshot) validate() {
	d := Default()

	if s.RefreshInterval <= 0 {
		if s.RefreshInterval < 0 {
			s.warn("refresh interval %v is negative, using %v", s.RefreshInterval, d.RefreshInterval)
		}
		s.RefreshInterval = d.RefreshInterval
	}
	if s.GPUIndex < 0 {
		s.warn("gpu index %d is negative, using %d", s.GPUIndex, d.GPUIndex)
		s.GPUIndex = d.GPUIndex
	}
	if s.DiskMinSizeGiB < 0 {
		s.warn("disk minimum size %v is negative, ignoring it", s.DiskMinSizeGiB)
		s.DiskMinSizeGiB = 0
	}
	if s.DiskPolicy != DiskPolicyAll && s.DiskPolicy != DiskPolicyLargest {
		s.warn("disk policy %q is unknown, using %q", s.DiskPolicy, d.DiskPolicy)
		s.DiskPolicy = d.DiskPolicy
	}
	if len(s.DiskSpace) == 0 {
		s.DiskSpace = d.DiskSpace
	}
	switch s.Sink {
	case SinkLine, SinkI3Bar:
	case SinkHTTP:
		if s.SinkURL == "" {
			s.warn("http sink needs a sink URL, using %q", d.Sink)
			s.Sink = d.Sink
		}
	default:
		s.warn("sink %q is unknown, using %q", s.Sink, d.Sink)
		s.Sink = d.Sink
	}
	if s.GPUTool == "" {
		s.GPUTool = d.GPUTool
	}
}

// Package gpu reads GPU telemetry through the vendor command line tool
// (nvidia-smi by default) and renders it for the status bar.
package gpu

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// Query is a --query-gpu field.
type Query string

const (
	QueryUtilization Query = "utilization.gpu"
	QueryMemoryUsed  Query = "memory.used"
	QueryMemoryTotal Query = "memory.total"
	QueryTemperature Query = "temperature.gpu"
)

const (
	DefaultTool    = "nvidia-smi"
	DefaultTimeout = 5 * time.Second
)

var ErrToolUnavailable = errors.New("gpu: vendor tool unavailable")

type Status int

const (
	StatusOK Status = iota
	StatusEmpty
	StatusTimeout
	StatusFailed
	StatusDisabled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusTimeout:
		return "timeout"
	case StatusFailed:
		return "failed"
	case StatusDisabled:
		return "disabled"
	}
	return "unknown"
}

// Result is the outcome of one tool query. Raw holds the trimmed output,
// one line per device in device index order.
type Result struct {
	Status Status
	Raw    string
	Err    error
}

// Text is Raw for a successful query and "" otherwise.
func (r Result) Text() string {
	if r.Status != StatusOK {
		return ""
	}
	return r.Raw
}

// Values splits the output into one trimmed value per device.
func (r Result) Values() []string {
	text := r.Text()
	if text == "" {
		return nil
	}

	var values []string
	for _, line := range strings.Split(text, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			values = append(values, v)
		}
	}
	return values
}

type Config struct {
	Tool    string
	Timeout time.Duration
	Enabled bool
}

// Adapter runs the vendor tool behind a Cache. It never returns an error:
// any failure is reported through Result and renders as an empty metric.
type Adapter struct {
	log     *slog.Logger
	runner  Runner
	cache   *Cache
	tool    string
	timeout time.Duration

	enabled atomic.Bool
}

func NewAdapter(cfg Config, runner Runner, cache *Cache, log *slog.Logger) *Adapter {
	if cfg.Tool == "" {
		cfg.Tool = DefaultTool
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cache == nil {
		cache = NewCache(CacheDuration, nil)
	}

	a := &Adapter{
		log:     log,
		runner:  runner,
		cache:   cache,
		tool:    cfg.Tool,
		timeout: cfg.Timeout,
	}
	a.enabled.Store(cfg.Enabled)
	return a
}

func (a *Adapter) Enabled() bool { return a.enabled.Load() }

func (a *Adapter) SetEnabled(enabled bool) { a.enabled.Store(enabled) }

// Fetch returns the tool output for q, from the cache when it is fresh.
func (a *Adapter) Fetch(ctx context.Context, q Query) Result {
	if !a.Enabled() {
		return Result{Status: StatusDisabled}
	}
	return a.cache.Get(q, func() Result {
		// the result is shared with every waiting caller and cached, so one
		// caller going away must not fail it; run still applies the timeout
		return a.run(context.WithoutCancel(ctx), "--query-gpu="+string(q), "--format=csv,noheader,nounits")
	})
}

func (a *Adapter) run(ctx context.Context, args ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.runner.Run(ctx, a.tool, args...)
	if err != nil {
		r := Result{Status: StatusFailed, Err: err}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			r.Status = StatusTimeout
		case errors.Is(err, exec.ErrNotFound):
			r.Err = ErrToolUnavailable
		}
		a.log.Debug("gpu tool failed", "tool", a.tool, "args", args, "status", r.Status, "error", err)
		return r
	}

	raw := strings.TrimSpace(string(out))
	if raw == "" {
		return Result{Status: StatusEmpty}
	}
	return Result{Status: StatusOK, Raw: raw}
}

var deviceLine = regexp.MustCompile(`(?m)^GPU \d+:`)

// Devices counts the GPUs listed by `<tool> -L`. Zero means none or no tool.
func (a *Adapter) Devices(ctx context.Context) int {
	r := a.run(ctx, "-L")
	if r.Status != StatusOK {
		return 0
	}
	return len(deviceLine.FindAllString(r.Raw, -1))
}

// Detect disables the adapter when the tool lists no device, so a host
// without a GPU does not spawn a process for every query.
func (a *Adapter) Detect(ctx context.Context) int {
	n := a.Devices(ctx)
	if n == 0 {
		a.log.Info("no gpu detected, gpu metrics disabled", "tool", a.tool)
		a.SetEnabled(false)
		return 0
	}
	a.log.Info("gpu detected", "tool", a.tool, "devices", n)
	return n
}

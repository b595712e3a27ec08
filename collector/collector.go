// Package collector is the host telemetry source the metric producers
// read from. HostSource implements it on top of gopsutil and the battery,
// Docker and ICMP libraries.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/distatus/battery"

	"sysbar/models"
)

// ErrUnavailable means the host does not expose the requested data (no
// battery, no temperature sensor, no Docker daemon). It is not a failure.
var ErrUnavailable = errors.New("collector: data unavailable")

// Source queries one metric family per call. Implementations must be safe
// for concurrent use; a refresh round calls every method in parallel.
type Source interface {
	CPULoad(ctx context.Context) (float64, error)
	CPUSpeed(ctx context.Context) (float64, error)
	CPUTemperature(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (models.MemoryInfo, error)
	Network(ctx context.Context) (models.Throughput, error)
	DiskIO(ctx context.Context) (models.Throughput, error)
	Filesystems(ctx context.Context) ([]models.Filesystem, error)
	Battery(ctx context.Context) (models.BatteryInfo, error)
	Uptime(ctx context.Context) (uint64, error)
	System(ctx context.Context) (models.SystemInfo, error)
	Load(ctx context.Context) (models.LoadInfo, error)
	Containers(ctx context.Context) (models.ContainerInfo, error)
	Latency(ctx context.Context, target string) (models.LatencyInfo, error)
}

// HostSource reads the local machine.
type HostSource struct {
	log *slog.Logger
	now func() time.Time

	batteries    func() ([]*battery.Battery, error)
	dockerSocket string
	pingTimeout  time.Duration

	mu   sync.Mutex
	net  rateCounter
	disk rateCounter
}

func NewHostSource(log *slog.Logger) *HostSource {
	return &HostSource{
		log:          log,
		now:          time.Now,
		batteries:    battery.GetAll,
		dockerSocket: "/var/run/docker.sock",
		pingTimeout:  2 * time.Second,
	}
}

// rateCounter turns monotonically increasing byte counters into per-second
// rates. The first sample, and any sample after a counter reset, is zero.
type rateCounter struct {
	in, out uint64
	at      time.Time
}

func (r *rateCounter) update(in, out uint64, now time.Time) models.Throughput {
	var rate models.Throughput

	if !r.at.IsZero() {
		elapsed := now.Sub(r.at).Seconds()
		if elapsed > 0 && in >= r.in && out >= r.out {
			rate.In = float64(in-r.in) / elapsed
			rate.Out = float64(out-r.out) / elapsed
		}
	}

	r.in, r.out, r.at = in, out, now
	return rate
}

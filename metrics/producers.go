package metrics

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"sysbar/collector"
	"sysbar/config"
	"sysbar/disk"
	"sysbar/format"
	"sysbar/gpu"
)

const cpuWidth = 6

// GPU renders the GPU metrics. *gpu.Adapter implements it.
type GPU interface {
	Utilization(ctx context.Context, index int) string
	Memory(ctx context.Context, index int) string
	Temperature(ctx context.Context, index int) string
}

// producers renders every metric from a Source and one configuration
// snapshot. It holds no state of its own.
type producers struct {
	src    collector.Source
	gpu    GPU
	snap   config.Snapshot
	policy disk.Policy
}

// NewHostRegistry registers every metric in DisplayOrder, rendering from src
// and g with the settings in snap. g may be nil on hosts without a GPU.
func NewHostRegistry(src collector.Source, g GPU, snap config.Snapshot) *Registry {
	p := &producers{
		src:  src,
		gpu:  g,
		snap: snap,
		policy: disk.Policy{
			Mode:    disk.Mode(snap.DiskPolicy),
			Mounts:  snap.DiskSpace,
			MinSize: snap.DiskMinSize(),
		},
	}

	table := map[ID]ProducerFunc{
		CPU:            p.cpu,
		MemoryActive:   p.memoryActive,
		MemoryUsed:     p.memoryUsed,
		Network:        p.network,
		FileSystem:     p.fileSystem,
		Battery:        p.battery,
		CPUTemp:        p.cpuTemp,
		CPUSpeed:       p.cpuSpeed,
		OSDistro:       p.osDistro,
		DiskSpace:      p.diskSpace,
		Uptime:         p.uptime,
		GPUUtilization: p.gpuUtilization,
		GPUMemory:      p.gpuMemory,
		GPUTemperature: p.gpuTemperature,
		LoadAverage:    p.loadAverage,
		Containers:     p.containers,
		Latency:        p.latency,
	}

	r := NewRegistry()
	for _, id := range DisplayOrder {
		// every ID in DisplayOrder has an entry and none repeat
		_ = r.Register(id, table[id])
	}
	return r
}

// omit turns "not available on this host" into an empty metric.
func omit(err error) (string, error) {
	if errors.Is(err, collector.ErrUnavailable) {
		return "", nil
	}
	return "", err
}

func (p *producers) cpu(ctx context.Context) (string, error) {
	load, err := p.src.CPULoad(ctx)
	if err != nil {
		return omit(err)
	}
	return "$(pulse)" + format.Percent(load, 2, cpuWidth), nil
}

func (p *producers) memoryActive(ctx context.Context) (string, error) {
	m, err := p.src.Memory(ctx)
	if err != nil {
		return omit(err)
	}
	return "$(server)" + MemoryText(m.Active, m.Total), nil
}

func (p *producers) memoryUsed(ctx context.Context) (string, error) {
	m, err := p.src.Memory(ctx)
	if err != nil {
		return omit(err)
	}
	return "$(server)" + MemoryText(m.Used, m.Total), nil
}

// MemoryText renders "value/total". Small totals get three significant
// digits. When both strings end in the same suffix letter the value drops
// it, so "512MiB" of "2.00GiB" reads "512Mi/2.00GiB".
func MemoryText(value, total uint64) string {
	var opts []format.Option
	num, _ := format.SplitUnit(format.Pretty(float64(total)))
	if n, _ := strconv.ParseFloat(num, 64); n < 100 {
		opts = append(opts, format.WithSignificant(3, 3))
	}

	v := format.Pretty(float64(value), opts...)
	t := format.Pretty(float64(total), opts...)

	if v != "" && t != "" && v[len(v)-1] == t[len(t)-1] {
		v = v[:len(v)-1]
	}
	return v + "/" + t
}

// rate renders a per second byte rate; idle renders as "0".
func rate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0/s"
	}
	return format.Pretty(bytesPerSec) + "/s"
}

func (p *producers) network(ctx context.Context) (string, error) {
	t, err := p.src.Network(ctx)
	if err != nil {
		return omit(err)
	}
	return "$(cloud-download)" + rate(t.In) + " $(cloud-upload)" + rate(t.Out), nil
}

func (p *producers) fileSystem(ctx context.Context) (string, error) {
	t, err := p.src.DiskIO(ctx)
	if err != nil {
		return omit(err)
	}
	return "$(log-in)" + rate(t.Out) + " $(log-out)" + rate(t.In), nil
}

func (p *producers) battery(ctx context.Context) (string, error) {
	b, err := p.src.Battery(ctx)
	if err != nil {
		return omit(err)
	}
	text := "$(plug)" + format.Fixed(b.Percent, 0) + "%"
	if b.Charging {
		text += "(Charging)"
	}
	return text, nil
}

func (p *producers) cpuTemp(ctx context.Context) (string, error) {
	temp, err := p.src.CPUTemperature(ctx)
	if err != nil {
		return omit(err)
	}
	if temp <= 0 {
		return "", nil
	}
	return "$(thermometer)" + format.Fixed(temp, 1) + "°C", nil
}

func (p *producers) cpuSpeed(ctx context.Context) (string, error) {
	ghz, err := p.src.CPUSpeed(ctx)
	if err != nil {
		return omit(err)
	}
	return "$(dashboard) " + format.Fixed(ghz, 2) + "GHz", nil
}

func (p *producers) osDistro(ctx context.Context) (string, error) {
	info, err := p.src.System(ctx)
	if err != nil {
		return omit(err)
	}
	if info.Distro == "" {
		return info.OS, nil
	}
	if info.Version == "" {
		return info.Distro, nil
	}
	return info.Distro + " " + info.Version, nil
}

func (p *producers) diskSpace(ctx context.Context) (string, error) {
	filesystems, err := p.src.Filesystems(ctx)
	if err != nil {
		return omit(err)
	}
	return p.policy.Text(filesystems), nil
}

func (p *producers) uptime(ctx context.Context) (string, error) {
	seconds, err := p.src.Uptime(ctx)
	if err != nil {
		return omit(err)
	}
	return UptimeText(seconds), nil
}

// UptimeText renders days, hours and minutes; leftover seconds are dropped.
func UptimeText(seconds uint64) string {
	days := seconds / 86400
	hours := seconds % 86400 / 3600
	minutes := seconds % 3600 / 60
	return fmt.Sprintf("$(clock) %dd %dh %dm", days, hours, minutes)
}

// gpuIndex is the device the GPU metrics show, or gpu.AllDevices.
func (p *producers) gpuIndex() int {
	if p.snap.GPUAllDevices {
		return gpu.AllDevices
	}
	return p.snap.GPUIndex
}

func (p *producers) gpuOff() bool {
	return p.gpu == nil || !p.snap.GPUEnabled
}

func (p *producers) gpuUtilization(ctx context.Context) (string, error) {
	if p.gpuOff() {
		return "", nil
	}
	return p.gpu.Utilization(ctx, p.gpuIndex()), nil
}

func (p *producers) gpuMemory(ctx context.Context) (string, error) {
	if p.gpuOff() {
		return "", nil
	}
	return p.gpu.Memory(ctx, p.gpuIndex()), nil
}

func (p *producers) gpuTemperature(ctx context.Context) (string, error) {
	if p.gpuOff() {
		return "", nil
	}
	return p.gpu.Temperature(ctx, p.gpuIndex()), nil
}

func (p *producers) loadAverage(ctx context.Context) (string, error) {
	l, err := p.src.Load(ctx)
	if err != nil {
		return omit(err)
	}
	return fmt.Sprintf("$(graph)%s %s %s", format.Fixed(l.Load1, 2), format.Fixed(l.Load5, 2), format.Fixed(l.Load15, 2)), nil
}

func (p *producers) containers(ctx context.Context) (string, error) {
	c, err := p.src.Containers(ctx)
	if err != nil {
		return omit(err)
	}
	return fmt.Sprintf("$(package)%d/%d", c.Running, c.Total), nil
}

func (p *producers) latency(ctx context.Context) (string, error) {
	if p.snap.PingTarget == "" {
		return "", nil
	}
	l, err := p.src.Latency(ctx, p.snap.PingTarget)
	if err != nil {
		return omit(err)
	}
	if !l.Success {
		return "", nil
	}
	return "$(radio-tower)" + format.Fixed(l.Latency, 1) + "ms", nil
}

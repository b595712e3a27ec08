package collector

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"sysbar/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// CPULoad is the busy percentage across all cores since the previous call.
func (s *HostSource) CPULoad(ctx context.Context) (float64, error) {
	percent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percent) == 0 {
		return 0, ErrUnavailable
	}
	return percent[0], nil
}

// CPUSpeed is the average clock over all reported CPUs in GHz.
func (s *HostSource) CPUSpeed(ctx context.Context) (float64, error) {
	info, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("cpu info: %w", err)
	}

	var sum float64
	var n int
	for _, c := range info {
		if c.Mhz > 0 {
			sum += c.Mhz
			n++
		}
	}
	if n == 0 {
		return 0, ErrUnavailable
	}
	return sum / float64(n) / 1000, nil
}

// Sensor keys that report the package temperature, most specific first.
var cpuSensorPrefixes = []string{
	"coretemp_package_id",
	"k10temp_tctl",
	"k10temp_tdie",
	"zenpower_tdie",
	"cpu_thermal",
	"cpu-thermal",
	"soc_thermal",
	"acpitz",
}

// CPUTemperature returns ErrUnavailable when no CPU sensor is reported.
func (s *HostSource) CPUTemperature(ctx context.Context) (float64, error) {
	// gopsutil returns partial readings together with a warnings error
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) == 0 {
		if err != nil {
			s.log.Debug("failed to read temperature sensors", "error", err)
		}
		return 0, ErrUnavailable
	}

	if v, ok := pickCPUTemperature(temps); ok {
		return v, nil
	}
	return 0, ErrUnavailable
}

func pickCPUTemperature(temps []host.TemperatureStat) (float64, bool) {
	for _, prefix := range cpuSensorPrefixes {
		for _, t := range temps {
			if t.Temperature > 0 && strings.HasPrefix(strings.ToLower(t.SensorKey), prefix) {
				return t.Temperature, true
			}
		}
	}

	// no package sensor, average the per-core ones
	var sum float64
	var n int
	for _, t := range temps {
		if t.Temperature > 0 && strings.HasPrefix(strings.ToLower(t.SensorKey), "coretemp_core") {
			sum += t.Temperature
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Memory reads RAM totals. Active falls back to Used on platforms that do
// not report it.
func (s *HostSource) Memory(ctx context.Context) (models.MemoryInfo, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.MemoryInfo{}, fmt.Errorf("virtual memory: %w", err)
	}

	active := vm.Active
	if active == 0 {
		active = vm.Used
	}

	return models.MemoryInfo{
		Total:     vm.Total,
		Available: vm.Available,
		Used:      vm.Used,
		Active:    active,
		Percent:   vm.UsedPercent,
	}, nil
}

func (s *HostSource) Uptime(ctx context.Context) (uint64, error) {
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("uptime: %w", err)
	}
	return uptime, nil
}

// System gathers OS details
func (s *HostSource) System(ctx context.Context) (models.SystemInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return models.SystemInfo{}, fmt.Errorf("host info: %w", err)
	}

	return models.SystemInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Distro:   info.Platform,
		Version:  info.PlatformVersion,
		Kernel:   info.KernelVersion,
		Arch:     info.KernelArch,
	}, nil
}

// Load gathers Load Average (Unix only)
func (s *HostSource) Load(ctx context.Context) (models.LoadInfo, error) {
	if runtime.GOOS == "windows" {
		return models.LoadInfo{}, ErrUnavailable
	}

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return models.LoadInfo{}, fmt.Errorf("load average: %w", err)
	}

	return models.LoadInfo{
		Load1:  avg.Load1,
		Load5:  avg.Load5,
		Load15: avg.Load15,
	}, nil
}

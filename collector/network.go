package collector

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"sysbar/models"

	probing "github.com/prometheus-community/pro-bing"
	gopsnet "github.com/shirou/gopsutil/v3/net"
)

// Network is the receive/transmit rate summed over every non-loopback
// interface.
func (s *HostSource) Network(ctx context.Context) (models.Throughput, error) {
	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return models.Throughput{}, fmt.Errorf("network counters: %w", err)
	}

	var recv, sent uint64
	for _, c := range counters {
		if isLoopback(c.Name) {
			continue
		}
		recv += c.BytesRecv
		sent += c.BytesSent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.update(recv, sent, s.now()), nil
}

func isLoopback(name string) bool {
	lower := strings.ToLower(name)
	return lower == "lo" || strings.HasPrefix(lower, "lo0") || strings.Contains(lower, "loopback")
}

// Latency pings target once. An unreachable target is reported as
// ErrUnavailable.
func (s *HostSource) Latency(ctx context.Context, target string) (models.LatencyInfo, error) {
	info := models.LatencyInfo{Target: target}

	pinger, err := probing.NewPinger(target)
	if err != nil {
		return info, fmt.Errorf("resolve %s: %w", target, err)
	}
	pinger.Count = 1
	pinger.Timeout = s.pingTimeout
	// unprivileged UDP ping on Linux and macOS; Windows only has raw ICMP
	pinger.SetPrivileged(runtime.GOOS == "windows")

	if err := pinger.RunWithContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return info, err
		}
		return info, fmt.Errorf("ping %s: %w", target, err)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return info, ErrUnavailable
	}

	info.Latency = float64(stats.AvgRtt.Microseconds()) / 1000
	info.Success = true
	return info, nil
}

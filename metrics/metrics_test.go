package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"sysbar/collector"
	"sysbar/config"
	"sysbar/format"
	"sysbar/gpu"
	"sysbar/models"
)

const gib = 1 << 30

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	cpuLoad       float64
	cpuSpeed      float64
	cpuTemp       float64
	cpuTempErr    error
	memory        models.MemoryInfo
	network       models.Throughput
	networkErr    error
	networkPanic  bool
	diskIO        models.Throughput
	filesystems   []models.Filesystem
	battery       models.BatteryInfo
	batteryErr    error
	uptime        uint64
	system        models.SystemInfo
	load          models.LoadInfo
	containers    models.ContainerInfo
	containersErr error
	latency       models.LatencyInfo
}

func (f *fakeSource) CPULoad(context.Context) (float64, error) { return f.cpuLoad, nil }
func (f *fakeSource) CPUSpeed(context.Context) (float64, error) { return f.cpuSpeed, nil }
func (f *fakeSource) CPUTemperature(context.Context) (float64, error) {
	return f.cpuTemp, f.cpuTempErr
}
func (f *fakeSource) Memory(context.Context) (models.MemoryInfo, error) { return f.memory, nil }
func (f *fakeSource) Network(context.Context) (models.Throughput, error) {
	if f.networkPanic {
		panic("interface vanished")
	}
	return f.network, f.networkErr
}
func (f *fakeSource) DiskIO(context.Context) (models.Throughput, error) { return f.diskIO, nil }
func (f *fakeSource) Filesystems(context.Context) ([]models.Filesystem, error) {
	return f.filesystems, nil
}
func (f *fakeSource) Battery(context.Context) (models.BatteryInfo, error) {
	return f.battery, f.batteryErr
}
func (f *fakeSource) Uptime(context.Context) (uint64, error) { return f.uptime, nil }
func (f *fakeSource) System(context.Context) (models.SystemInfo, error) { return f.system, nil }
func (f *fakeSource) Load(context.Context) (models.LoadInfo, error) { return f.load, nil }
func (f *fakeSource) Containers(context.Context) (models.ContainerInfo, error) {
	return f.containers, f.containersErr
}
func (f *fakeSource) Latency(_ context.Context, target string) (models.LatencyInfo, error) {
	info := f.latency
	info.Target = target
	return info, nil
}

var _ collector.Source = (*fakeSource)(nil)

type fakeGPU struct {
	mu      sync.Mutex
	indexes []int
}

func (g *fakeGPU) record(index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.indexes = append(g.indexes, index)
}

func (g *fakeGPU) Utilization(_ context.Context, index int) string {
	g.record(index)
	return "$(chip)42%"
}

func (g *fakeGPU) Memory(_ context.Context, index int) string {
	g.record(index)
	return "$(repo)1.000GiB/8.000GiB"
}

func (g *fakeGPU) Temperature(_ context.Context, index int) string {
	g.record(index)
	return "$(flame)60°C"
}

func sampleOf(t *testing.T, r *Registry, id ID) string {
	t.Helper()
	descriptors, _ := r.Enabled([]string{string(id)})
	require.Len(t, descriptors, 1)
	text, err := descriptors[0].Producer.Sample(testContext(t))
	require.NoError(t, err)
	return text
}

func TestUptimeText(t *testing.T) {
	assert.Equal(t, "$(clock) 1d 1h 1m", UptimeText(90061))
	assert.Equal(t, "$(clock) 0d 0h 0m", UptimeText(59))
	assert.Equal(t, "$(clock) 0d 1h 0m", UptimeText(3600))
}

func TestMemoryText(t *testing.T) {
	tests := []struct {
		name         string
		value, total uint64
		want         string
	}{
		{"suffix elided across units", 512 << 20, 2048 << 20, "512Mi/2.00GiB"},
		{"suffix elided in one unit", 1 * gib, 2 * gib, "1.00Gi/2.00GiB"},
		{"large total keeps four digits", 8 * gib, 512 * gib, "8.000Gi/512.0GiB"},
		{"bytes against kibibytes", 512, 50 << 10, "512/50.0KiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MemoryText(tt.value, tt.total))
		})
	}
}

func TestProducers(t *testing.T) {
	src := &fakeSource{
		cpuLoad:  5.5,
		cpuSpeed: 3.2,
		cpuTemp:  48.3,
		memory:   models.MemoryInfo{Total: 16 * gib, Used: 8 * gib, Active: 4 * gib},
		network:  models.Throughput{In: 1536},
		diskIO:   models.Throughput{In: 2048, Out: 0},
		battery:  models.BatteryInfo{Percent: 87, Charging: true},
		uptime:   90061,
		system:   models.SystemInfo{OS: "linux", Distro: "ubuntu", Version: "24.04"},
		load:     models.LoadInfo{Load1: 0.5, Load5: 1, Load15: 1.25},
		containers: models.ContainerInfo{
			Running: 3,
			Total:   5,
		},
		latency: models.LatencyInfo{Latency: 12.34, Success: true},
		filesystems: []models.Filesystem{
			{Mount: "/", Type: "ext4", Device: "/dev/sda1", Size: 100 * gib, Used: 25 * gib},
		},
	}
	r := NewHostRegistry(src, nil, config.Default())

	pad := format.Filler + format.Filler
	assert.Equal(t, "$(pulse)"+pad+"5.50%", sampleOf(t, r, CPU))
	assert.Equal(t, "$(server)4.00Gi/16.0GiB", sampleOf(t, r, MemoryActive))
	assert.Equal(t, "$(server)8.00Gi/16.0GiB", sampleOf(t, r, MemoryUsed))
	assert.Equal(t, "$(cloud-download)1.500KiB/s $(cloud-upload)0/s", sampleOf(t, r, Network))
	assert.Equal(t, "$(log-in)0/s $(log-out)2.000KiB/s", sampleOf(t, r, FileSystem))
	assert.Equal(t, "$(plug)87%(Charging)", sampleOf(t, r, Battery))
	assert.Equal(t, "$(thermometer)48.3°C", sampleOf(t, r, CPUTemp))
	assert.Equal(t, "$(dashboard) 3.20GHz", sampleOf(t, r, CPUSpeed))
	assert.Equal(t, "ubuntu 24.04", sampleOf(t, r, OSDistro))
	assert.Equal(t, "$(database)/ 25.0% 25.00GiB/100.0GiB", sampleOf(t, r, DiskSpace))
	assert.Equal(t, "$(clock) 1d 1h 1m", sampleOf(t, r, Uptime))
	assert.Equal(t, "$(graph)0.50 1.00 1.25", sampleOf(t, r, LoadAverage))
	assert.Equal(t, "$(package)3/5", sampleOf(t, r, Containers))
	assert.Equal(t, "$(radio-tower)12.3ms", sampleOf(t, r, Latency))

	// no GPU adapter at all
	assert.Empty(t, sampleOf(t, r, GPUUtilization))
}

func TestCPUFullLoadIsNotPadded(t *testing.T) {
	r := NewHostRegistry(&fakeSource{cpuLoad: 100}, nil, config.Default())
	assert.Equal(t, "$(pulse)100.00%", sampleOf(t, r, CPU))
}

func TestUnavailableDataRendersEmpty(t *testing.T) {
	src := &fakeSource{
		cpuTempErr:    collector.ErrUnavailable,
		batteryErr:    collector.ErrUnavailable,
		containersErr: collector.ErrUnavailable,
	}
	r := NewHostRegistry(src, nil, config.Default())

	for _, id := range []ID{CPUTemp, Battery, Containers, Latency} {
		assert.Empty(t, sampleOf(t, r, id), id)
	}
}

func TestNoQualifyingDisk(t *testing.T) {
	src := &fakeSource{filesystems: []models.Filesystem{
		{Mount: "/run", Type: "tmpfs", Device: "tmpfs", Size: gib},
	}}
	r := NewHostRegistry(src, nil, config.Default())
	assert.Equal(t, "$(database)no qualifying disk", sampleOf(t, r, DiskSpace))
}

func TestGPUProducers(t *testing.T) {
	t.Run("all devices", func(t *testing.T) {
		g := &fakeGPU{}
		r := NewHostRegistry(&fakeSource{}, g, config.Default())

		assert.Equal(t, "$(chip)42%", sampleOf(t, r, GPUUtilization))
		assert.Equal(t, "$(repo)1.000GiB/8.000GiB", sampleOf(t, r, GPUMemory))
		assert.Equal(t, "$(flame)60°C", sampleOf(t, r, GPUTemperature))
		assert.Equal(t, []int{gpu.AllDevices, gpu.AllDevices, gpu.AllDevices}, g.indexes)
	})

	t.Run("configured index", func(t *testing.T) {
		g := &fakeGPU{}
		snap := config.Default()
		snap.GPUAllDevices = false
		snap.GPUIndex = 2
		r := NewHostRegistry(&fakeSource{}, g, snap)

		sampleOf(t, r, GPUUtilization)
		assert.Equal(t, []int{2}, g.indexes)
	})

	t.Run("disabled", func(t *testing.T) {
		g := &fakeGPU{}
		snap := config.Default()
		snap.GPUEnabled = false
		r := NewHostRegistry(&fakeSource{}, g, snap)

		assert.Empty(t, sampleOf(t, r, GPUUtilization))
		assert.Empty(t, sampleOf(t, r, GPUMemory))
		assert.Empty(t, g.indexes)
	})
}

func TestRegistry(t *testing.T) {
	r := NewHostRegistry(&fakeSource{}, nil, config.Default())
	assert.Equal(t, DisplayOrder, r.IDs())

	enabled, unknown := r.Enabled([]string{"uptime", "cpu", "bogus"})
	require.Len(t, enabled, 2)
	assert.Equal(t, CPU, enabled[0].ID)
	assert.Equal(t, Uptime, enabled[1].ID)
	assert.Equal(t, []string{"bogus"}, unknown)

	all, unknown := r.Enabled(nil)
	assert.Len(t, all, len(DisplayOrder))
	assert.Empty(t, unknown)

	assert.Error(t, r.Register(CPU, ProducerFunc(func(context.Context) (string, error) { return "", nil })))
	assert.Error(t, r.Register("custom", nil))
}

func TestRoundIsolatesFailures(t *testing.T) {
	for name, src := range map[string]*fakeSource{
		"error": {networkErr: errors.New("netlink closed")},
		"panic": {networkPanic: true},
	} {
		t.Run(name, func(t *testing.T) {
			src.cpuLoad = 12
			src.memory = models.MemoryInfo{Total: 8 * gib, Active: 2 * gib}

			r := NewHostRegistry(src, nil, config.Default())
			descriptors, _ := r.Enabled([]string{"cpu", "memoryActive", "network"})

			samples := Round(testContext(t), descriptors, discard())
			require.Len(t, samples, 3)

			assert.Equal(t, CPU, samples[0].ID)
			assert.NotEmpty(t, samples[0].Text)
			assert.NoError(t, samples[0].Err)
			assert.Equal(t, MemoryActive, samples[1].ID)
			assert.NotEmpty(t, samples[1].Text)
			assert.Equal(t, Network, samples[2].ID)
			assert.Empty(t, samples[2].Text)
			assert.Error(t, samples[2].Err)
		})
	}
}

func TestRoundKeepsRegistryOrder(t *testing.T) {
	delayed := func(d time.Duration, text string) Producer {
		return ProducerFunc(func(ctx context.Context) (string, error) {
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
			return text, nil
		})
	}

	descriptors := []Descriptor{
		{ID: CPU, Producer: delayed(30*time.Millisecond, "slow")},
		{ID: Uptime, Producer: delayed(0, "fast")},
	}

	samples := Round(testContext(t), descriptors, discard())
	require.Len(t, samples, 2)
	assert.Equal(t, "slow", samples[0].Text)
	assert.Equal(t, "fast", samples[1].Text)
}

type recordingSink struct {
	mu     sync.Mutex
	rounds [][]Sample
}

func (s *recordingSink) Write(_ context.Context, samples []Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, samples)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rounds)
}

func (s *recordingSink) last() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rounds) == 0 {
		return nil
	}
	return s.rounds[len(s.rounds)-1]
}

func TestSchedulerSkipsTickWhileRoundInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	build := func(config.Snapshot) *Registry {
		r := NewRegistry()
		_ = r.Register(CPU, ProducerFunc(func(context.Context) (string, error) {
			started <- struct{}{}
			<-release
			return "done", nil
		}))
		return r
	}

	sink := &recordingSink{}
	s := NewScheduler(config.Default(), build, sink, discard())

	require.True(t, s.tick(testContext(t)))
	<-started
	assert.False(t, s.tick(testContext(t)))

	close(release)
	s.Wait()
	assert.Equal(t, 1, sink.count())

	require.True(t, s.tick(testContext(t)))
	s.Wait()
	assert.Equal(t, 2, sink.count())
	assert.Equal(t, "done", sink.last()[0].Text)
}

func TestSchedulerReload(t *testing.T) {
	build := func(config.Snapshot) *Registry {
		r := NewRegistry()
		_ = r.Register(CPU, ProducerFunc(func(context.Context) (string, error) { return "a", nil }))
		_ = r.Register(MemoryUsed, ProducerFunc(func(context.Context) (string, error) { return "b", nil }))
		return r
	}

	snap := config.Default()
	snap.RefreshInterval = 10 * time.Millisecond

	sink := &recordingSink{}
	s := NewScheduler(snap, build, sink, discard())

	ctx, cancel := context.WithCancel(testContext(t))
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(sink.last()) == 2 }, time.Second, 5*time.Millisecond)

	snap.Metrics = []string{"memoryUsed", "unknown"}
	s.Reload(snap)

	require.Eventually(t, func() bool {
		last := sink.last()
		return len(last) == 1 && last[0].ID == MemoryUsed
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerReloadEnablesGPU(t *testing.T) {
	runner := gpu.NewMockRunner(gomock.NewController(t))
	runner.EXPECT().
		Run(gomock.Any(), gpu.DefaultTool, "--query-gpu=utilization.gpu", "--format=csv,noheader,nounits").
		Return([]byte("42\n"), nil).
		AnyTimes()
	adapter := gpu.NewAdapter(gpu.Config{Enabled: true}, runner, gpu.NewCache(gpu.CacheDuration, nil), discard())

	build := func(snap config.Snapshot) *Registry {
		return NewHostRegistry(&fakeSource{}, adapter, snap)
	}

	snap := config.Default()
	snap.RefreshInterval = 10 * time.Millisecond
	snap.Metrics = []string{"gpuUtilization"}
	snap.GPUEnabled = false

	sink := &recordingSink{}
	s := NewScheduler(snap, build, sink, discard())

	ctx, cancel := context.WithCancel(testContext(t))
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.count() > 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.last()[0].Text)

	snap.GPUEnabled = true
	s.Reload(snap)

	require.Eventually(t, func() bool {
		last := sink.last()
		return len(last) == 1 && last[0].Text == "$(chip)42%"
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

// testContext stands in for t.Context, which needs Go 1.24: the context is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

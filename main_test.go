package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"sysbar/config"
	"sysbar/gpu"
)

func newAdapter(t *testing.T) (*gpu.Adapter, *gpu.MockRunner) {
	t.Helper()
	runner := gpu.NewMockRunner(gomock.NewController(t))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return gpu.NewAdapter(gpu.Config{Enabled: true}, runner, gpu.NewCache(gpu.CacheDuration, nil), log), runner
}

func TestSyncGPUDetectsAtStart(t *testing.T) {
	adapter, runner := newAdapter(t)
	runner.EXPECT().Run(gomock.Any(), gpu.DefaultTool, "-L").Return([]byte(""), nil)

	syncGPU(testContext(t), adapter, config.Snapshot{}, config.Default())
	assert.False(t, adapter.Enabled())
}

func TestSyncGPUReenablesOnReload(t *testing.T) {
	adapter, runner := newAdapter(t)
	adapter.SetEnabled(false)

	runner.EXPECT().
		Run(gomock.Any(), gpu.DefaultTool, "-L").
		Return([]byte("GPU 0: NVIDIA GeForce RTX 4090 (UUID: GPU-1)\n"), nil)

	prev := config.Default()
	prev.GPUEnabled = false

	syncGPU(testContext(t), adapter, prev, config.Default())
	assert.True(t, adapter.Enabled())
}

func TestSyncGPUWithoutAutoDetect(t *testing.T) {
	adapter, _ := newAdapter(t)
	adapter.SetEnabled(false)

	prev := config.Default()
	prev.GPUEnabled = false
	next := config.Default()
	next.GPUAutoDetect = false

	// no tool run expected
	syncGPU(testContext(t), adapter, prev, next)
	assert.True(t, adapter.Enabled())

	// already enabled before: nothing to do
	adapter.SetEnabled(false)
	syncGPU(testContext(t), adapter, next, next)
	assert.False(t, adapter.Enabled())
}

func TestRestartRequired(t *testing.T) {
	running := config.Default()
	assert.Empty(t, restartRequired(running, running))

	next := running
	next.Sink = config.SinkI3Bar
	next.GPUTool = "/opt/bin/nvidia-smi"
	next.RefreshInterval *= 2
	assert.Equal(t, []string{"sink", "gpuTool"}, restartRequired(running, next))
}

// testContext stands in for t.Context, which needs Go 1.24: the context is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

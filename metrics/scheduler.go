package metrics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"sysbar/config"
)

// Sink receives the samples of every finished round in display order.
type Sink interface {
	Write(ctx context.Context, samples []Sample) error
}

// Scheduler runs one round per refresh interval and hands the result to a
// Sink. A tick that fires while the previous round is still running is
// skipped, so results never reach the sink out of order.
type Scheduler struct {
	log   *slog.Logger
	build func(config.Snapshot) *Registry
	sink  Sink

	mu       sync.Mutex
	interval time.Duration
	enabled  []Descriptor

	reloaded chan struct{}
	busy     atomic.Bool
	wg       sync.WaitGroup
}

// NewScheduler builds the first registry from snap. build is called again
// with every snapshot passed to Reload.
func NewScheduler(snap config.Snapshot, build func(config.Snapshot) *Registry, sink Sink, log *slog.Logger) *Scheduler {
	s := &Scheduler{
		log:      log,
		build:    build,
		sink:     sink,
		reloaded: make(chan struct{}, 1),
	}
	s.apply(snap)
	return s
}

func (s *Scheduler) apply(snap config.Snapshot) {
	enabled, unknown := s.build(snap).Enabled(snap.Metrics)
	for _, name := range unknown {
		s.log.Warn("unknown metric ignored", "metric", name)
	}

	s.mu.Lock()
	s.interval = snap.RefreshInterval
	s.enabled = enabled
	s.mu.Unlock()
}

// Reload swaps in a new snapshot. The running loop picks up the new
// interval and metric set and starts a round right away.
func (s *Scheduler) Reload(snap config.Snapshot) {
	s.apply(snap)
	select {
	case s.reloaded <- struct{}{}:
	default:
	}
}

func (s *Scheduler) current() (time.Duration, []Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval, s.enabled
}

// Run blocks until ctx is done, then waits for the round in flight.
func (s *Scheduler) Run(ctx context.Context) {
	interval, _ := s.current()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.reloaded:
			newInterval, _ := s.current()
			if newInterval != interval {
				s.log.Info("interval updated", "from", interval, "to", newInterval)
				interval = newInterval
			}
			ticker.Reset(interval)
			s.tick(ctx)
		case <-ctx.Done():
			s.wg.Wait()
			return
		}
	}
}

// tick starts a round unless one is already in flight. It reports whether
// a round was started.
func (s *Scheduler) tick(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.Debug("previous round still running, skipping tick")
		return false
	}

	_, descriptors := s.current()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)

		samples := Round(ctx, descriptors, s.log)
		if ctx.Err() != nil {
			return
		}
		if err := s.sink.Write(ctx, samples); err != nil {
			s.log.Warn("sink write failed", "error", err)
		}
	}()
	return true
}

// Wait blocks until the round in flight, if any, has been written.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

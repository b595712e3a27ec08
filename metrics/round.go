package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Sample is the outcome of one producer in one round. Err is kept for
// sinks that report failures; Text is "" whenever Err is set.
type Sample struct {
	ID   ID
	Text string
	Err  error
}

// Round runs every producer concurrently and returns their samples in the
// order of descriptors, whatever order they finish in. A producer that
// fails or panics yields an empty sample and does not affect the others.
func Round(ctx context.Context, descriptors []Descriptor, log *slog.Logger) []Sample {
	samples := make([]Sample, len(descriptors))

	var g errgroup.Group
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			samples[i] = sample(ctx, d, log)
			return nil
		})
	}
	_ = g.Wait()

	return samples
}

func sample(ctx context.Context, d Descriptor, log *slog.Logger) (s Sample) {
	s.ID = d.ID

	defer func() {
		if r := recover(); r != nil {
			s.Text = ""
			s.Err = fmt.Errorf("metric %s panicked: %v", d.ID, r)
			log.Warn("metric panicked", "metric", d.ID, "panic", r)
		}
	}()

	text, err := d.Producer.Sample(ctx)
	if err != nil {
		log.Debug("metric failed", "metric", d.ID, "error", err)
		s.Err = err
		return s
	}
	s.Text = text
	return s
}

package metrics

import (
	"context"
	"fmt"
	"slices"
)

// Producer computes the display text of one metric for one refresh round.
// An empty string means the metric has nothing to show this round.
type Producer interface {
	Sample(ctx context.Context) (string, error)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context) (string, error)

func (f ProducerFunc) Sample(ctx context.Context) (string, error) { return f(ctx) }

// Descriptor binds a producer to its metric.
type Descriptor struct {
	ID       ID
	Producer Producer
}

// Registry is an ordered list of descriptors. Order is display order.
type Registry struct {
	descriptors []Descriptor
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a descriptor. Each ID may be registered once.
func (r *Registry) Register(id ID, p Producer) error {
	if p == nil {
		return fmt.Errorf("metric %q: nil producer", id)
	}
	if slices.ContainsFunc(r.descriptors, func(d Descriptor) bool { return d.ID == id }) {
		return fmt.Errorf("metric %q already registered", id)
	}
	r.descriptors = append(r.descriptors, Descriptor{ID: id, Producer: p})
	return nil
}

// IDs lists the registered metrics in display order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, len(r.descriptors))
	for i, d := range r.descriptors {
		ids[i] = d.ID
	}
	return ids
}

// Enabled returns the descriptors named in enabled, still in registry
// order. An empty list enables everything. Names that match no registered
// metric are returned as unknown.
func (r *Registry) Enabled(enabled []string) ([]Descriptor, []string) {
	if len(enabled) == 0 {
		return slices.Clone(r.descriptors), nil
	}

	var unknown []string
	for _, name := range enabled {
		if !slices.ContainsFunc(r.descriptors, func(d Descriptor) bool { return string(d.ID) == name }) {
			unknown = append(unknown, name)
		}
	}

	var out []Descriptor
	for _, d := range r.descriptors {
		if slices.Contains(enabled, string(d.ID)) {
			out = append(out, d)
		}
	}
	return out, unknown
}

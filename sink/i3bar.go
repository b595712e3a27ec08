package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"sysbar/metrics"
)

type i3barHeader struct {
	Version int `json:"version"`
}

type i3barBlock struct {
	Name     string `json:"name"`
	FullText string `json:"full_text"`
}

// I3Bar speaks the i3bar/swaybar input protocol: a header, then an endless
// JSON array with one array of blocks per round.
type I3Bar struct {
	mu         sync.Mutex
	w          io.Writer
	stripIcons bool
	started    bool
}

func NewI3Bar(w io.Writer, stripIcons bool) *I3Bar {
	return &I3Bar{w: w, stripIcons: stripIcons}
}

func (b *I3Bar) Write(_ context.Context, samples []metrics.Sample) error {
	status := items(samples, b.stripIcons)
	blocks := make([]i3barBlock, 0, len(status))
	for _, item := range status {
		blocks = append(blocks, i3barBlock{Name: item.ID, FullText: item.Text})
	}

	data, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		header, err := json.Marshal(i3barHeader{Version: 1})
		if err != nil {
			return fmt.Errorf("marshal header: %w", err)
		}
		if _, err := fmt.Fprintf(b.w, "%s\n[\n", header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		b.started = true
	}

	if _, err := fmt.Fprintf(b.w, "%s,\n", data); err != nil {
		return fmt.Errorf("write blocks: %w", err)
	}
	return nil
}

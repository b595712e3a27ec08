package sink

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"sysbar/metrics"
)

const lineSeparator = "  "

// Line prints one line per round, for tmux, polybar and similar bars that
// read a command's stdout.
type Line struct {
	mu         sync.Mutex
	w          io.Writer
	stripIcons bool
}

func NewLine(w io.Writer, stripIcons bool) *Line {
	return &Line{w: w, stripIcons: stripIcons}
}

func (l *Line) Write(_ context.Context, samples []metrics.Sample) error {
	parts := make([]string, 0, len(samples))
	for _, item := range items(samples, l.stripIcons) {
		parts = append(parts, item.Text)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintln(l.w, strings.Join(parts, lineSeparator)); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

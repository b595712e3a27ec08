// Package sink writes finished refresh rounds somewhere a status bar can
// pick them up: a text line, the i3bar JSON protocol, or an HTTP endpoint.
package sink

import (
	"regexp"
	"strings"

	"sysbar/metrics"
	"sysbar/models"
)

var iconTag = regexp.MustCompile(`\$\([a-z0-9-]+\)\s?`)

// StripIcons removes $(name) icon tags, which only editor status bars can
// render.
func StripIcons(text string) string {
	return strings.TrimSpace(iconTag.ReplaceAllString(text, ""))
}

// items converts samples to status items, dropping empty ones.
func items(samples []metrics.Sample, stripIcons bool) []models.StatusItem {
	out := make([]models.StatusItem, 0, len(samples))
	for _, s := range samples {
		text := s.Text
		if stripIcons {
			text = StripIcons(text)
		}
		if text == "" {
			continue
		}
		out = append(out, models.StatusItem{ID: string(s.ID), Text: text})
	}
	return out
}

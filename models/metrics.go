package models

import "time"

// StatusItem is one rendered metric
type StatusItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// StatusPayload is what the HTTP sink posts for every refresh round
type StatusPayload struct {
	Timestamp time.Time    `json:"timestamp"`
	Hostname  string       `json:"hostname"`
	Version   string       `json:"version"`
	Items     []StatusItem `json:"items"`
}

// NewStatusPayload drops empty items, they mean "omit".
func NewStatusPayload(hostname, version string, items []StatusItem) *StatusPayload {
	payload := &StatusPayload{
		Timestamp: time.Now(),
		Hostname:  hostname,
		Version:   version,
		Items:     make([]StatusItem, 0, len(items)),
	}
	for _, item := range items {
		if item.Text == "" {
			continue
		}
		payload.Items = append(payload.Items, item)
	}
	return payload
}

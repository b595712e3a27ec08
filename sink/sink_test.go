package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysbar/metrics"
	"sysbar/models"
)

var round = []metrics.Sample{
	{ID: metrics.CPU, Text: "$(pulse)12.00%"},
	{ID: metrics.Battery, Text: ""},
	{ID: metrics.Network, Err: errors.New("boom")},
	{ID: metrics.Uptime, Text: "$(clock) 1d 1h 1m"},
}

func TestStripIcons(t *testing.T) {
	assert.Equal(t, "12.00%", StripIcons("$(pulse)12.00%"))
	assert.Equal(t, "1d 1h 1m", StripIcons("$(clock) 1d 1h 1m"))
	assert.Equal(t, "1.0KiB/s 0/s", StripIcons("$(cloud-download)1.0KiB/s $(cloud-upload)0/s"))
	assert.Equal(t, "", StripIcons("$(database)"))
}

func TestLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewLine(&buf, false).Write(testContext(t), round))
	assert.Equal(t, "$(pulse)12.00%  $(clock) 1d 1h 1m\n", buf.String())

	buf.Reset()
	require.NoError(t, NewLine(&buf, true).Write(testContext(t), round))
	assert.Equal(t, "12.00%  1d 1h 1m\n", buf.String())
}

func TestI3Bar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewI3Bar(&buf, true)

	require.NoError(t, bar.Write(testContext(t), round))
	require.NoError(t, bar.Write(testContext(t), round[:1]))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"version":1}`, lines[0])
	assert.Equal(t, "[", lines[1])

	var blocks []i3barBlock
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(lines[2], ",")), &blocks))
	assert.Equal(t, []i3barBlock{
		{Name: "cpu", FullText: "12.00%"},
		{Name: "uptime", FullText: "1d 1h 1m"},
	}, blocks)
	assert.JSONEq(t, `[{"name":"cpu","full_text":"12.00%"}]`, strings.TrimSuffix(lines[3], ","))
}

func TestHTTP(t *testing.T) {
	var got models.StatusPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := NewHTTP(server.URL, "secret", "host-1", "v1.2.3", log)
	require.NoError(t, sink.Write(testContext(t), round))

	assert.Equal(t, "host-1", got.Hostname)
	assert.Equal(t, "v1.2.3", got.Version)
	assert.Equal(t, []models.StatusItem{
		{ID: "cpu", Text: "$(pulse)12.00%"},
		{ID: "uptime", Text: "$(clock) 1d 1h 1m"},
	}, got.Items)
}

func TestHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"error":"bad key","code":"AUTH"}`))
	}))
	defer server.Close()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := NewHTTP(server.URL, "wrong", "host-1", "dev", log).Write(testContext(t), round)
	assert.ErrorContains(t, err, "API error (401): bad key [AUTH]")
}

// testContext stands in for t.Context, which needs Go 1.24: the context is
// cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

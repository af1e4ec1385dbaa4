package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStatus() StatusInfo {
	return StatusInfo{
		ProjectRoot: "/srv/shop",
		ConfigPath:  "/srv/shop/.rspecgen.yaml",
		Endpoint:    "http://localhost:8000/generate",
		StateDir:    "/srv/shop/.rspecgen",
		HistorySize: 2048,
		HistoryRuns: 12,
		LastRun:     time.Now().Add(-3 * time.Hour),
		Checks: []Check{
			{Name: "config", Status: "ok"},
			{Name: "endpoint", Status: "warn", Detail: "health check failed"},
			{Name: "state dir", Status: "ok"},
		},
	}
}

func TestStatusInfo_Healthy(t *testing.T) {
	info := sampleStatus()
	assert.True(t, info.Healthy())

	info.Checks = append(info.Checks, Check{Name: "history", Status: "fail"})
	assert.False(t, info.Healthy())
}

func TestStatusRenderer_Render(t *testing.T) {
	// Given: a plain status renderer
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: rendering the sample report
	require.NoError(t, r.Render(sampleStatus()))

	// Then: paths, history and checks are listed
	out := buf.String()
	assert.Contains(t, out, "rspecgen doctor: /srv/shop")
	assert.Contains(t, out, "Config:    /srv/shop/.rspecgen.yaml")
	assert.Contains(t, out, "History:   12 runs, 2.0 KB, last 3 hours ago")
	assert.Contains(t, out, "warn endpoint (health check failed)")
	assert.NotContains(t, out, "\x1b[")
}

func TestStatusRenderer_DefaultsWithoutConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	info := sampleStatus()
	info.ConfigPath = ""
	info.HistoryRuns = 0

	require.NoError(t, NewStatusRenderer(buf, true).Render(info))

	assert.Contains(t, buf.String(), "Config:    defaults")
	assert.NotContains(t, buf.String(), "History:")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	// Given: a renderer writing JSON
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: encoding the sample
	require.NoError(t, r.RenderJSON(sampleStatus()))

	// Then: the snake_case fields are present
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "/srv/shop", parsed["project_root"])
	assert.Equal(t, float64(12), parsed["history_runs"])
	assert.Len(t, parsed["checks"], 3)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.in))
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "just now", formatTime(time.Now()))
	assert.Equal(t, "1 minute ago", formatTime(time.Now().Add(-90*time.Second)))
	assert.Equal(t, "2 days ago", formatTime(time.Now().Add(-50*time.Hour)))
}

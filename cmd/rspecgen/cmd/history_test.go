package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-iswarya/RspecGeneratorPublic/internal/telemetry"
)

func TestHistory_TextOutput(t *testing.T) {
	// Given: two recorded outcomes
	isolate(t, "")
	root := writeProject(t, nil)
	store, err := telemetry.Open(filepath.Join(root, ".rspecgen", telemetry.FileName))
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, store.Record(context.Background(),
		telemetry.Run{RunID: "r1", Method: "add", Outcome: telemetry.OutcomeInserted, TestPath: "spec/models/wallet_spec.rb", CreatedAt: now},
		telemetry.Run{RunID: "r1", Method: "remove", Outcome: telemetry.OutcomeFailed, TestPath: "spec/models/wallet_spec.rb", CreatedAt: now},
	))
	require.NoError(t, store.Close())

	// When: history runs
	out, err := run(t, "--config", root, "history")
	require.NoError(t, err)

	// Then: both outcomes are listed with markers
	assert.Contains(t, out, "1 runs, 2 methods")
	assert.Contains(t, out, "✓ ")
	assert.Contains(t, out, "✗ ")
	assert.Contains(t, out, "remove")
}

func TestHistory_Empty(t *testing.T) {
	isolate(t, "")
	root := writeProject(t, nil)

	out, err := run(t, "--config", root, "history")
	require.NoError(t, err)

	assert.Contains(t, out, "No history yet")
}

func TestHistory_Disabled(t *testing.T) {
	isolate(t, "")
	t.Setenv("RSPECGEN_TELEMETRY", "false")
	root := writeProject(t, nil)

	out, err := run(t, "--config", root, "history")
	require.NoError(t, err)

	assert.Contains(t, out, "History is disabled")
}

func TestOutcomeMarker(t *testing.T) {
	assert.Equal(t, "✓", outcomeMarker(telemetry.OutcomeInserted))
	assert.Equal(t, "✗", outcomeMarker(telemetry.OutcomeFailed))
	assert.Equal(t, "!", outcomeMarker(telemetry.OutcomeNoSynthesis))
	assert.Equal(t, "-", outcomeMarker(telemetry.OutcomeSkipped))
}

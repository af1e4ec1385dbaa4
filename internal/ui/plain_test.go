package ui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress(t *testing.T) {
	tests := []struct {
		name  string
		event ProgressEvent
		want  string
	}{
		{
			name:  "counted with file",
			event: ProgressEvent{Stage: StageExtracting, Current: 3, Total: 10, CurrentFile: "app/models/account.rb"},
			want:  "[EXTRACT] 3/10 - app/models/account.rb\n",
		},
		{
			name:  "message wins over file",
			event: ProgressEvent{Stage: StageSynthesizing, Current: 1, Total: 2, CurrentFile: "x.rb", Message: "charge"},
			want:  "[SYNTH] 1/2 - charge\n",
		},
		{
			name:  "unknown total",
			event: ProgressEvent{Stage: StageScanning, CurrentFile: "app/a.rb"},
			want:  "[SCAN] app/a.rb\n",
		},
		{
			name:  "nothing to say",
			event: ProgressEvent{Stage: StageScanning},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a plain renderer
			buf := &bytes.Buffer{}
			r := NewPlainRenderer(NewConfig(buf))

			// When: updating progress
			r.UpdateProgress(tt.event)

			// Then: exactly one formatted line (or none) is written
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_AddError(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: adding an error and a file-less warning
	r.AddError(ErrorEvent{File: "app/models/broken.rb", Err: errors.New("no closing end")})
	r.AddError(ErrorEvent{Err: errors.New("endpoint slow"), IsWarn: true})

	// Then: both are prefixed by severity
	assert.Equal(t, "ERROR: app/models/broken.rb: no closing end\nWARN: endpoint slow\n", buf.String())
}

func TestPlainRenderer_Complete(t *testing.T) {
	t.Run("dataset run", func(t *testing.T) {
		// Given: a plain renderer
		buf := &bytes.Buffer{}
		r := NewPlainRenderer(NewConfig(buf))

		// When: completing a dataset run with warnings
		r.Complete(CompletionStats{
			Files:    3,
			Entries:  5,
			Duration: 1500 * time.Millisecond,
			Warnings: 1,
			Output:   "datasets/data.json",
		})

		// Then: the summary names files, entries and the output
		out := buf.String()
		assert.Contains(t, out, "Complete: 3 files, 5 entries in 1.5s")
		assert.Contains(t, out, "(0 errors, 1 warnings)")
		assert.Contains(t, out, "Wrote datasets/data.json")
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("generate run", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := NewPlainRenderer(NewConfig(buf))

		r.Complete(CompletionStats{Inserted: 1, Skipped: 2})

		assert.Contains(t, buf.String(), "Complete: 1 inserted, 2 skipped, 0 failed")
	})
}

func TestPlainRenderer_StartStop(t *testing.T) {
	r := NewPlainRenderer(NewConfig(&bytes.Buffer{}))
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
}

func TestPlainRenderer_ConcurrentWrites(t *testing.T) {
	// Given: a plain renderer shared between goroutines
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: writing from many goroutines
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.UpdateProgress(ProgressEvent{Stage: StageScanning, Current: i, Total: 20, CurrentFile: fmt.Sprintf("f%d.rb", i)})
			r.AddError(ErrorEvent{Err: errors.New("x"), IsWarn: true})
		}(i)
	}
	wg.Wait()

	// Then: every line arrives intact
	assert.Equal(t, 40, bytes.Count(buf.Bytes(), []byte("\n")))
}

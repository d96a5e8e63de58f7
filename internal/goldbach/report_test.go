package goldbach

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0k"},
		{48000, "48.0k"},
		{2147483645, "2.1B"},
		{5_000_000_000_000_000, "5000.0T"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCount(tt.n))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{2*time.Minute + 5*time.Second, "02m 05s"},
		{3*time.Hour + 4*time.Minute + 5*time.Second, "03h 04m 05s"},
		{50*time.Hour + 30*time.Second, "2d 02h 00m 30s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestWriteSummaryInterrupted(t *testing.T) {
	r := &Report{
		RunID:     "run",
		Outcome:   OutcomeInterrupted,
		Strategy:  "table",
		Start:     6,
		End:       1000,
		Step:      2,
		Total:     498,
		Processed: 120,
		Elapsed:   time.Second,
	}

	var out bytes.Buffer
	require.NoError(t, r.WriteSummary(&out))
	assert.Contains(t, out.String(), "interrupted")
	assert.Contains(t, out.String(), "120 of 498")
	assert.NotContains(t, out.String(), "conjecture holds")
}

func TestVerifiedThrough(t *testing.T) {
	chunks := []Chunk{
		{Start: 6, End: 20, Count: 8},
		{Start: 22, End: 36, Count: 8},
		{Start: 38, End: 56, Count: 10},
	}

	tests := []struct {
		name      string
		processed []uint64
		want      uint64
		ok        bool
	}{
		{"all done", []uint64{8, 8, 10}, 56, true},
		{"first partial", []uint64{3, 8, 10}, 10, true},
		{"second partial", []uint64{8, 2, 10}, 24, true},
		{"second empty", []uint64{8, 0, 4}, 20, true},
		{"nothing", []uint64{0, 8, 10}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Step: 2}
			for i, c := range chunks {
				r.Chunks = append(r.Chunks, ChunkResult{
					Worker:    i,
					Chunk:     c,
					Processed: tt.processed[i],
					Completed: tt.processed[i] == c.Count,
				})
			}
			got, ok := r.VerifiedThrough()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		cores   int
		percent int
		want    int
	}{
		{"eighty percent of ten", 10, 80, 8},
		{"floors fractional workers", 6, 80, 4},
		{"single core keeps one worker", 1, 80, 1},
		{"zero cores keeps one worker", 0, 80, 1},
		{"full usage", 16, 100, 16},
		{"invalid percent uses default", 10, 0, 8},
		{"percent above range uses default", 10, 150, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WorkerCount(tt.cores, tt.percent))
		})
	}
}

func TestDetect(t *testing.T) {
	info := Detect(nil)
	assert.GreaterOrEqual(t, info.Cores, 1)
	assert.GreaterOrEqual(t, info.GOMAXPROCS, 1)
}

// Package hardware detects the CPU resources available to the verifier.
package hardware

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// DefaultCPUUsagePercent is the share of logical CPUs given to workers.
const DefaultCPUUsagePercent = 80

type Info struct {
	Cores      int `json:"cores"`
	GOMAXPROCS int `json:"gomaxprocs"`
}

// Detect reads the logical CPU count visible to the process.
func Detect(logger logrus.FieldLogger) Info {
	info := Info{
		Cores:      runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
	if logger != nil {
		logger.Debugf("CPU detected: %d cores, GOMAXPROCS %d", info.Cores, info.GOMAXPROCS)
	}
	return info
}

// WorkerCount returns floor(cores * percent / 100), never less than one.
func WorkerCount(cores, percent int) int {
	if percent <= 0 || percent > 100 {
		percent = DefaultCPUUsagePercent
	}
	n := cores * percent / 100
	if n < 1 {
		return 1
	}
	return n
}

package goldbach

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Outcome is the terminal state of a run. A falsified run is a valid result,
// not an error.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeFalsified   Outcome = "falsified"
	OutcomeInterrupted Outcome = "interrupted"
)

// ChunkResult records how far one worker got through its chunk.
type ChunkResult struct {
	Worker    int    `json:"worker"`
	Chunk     Chunk  `json:"chunk"`
	Processed uint64 `json:"processed"`
	Completed bool   `json:"completed"`
}

// Report summarizes a verification run.
type Report struct {
	RunID    string  `json:"run_id"`
	Outcome  Outcome `json:"outcome"`
	Strategy string  `json:"strategy"`

	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
	Step  uint64 `json:"step"`

	Workers   int           `json:"workers"`
	Chunks    []ChunkResult `json:"chunks"`
	Total     uint64        `json:"total"`
	Processed uint64        `json:"processed"`
	// FailedAt is the counterexample, zero unless Outcome is falsified.
	FailedAt uint64 `json:"failed_at"`

	PrimeCacheSize     int     `json:"prime_cache_size"`
	CompositeCacheSize int     `json:"composite_cache_size"`
	KnownPrimes        int     `json:"known_primes"`
	CacheHitRate       float64 `json:"cache_hit_rate"`

	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed"`
	Throughput float64       `json:"throughput"`
}

// Holds reports whether every number in the range had a prime pair.
func (r *Report) Holds() bool {
	return r.Outcome == OutcomeCompleted
}

// VerifiedThrough returns the largest value v such that every value from
// Start through v was verified. ok is false when not even Start was.
func (r *Report) VerifiedThrough() (v uint64, ok bool) {
	for _, c := range r.Chunks {
		if c.Processed > 0 {
			v, ok = c.Chunk.Start+(c.Processed-1)*r.Step, true
		}
		if !c.Completed {
			break
		}
	}
	return v, ok
}

// WriteSummary prints the human-readable end-of-run summary.
func (r *Report) WriteSummary(w io.Writer) error {
	var b strings.Builder
	rule := strings.Repeat("=", 78)

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "                    GOLDBACH VERIFICATION - SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Run ID:                   %s\n", r.RunID)
	fmt.Fprintf(&b, "Range:                    [%d, %d] step %d\n", r.Start, r.End, r.Step)
	fmt.Fprintf(&b, "Primality source:         %s\n", r.Strategy)
	fmt.Fprintf(&b, "Workers:                  %d\n", r.Workers)
	fmt.Fprintf(&b, "Numbers Processed:        %s of %s\n", FormatCount(r.Processed), FormatCount(r.Total))
	fmt.Fprintf(&b, "Total Time:               %s\n", FormatDuration(r.Elapsed))
	fmt.Fprintf(&b, "Average Throughput:       %.0f numbers/sec\n", r.Throughput)
	fmt.Fprintf(&b, "Prime Cache:              %s entries\n", FormatCount(uint64(r.PrimeCacheSize)))
	fmt.Fprintf(&b, "Composite Cache:          %s entries\n", FormatCount(uint64(r.CompositeCacheSize)))
	fmt.Fprintf(&b, "Known Primes:             %s\n", FormatCount(uint64(r.KnownPrimes)))
	fmt.Fprintf(&b, "Cache Efficiency:         %.1f%% hit rate\n", r.CacheHitRate*100)
	fmt.Fprintln(&b)

	switch r.Outcome {
	case OutcomeCompleted:
		fmt.Fprintf(&b, "Goldbach's conjecture holds for every even number in [%d, %d].\n", r.Start, r.End)
	case OutcomeFalsified:
		fmt.Fprintf(&b, "COUNTEREXAMPLE: no pair of primes sums to %d.\n", r.FailedAt)
		fmt.Fprintln(&b, "Goldbach's conjecture is FALSIFIED over this range.")
	case OutcomeInterrupted:
		fmt.Fprintln(&b, "Verification interrupted before the range was exhausted.")
		fmt.Fprintln(&b, "No counterexample was found in the numbers processed.")
	}
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatCount renders n with a k/M/B/T suffix above a thousand.
func FormatCount(n uint64) string {
	if n < 1000 {
		return strconv.FormatUint(n, 10)
	}

	suffixes := []string{"", "k", "M", "B", "T"}
	suffixIndex := 0
	value := float64(n)

	for value >= 1000 && suffixIndex < len(suffixes)-1 {
		value /= 1000
		suffixIndex++
	}
	return fmt.Sprintf("%.1f%s", value, suffixes[suffixIndex])
}

func FormatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%02dh %02dm %02ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%02dm %02ds", minutes, seconds)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

package goldbach

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/goldbach-research/goldbach-hunter/internal/hardware"
	"github.com/goldbach-research/goldbach-hunter/internal/logging"
	"github.com/goldbach-research/goldbach-hunter/internal/primes"
)

const (
	DefaultProgressPoll     = 500 * time.Millisecond
	DefaultProgressInterval = time.Second
	DefaultCounterBatch     = 100
)

// State is the lifecycle position of a Verifier.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StateCompleted
	StateFalsified
	StateInterrupted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFalsified:
		return "falsified"
	case StateInterrupted:
		return "interrupted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Options tunes a Verifier. Zero values select the defaults.
type Options struct {
	// Workers is the number of chunks verified concurrently; zero derives it
	// from the CPU count.
	Workers           int
	ProgressPoll      time.Duration
	ProgressInterval  time.Duration
	CounterBatch      uint64
	SlowPairThreshold time.Duration
	Logger            logrus.FieldLogger
	// Finder replaces the oracle-backed Searcher.
	Finder PairFinder
}

// Verifier runs Goldbach verification over a range with a fixed worker pool.
// A Verifier runs one range at a time; concurrent Run calls are serialized.
type Verifier struct {
	oracle *primes.Oracle
	finder PairFinder
	opts   Options
	logger logrus.FieldLogger

	runMu sync.Mutex
	state atomic.Int32
}

// progress is shared by the workers and the progress reporter.
type progress struct {
	processed atomic.Uint64
	// failedAt is zero until a worker finds a counterexample; the first
	// CompareAndSwap wins.
	failedAt atomic.Uint64
}

func NewVerifier(oracle *primes.Oracle, opts Options) *Verifier {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Workers < 1 {
		opts.Workers = hardware.WorkerCount(runtime.NumCPU(), hardware.DefaultCPUUsagePercent)
	}
	if opts.ProgressPoll <= 0 {
		opts.ProgressPoll = DefaultProgressPoll
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.CounterBatch == 0 {
		opts.CounterBatch = DefaultCounterBatch
	}

	finder := opts.Finder
	if finder == nil {
		finder = NewSearcher(oracle, opts.Logger, opts.SlowPairThreshold)
	}

	return &Verifier{
		oracle: oracle,
		finder: finder,
		opts:   opts,
		logger: opts.Logger,
	}
}

func (v *Verifier) State() State {
	return State(v.state.Load())
}

func (v *Verifier) Workers() int {
	return v.opts.Workers
}

func (v *Verifier) setState(logger logrus.FieldLogger, s State) {
	v.state.Store(int32(s))
	logger.Debugf("Verifier state: %s", s)
}

// Run verifies every value start, start+step, ... <= end. A counterexample
// yields a report with OutcomeFalsified and a nil error. Cancelling ctx stops
// the workers at their next iteration and returns the partial report together
// with ctx.Err(). Setup failures, such as a missing prime table, return a nil
// report.
func (v *Verifier) Run(ctx context.Context, start, end, step uint64) (*Report, error) {
	v.runMu.Lock()
	defer v.runMu.Unlock()

	runID := uuid.NewString()
	logger := v.logger.WithField("run_id", runID)
	v.setState(logger, StateInitializing)

	if start == 0 {
		v.setState(logger, StateFailed)
		return nil, fmt.Errorf("%w: start must be positive", ErrInvalidRange)
	}
	chunks, err := Partition(start, end, step, v.opts.Workers)
	if err != nil {
		v.setState(logger, StateFailed)
		return nil, err
	}
	var total uint64
	for _, c := range chunks {
		total += c.Count
	}

	cache := v.oracle.Cache()
	cache.Reset()

	strategy := "miller-rabin"
	if src := v.oracle.Source(); src != nil {
		strategy = src.Name()
		src.Reset()
		if err := src.EnsureCovered(ctx, end); err != nil {
			v.setState(logger, StateFailed)
			return nil, fmt.Errorf("failed to prepare %s primality source: %w", strategy, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"start":    start,
		"end":      end,
		"step":     step,
		"total":    total,
		"workers":  len(chunks),
		"strategy": strategy,
	}).Info("Starting Goldbach verification")

	prog := &progress{}
	results := make([]ChunkResult, len(chunks))
	startedAt := time.Now()
	v.setState(logger, StateRunning)
	activeWorkers.Set(float64(len(chunks)))

	done := make(chan struct{})
	var reporter errgroup.Group
	reporter.Go(func() error {
		v.reportProgress(ctx, logger, prog, total, startedAt, done)
		return nil
	})

	workers, workersCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		workers.Go(func() error {
			results[i] = v.work(workersCtx, logger, i, chunk, step, prog)
			activeWorkers.Dec()
			return nil
		})
	}
	_ = workers.Wait()
	close(done)
	_ = reporter.Wait()

	elapsed := time.Since(startedAt)
	primeCount, compositeCount := cache.Sizes()
	report := &Report{
		RunID:              runID,
		Strategy:           strategy,
		Start:              start,
		End:                end,
		Step:               step,
		Workers:            len(chunks),
		Chunks:             results,
		Total:              total,
		Processed:          prog.processed.Load(),
		FailedAt:           prog.failedAt.Load(),
		PrimeCacheSize:     primeCount,
		CompositeCacheSize: compositeCount,
		CacheHitRate:       cache.HitRate(),
		StartedAt:          startedAt,
		Elapsed:            elapsed,
	}
	if src := v.oracle.Source(); src != nil {
		report.KnownPrimes = src.Len()
	}
	if secs := elapsed.Seconds(); secs > 0 {
		report.Throughput = float64(report.Processed) / secs
	}

	var runErr error
	switch {
	case report.FailedAt != 0:
		report.Outcome = OutcomeFalsified
		v.setState(logger, StateFalsified)
	case ctx.Err() != nil && report.Processed < total:
		report.Outcome = OutcomeInterrupted
		runErr = ctx.Err()
		v.setState(logger, StateInterrupted)
	default:
		report.Outcome = OutcomeCompleted
		v.setState(logger, StateCompleted)
	}

	v.recordRun(logger, report)
	return report, runErr
}

// work verifies one chunk. It stops early when any worker has recorded a
// counterexample or ctx is done.
func (v *Verifier) work(ctx context.Context, logger logrus.FieldLogger, id int, chunk Chunk, step uint64, prog *progress) ChunkResult {
	res := ChunkResult{Worker: id, Chunk: chunk}

	var pending uint64
	flush := func() {
		if pending == 0 {
			return
		}
		prog.processed.Add(pending)
		numbersVerified.Add(float64(pending))
		pending = 0
	}
	defer flush()

	for i := uint64(0); i < chunk.Count; i++ {
		if prog.failedAt.Load() != 0 || ctx.Err() != nil {
			break
		}

		n := chunk.Start + i*step
		if _, ok := v.finder.FindPair(n); !ok {
			if prog.failedAt.CompareAndSwap(0, n) {
				counterexamples.Inc()
				logger.WithFields(logrus.Fields{
					"worker": id,
					"n":      n,
				}).Error("No Goldbach pair found")
			}
			break
		}

		res.Processed++
		pending++
		if pending >= v.opts.CounterBatch {
			flush()
		}
	}

	res.Completed = res.Processed == chunk.Count
	logger.WithFields(logrus.Fields{
		"worker":    id,
		"chunk":     fmt.Sprintf("[%d, %d]", chunk.Start, chunk.End),
		"processed": res.Processed,
		"completed": res.Completed,
	}).Debug("Worker finished")
	return res
}

// reportProgress polls the shared counters and logs a status line at most
// once per ProgressInterval. It returns once the workers are done, the work is
// exhausted, or a counterexample has been recorded.
func (v *Verifier) reportProgress(ctx context.Context, logger logrus.FieldLogger, prog *progress, total uint64, startedAt time.Time, done <-chan struct{}) {
	ticker := time.NewTicker(v.opts.ProgressPoll)
	defer ticker.Stop()

	lastPrint := startedAt
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			processed := prog.processed.Load()
			if prog.failedAt.Load() != 0 || processed >= total {
				return
			}
			if now.Sub(lastPrint) < v.opts.ProgressInterval {
				continue
			}
			lastPrint = now
			v.logProgress(logger, processed, total, now.Sub(startedAt))
		}
	}
}

func (v *Verifier) logProgress(logger logrus.FieldLogger, processed, total uint64, elapsed time.Duration) {
	cache := v.oracle.Cache()
	primeCount, compositeCount := cache.Sizes()

	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(processed) / secs
	}

	cacheEntries.WithLabelValues("prime").Set(float64(primeCount))
	cacheEntries.WithLabelValues("composite").Set(float64(compositeCount))
	cacheHitRatio.Set(cache.HitRate())
	throughput.Set(rate)

	logger.WithFields(logrus.Fields{
		"percent":         fmt.Sprintf("%.2f", float64(processed)/float64(total)*100),
		"processed":       processed,
		"total":           total,
		"prime_cache":     primeCount,
		"composite_cache": compositeCount,
		"elapsed":         elapsed.Round(time.Second),
		"rate":            fmt.Sprintf("%.0f/s", rate),
	}).Info("Verification progress")
}

func (v *Verifier) recordRun(logger logrus.FieldLogger, r *Report) {
	runsTotal.WithLabelValues(string(r.Outcome)).Inc()
	runDuration.Observe(r.Elapsed.Seconds())
	activeWorkers.Set(0)
	cacheEntries.WithLabelValues("prime").Set(float64(r.PrimeCacheSize))
	cacheEntries.WithLabelValues("composite").Set(float64(r.CompositeCacheSize))
	cacheHitRatio.Set(r.CacheHitRate)
	throughput.Set(r.Throughput)

	fields := logrus.Fields{
		"outcome":   r.Outcome,
		"processed": r.Processed,
		"total":     r.Total,
		"elapsed":   r.Elapsed.Round(time.Millisecond),
		"rate":      fmt.Sprintf("%.0f/s", r.Throughput),
	}
	switch r.Outcome {
	case OutcomeFalsified:
		logger.WithFields(fields).WithField("failed_at", r.FailedAt).Error("Goldbach conjecture falsified")
	case OutcomeInterrupted:
		logger.WithFields(fields).Warn("Verification interrupted")
	default:
		logger.WithFields(fields).Info("Goldbach conjecture holds over range")
	}
}

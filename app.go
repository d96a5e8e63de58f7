package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/goldbach-research/goldbach-hunter/internal/config"
	"github.com/goldbach-research/goldbach-hunter/internal/goldbach"
	"github.com/goldbach-research/goldbach-hunter/internal/hardware"
	"github.com/goldbach-research/goldbach-hunter/internal/primes"
	"github.com/goldbach-research/goldbach-hunter/internal/storage"
)

// hunter wires configuration, the primality oracle, the verifier and
// persistence together for one invocation.
type hunter struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer
}

func newHunter(cfg *config.Config, logger *logrus.Logger, out io.Writer) *hunter {
	return &hunter{cfg: cfg, logger: logger, out: out}
}

// newOracle builds the oracle for the configured strategy. The table
// strategy loads (or generates) the prime table lazily on the first run.
func newOracle(cfg *config.Config, logger logrus.FieldLogger) (*primes.Oracle, error) {
	cache := primes.NewCache()

	var src primes.Source
	switch cfg.Verification.Strategy {
	case config.StrategyTable:
		src = primes.NewTableSource(primes.NewTable(), cfg.Table.Path, cfg.Table.AutoGenerate, primes.GenerateOptions{
			Limit:       cfg.Table.Limit,
			SegmentSize: cfg.Table.SegmentSize,
			Logger:      logger,
		}, logger)
	case config.StrategyIncremental:
		src = primes.NewIncrementalSource(primes.NewIncrementalList(cache, cfg.Table.SegmentSize))
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Verification.Strategy)
	}

	return primes.NewOracle(cache, src, cfg.Verification.Witnesses), nil
}

// verify runs the configured range, or its unverified tail when resume is
// set, and persists the report, any counterexample and a checkpoint.
// A falsified or interrupted run is reported, not returned as an error.
func (h *hunter) verify(ctx context.Context, resume bool) (*goldbach.Report, error) {
	cfg := h.cfg
	hw := hardware.Detect(h.logger)
	h.printStartupBanner(hw)

	store, err := storage.NewManager(cfg.Output.Directory, cfg.Output.FilenamePrefix, h.logger)
	if err != nil {
		return nil, err
	}

	start, end, step := cfg.Verification.Start, cfg.Verification.End, cfg.Verification.Step
	rangeStart := start
	if resume {
		next, done, err := h.resumePoint(store)
		if err != nil {
			return nil, err
		}
		if done {
			fmt.Fprintf(h.out, "Range [%d, %d] is already verified; nothing to resume.\n", start, end)
			return nil, nil
		}
		start = next
	}

	oracle, err := newOracle(cfg, h.logger)
	if err != nil {
		return nil, err
	}
	verifier := goldbach.NewVerifier(oracle, goldbach.Options{
		Workers:           cfg.Hardware.Workers,
		ProgressPoll:      cfg.Performance.ProgressPoll,
		ProgressInterval:  cfg.Performance.ProgressInterval,
		CounterBatch:      cfg.Performance.CounterBatch,
		SlowPairThreshold: cfg.Verification.SlowPairThreshold,
		Logger:            h.logger,
	})

	stopMetrics := h.serveMetrics()
	defer stopMetrics()

	report, runErr := verifier.Run(ctx, start, end, step)
	if report == nil {
		return nil, runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		h.logger.Warnf("Verification stopped: %v", runErr)
	}

	h.persist(store, report, rangeStart)

	if err := report.WriteSummary(h.out); err != nil {
		return report, err
	}
	return report, nil
}

// resumePoint returns the first unverified value recorded by the checkpoint.
// An absent or incompatible checkpoint resumes from the configured start.
func (h *hunter) resumePoint(store *storage.Manager) (next uint64, done bool, err error) {
	ver := h.cfg.Verification

	cp, err := store.LoadCheckpoint()
	if errors.Is(err, storage.ErrNoCheckpoint) {
		h.logger.Warn("No checkpoint found, starting from the configured start")
		return ver.Start, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resume: %w", err)
	}

	if cp.Start != ver.Start || cp.Step != ver.Step {
		h.logger.WithFields(logrus.Fields{
			"checkpoint_start": cp.Start,
			"checkpoint_step":  cp.Step,
		}).Warn("Checkpoint was written for a different range, ignoring it")
		return ver.Start, false, nil
	}

	next, ok := cp.Next(ver.End)
	if !ok {
		return 0, true, nil
	}
	h.logger.WithFields(logrus.Fields{
		"verified_through": cp.VerifiedThrough,
		"previous_run":     cp.RunID,
	}).Infof("Resuming from %d", next)
	return next, false, nil
}

// persist writes the run artifacts. Failures are logged; the summary is still
// printed.
func (h *hunter) persist(store *storage.Manager, report *goldbach.Report, rangeStart uint64) {
	out := h.cfg.Output

	if out.SaveReport {
		if err := store.SaveReport(report); err != nil {
			h.logger.Errorf("Failed to save report: %v", err)
		}
	}
	if err := store.AppendCounterexample(report); err != nil {
		h.logger.Errorf("Failed to record counterexample: %v", err)
	}

	if !out.SaveCheckpoints {
		return
	}
	cp, err := storage.CheckpointFromReport(report)
	if errors.Is(err, storage.ErrNothingToResume) {
		h.logger.Debug("Nothing verified, checkpoint left unchanged")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to build checkpoint: %v", err)
		return
	}
	cp.Start = rangeStart
	if err := store.SaveCheckpoint(cp); err != nil {
		h.logger.Errorf("Failed to save checkpoint: %v", err)
	}
}

// serveMetrics exposes the Prometheus registry when an address is configured
// and returns a function that shuts the listener down.
func (h *hunter) serveMetrics() func() {
	addr := h.cfg.Output.MetricsAddr
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		h.logger.Infof("Serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Errorf("Metrics server failed: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			h.logger.Warnf("Metrics server shutdown: %v", err)
		}
	}
}

func (h *hunter) printStartupBanner(hw hardware.Info) {
	cfg := h.cfg

	// The decorated banner is only for interactive terminals; piped output
	// keeps the single version line.
	if isTerminal(h.out) {
		rule := strings.Repeat("=", 78)
		fmt.Fprintln(h.out)
		fmt.Fprintln(h.out, rule)
		fmt.Fprintln(h.out, "                          GOLDBACH HUNTER")
		fmt.Fprintln(h.out, "     every even number greater than 2 is the sum of two primes?")
		fmt.Fprintln(h.out, rule)
	}
	fmt.Fprintf(h.out, "Version: %s | Go: %s | CPUs: %d | GOMAXPROCS: %d\n", Version, runtime.Version(), hw.Cores, hw.GOMAXPROCS)
	fmt.Fprintln(h.out)

	h.logger.Infof("Starting Goldbach Hunter with configuration:")
	h.logger.Infof("  Range: %d to %d step %d", cfg.Verification.Start, cfg.Verification.End, cfg.Verification.Step)
	h.logger.Infof("  Strategy: %s | Witnesses: %d", cfg.Verification.Strategy, cfg.Verification.Witnesses)
	h.logger.Infof("  Workers: %d | CPU Limit: %d%%", cfg.Hardware.Workers, cfg.Hardware.CPUUsagePercent)
	if cfg.Verification.Strategy == config.StrategyTable {
		h.logger.Infof("  Prime Table: %s (auto-generate: %t)", cfg.Table.Path, cfg.Table.AutoGenerate)
	}
	h.logger.Infof("  Output Directory: %s", cfg.Output.Directory)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

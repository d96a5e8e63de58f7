// Package storage persists run reports, counterexamples and resume
// checkpoints under the configured output directory.
package storage

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goldbach-research/goldbach-hunter/internal/goldbach"
	"github.com/goldbach-research/goldbach-hunter/internal/logging"
)

const CheckpointVersion = 1

var (
	ErrNoCheckpoint      = errors.New("no checkpoint found")
	ErrChecksumMismatch  = errors.New("checkpoint checksum mismatch")
	ErrNothingToResume   = errors.New("checkpoint covers no verified values")
	counterexampleHeader = []string{"n", "run_id", "strategy", "range_start", "range_end", "step", "found_at"}
)

// Checkpoint records how far a range has been verified so a later run can
// resume after VerifiedThrough.
type Checkpoint struct {
	Version         int              `json:"version"`
	RunID           string           `json:"run_id"`
	Strategy        string           `json:"strategy"`
	Start           uint64           `json:"start"`
	End             uint64           `json:"end"`
	Step            uint64           `json:"step"`
	VerifiedThrough uint64           `json:"verified_through"`
	Outcome         goldbach.Outcome `json:"outcome"`
	LastSaved       time.Time        `json:"last_saved"`
}

// CheckpointFromReport captures the verified prefix of r. It returns
// ErrNothingToResume when no value at the start of the range was verified.
func CheckpointFromReport(r *goldbach.Report) (*Checkpoint, error) {
	through, ok := r.VerifiedThrough()
	if !ok {
		return nil, ErrNothingToResume
	}
	return &Checkpoint{
		Version:         CheckpointVersion,
		RunID:           r.RunID,
		Strategy:        r.Strategy,
		Start:           r.Start,
		End:             r.End,
		Step:            r.Step,
		VerifiedThrough: through,
		Outcome:         r.Outcome,
		LastSaved:       time.Now().UTC(),
	}, nil
}

// Next returns the first value not yet verified and whether any remain
// before end.
func (c *Checkpoint) Next(end uint64) (uint64, bool) {
	next := c.VerifiedThrough + c.Step
	if next < c.VerifiedThrough || next > end {
		return 0, false
	}
	return next, true
}

type Manager struct {
	baseDir string
	prefix  string
	logger  logrus.FieldLogger
	mu      sync.Mutex

	reportsSaved         atomic.Int64
	counterexamplesSaved atomic.Int64
	checkpointsSaved     atomic.Int64
}

func NewManager(dir, prefix string, logger logrus.FieldLogger) (*Manager, error) {
	if dir == "" {
		dir = "."
	}
	if prefix == "" {
		prefix = "goldbach"
	}
	if logger == nil {
		logger = logging.Discard()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		baseDir: dir,
		prefix:  prefix,
		logger:  logger,
	}, nil
}

func (m *Manager) ReportPath() string {
	return filepath.Join(m.baseDir, m.prefix+"_report.json")
}

func (m *Manager) CounterexamplesPath() string {
	return filepath.Join(m.baseDir, m.prefix+"_counterexamples.csv")
}

func (m *Manager) CheckpointPath() string {
	return filepath.Join(m.baseDir, m.prefix+"_checkpoint.json")
}

// SaveReport overwrites the report file with r.
func (m *Manager) SaveReport(r *goldbach.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(m.ReportPath(), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	m.reportsSaved.Add(1)
	m.logger.WithField("path", m.ReportPath()).Debug("Report saved")
	return nil
}

// AppendCounterexample adds the failing value of a falsified report to the
// CSV log. Reports without a counterexample are ignored.
func (m *Manager) AppendCounterexample(r *goldbach.Report) error {
	if r.FailedAt == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.CounterexamplesPath()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open counterexample log: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if stat, err := file.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(counterexampleHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	record := []string{
		strconv.FormatUint(r.FailedAt, 10),
		r.RunID,
		r.Strategy,
		strconv.FormatUint(r.Start, 10),
		strconv.FormatUint(r.End, 10),
		strconv.FormatUint(r.Step, 10),
		r.StartedAt.Add(r.Elapsed).UTC().Format(time.RFC3339Nano),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write counterexample: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush counterexample log: %w", err)
	}

	m.counterexamplesSaved.Add(1)
	m.logger.WithFields(logrus.Fields{
		"n":    r.FailedAt,
		"path": path,
	}).Warn("Counterexample recorded")
	return nil
}

// SaveCheckpoint writes cp, keeping the previous checkpoint as a .backup
// and a sha256 of the new one in .checksum.
func (m *Manager) SaveCheckpoint(cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.CheckpointPath()
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".backup"); err != nil {
			m.logger.Warnf("Failed to create checkpoint backup: %v", err)
		}
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	if err := os.WriteFile(path+".checksum", []byte(checksum(data)), 0644); err != nil {
		m.logger.Warnf("Failed to write checksum: %v", err)
	}

	m.checkpointsSaved.Add(1)
	m.logger.WithFields(logrus.Fields{
		"verified_through": cp.VerifiedThrough,
		"path":             path,
	}).Info("Checkpoint saved")
	return nil
}

// LoadCheckpoint reads the checkpoint, verifying it against its checksum
// file when one exists.
func (m *Manager) LoadCheckpoint() (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.CheckpointPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if want, err := os.ReadFile(path + ".checksum"); err == nil {
		if strings.TrimSpace(string(want)) != checksum(data) {
			return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, path)
		}
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if cp.Version != CheckpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}
	return &cp, nil
}

// Saved reports how many reports, counterexamples and checkpoints this
// manager has written.
func (m *Manager) Saved() (reports, counterexamples, checkpoints int64) {
	return m.reportsSaved.Load(), m.counterexamplesSaved.Load(), m.checkpointsSaved.Load()
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

package primes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/goldbach-research/goldbach-hunter/internal/logging"
)

// DefaultTableFile is the conventional name of the full 32-bit table.
const DefaultTableFile = "primes_2_32.txt"

// MaxTableValue is the largest value a table may hold.
const MaxTableValue = math.MaxUint32

// Table is the sorted list of every prime up to its largest element. It is
// loaded once and never modified afterwards, so lookups take no lock.
type Table struct {
	mu     sync.Mutex
	loaded atomic.Bool
	primes []uint32
}

func NewTable() *Table {
	return &Table{}
}

// Load reads path into the table. It is a no-op once a load has succeeded.
func (t *Table) Load(path string) error {
	if t.loaded.Load() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded.Load() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open prime table: %w", err)
	}
	defer f.Close()

	hint := 0
	if st, err := f.Stat(); err == nil {
		// roughly eleven bytes per line for ten-digit primes
		hint = int(st.Size() / 11)
	}

	ps, err := parseTable(f, hint)
	if err != nil {
		return fmt.Errorf("failed to read prime table %s: %w", path, err)
	}
	t.primes = ps
	t.loaded.Store(true)
	return nil
}

// LoadFrom parses r into the table, replacing nothing if already loaded.
func (t *Table) LoadFrom(r io.Reader) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded.Load() {
		return nil
	}
	ps, err := parseTable(r, 0)
	if err != nil {
		return err
	}
	t.primes = ps
	t.loaded.Store(true)
	return nil
}

func parseTable(r io.Reader, hint int) ([]uint32, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	ps := make([]uint32, 0, hint)
	var prev uint64
	for sc.Scan() {
		v, err := parseUint(sc.Bytes())
		if err != nil {
			return nil, err
		}
		if v > MaxTableValue {
			return nil, fmt.Errorf("%w: %d", ErrTableValueTooLarge, v)
		}
		if len(ps) > 0 && v <= prev {
			return nil, fmt.Errorf("%w: %d after %d", ErrTableUnsorted, v, prev)
		}
		ps = append(ps, uint32(v))
		prev = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, ErrTableEmpty
	}
	return ps, nil
}

var errBadDigit = errors.New("invalid decimal token")

// parseUint avoids the string allocation strconv would need per token.
func parseUint(b []byte) (uint64, error) {
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w %q", errBadDigit, b)
		}
		d := uint64(c - '0')
		if v > (math.MaxUint64-d)/10 {
			return 0, fmt.Errorf("%w %q: overflow", errBadDigit, b)
		}
		v = v*10 + d
	}
	return v, nil
}

func (t *Table) Loaded() bool {
	return t.loaded.Load()
}

func (t *Table) Len() int {
	if !t.loaded.Load() {
		return 0
	}
	return len(t.primes)
}

// Max is the largest prime in the table; the table covers [2, Max].
func (t *Table) Max() uint64 {
	if !t.loaded.Load() {
		return 0
	}
	return uint64(t.primes[len(t.primes)-1])
}

// Contains binary searches the table. Callers must check coverage first.
func (t *Table) Contains(n uint64) bool {
	if !t.loaded.Load() || n > MaxTableValue {
		return false
	}
	_, found := slices.BinarySearch(t.primes, uint32(n))
	return found
}

// UpperBound returns the number of table primes <= n.
func (t *Table) UpperBound(n uint64) int {
	if !t.loaded.Load() {
		return 0
	}
	if n >= MaxTableValue {
		return len(t.primes)
	}
	i, found := slices.BinarySearch(t.primes, uint32(n))
	if found {
		i++
	}
	return i
}

// ==================== TABLE SOURCE ====================

// TableSource serves primality from a precomputed Table, generating the table
// file first when it is missing and generation is enabled.
type TableSource struct {
	table    *Table
	path     string
	generate bool
	opts     GenerateOptions
	logger   logrus.FieldLogger
}

func NewTableSource(table *Table, path string, generate bool, opts GenerateOptions, logger logrus.FieldLogger) *TableSource {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &TableSource{
		table:    table,
		path:     path,
		generate: generate,
		opts:     opts,
		logger:   logger,
	}
}

func (s *TableSource) Name() string { return "table" }

// Reset is a no-op: the table is immutable after load.
func (s *TableSource) Reset() {}

func (s *TableSource) Table() *Table { return s.table }

func (s *TableSource) EnsureCovered(ctx context.Context, bound uint64) error {
	if !s.table.Loaded() {
		if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) && s.generate {
			s.logger.Infof("Prime table %s not found, generating primes up to %d", s.path, s.opts.limit())
			if _, err := GenerateTableFile(ctx, s.path, s.opts); err != nil {
				return fmt.Errorf("failed to generate prime table: %w", err)
			}
		}
		if err := s.table.Load(s.path); err != nil {
			s.logger.Errorf("Failed to load prime table: %v", err)
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"path":   s.path,
			"primes": s.table.Len(),
			"max":    s.table.Max(),
		}).Info("Prime table loaded")
	}
	if bound > s.table.Max() {
		s.logger.Debugf("Prime table ends at %d, numbers up to %d fall back to Miller-Rabin", s.table.Max(), bound)
	}
	return nil
}

func (s *TableSource) Lookup(n uint64) (prime, covered bool) {
	if !s.table.Loaded() || n > s.table.Max() {
		return false, false
	}
	return s.table.Contains(n), true
}

func (s *TableSource) PrimesUpTo(bound uint64) (iter.Seq[uint64], bool) {
	if !s.table.Loaded() || bound > s.table.Max() {
		return nil, false
	}
	return ascending(s.table.primes[:s.table.UpperBound(bound)]), true
}

func (s *TableSource) Len() int { return s.table.Len() }

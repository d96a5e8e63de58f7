package primes

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goldbach-research/goldbach-hunter/internal/logging"
)

// GenerateOptions controls table generation.
type GenerateOptions struct {
	// Limit is the largest candidate; zero means MaxTableValue.
	Limit uint64
	// SegmentSize is the sieve window; zero means DefaultSegmentSize.
	SegmentSize uint64
	Logger      logrus.FieldLogger
}

func (o GenerateOptions) limit() uint64 {
	if o.Limit == 0 || o.Limit > MaxTableValue {
		return MaxTableValue
	}
	return o.Limit
}

// GenerateTableFile writes every prime <= opts.Limit to path, one per line.
// The file is written to a temporary sibling and renamed into place, so a
// cancelled run never leaves a truncated table behind.
func GenerateTableFile(ctx context.Context, path string, opts GenerateOptions) (uint64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create table directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary table file: %w", err)
	}
	defer os.Remove(tmp.Name())

	count, err := WritePrimes(ctx, tmp, opts)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to move table into place: %w", err)
	}
	return count, nil
}

// WritePrimes streams the primes <= opts.Limit to w in ascending order using a
// simple sieve for the seed primes and a segmented sieve for the rest.
func WritePrimes(ctx context.Context, w io.Writer, opts GenerateOptions) (uint64, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	limit := opts.limit()
	segment := opts.SegmentSize
	if segment == 0 {
		segment = DefaultSegmentSize
	}

	start := time.Now()
	seeds := SimpleSieve(ISqrt(limit))
	logger.Debugf("Generated %d seed primes up to %d", len(seeds), ISqrt(limit))

	bw := bufio.NewWriterSize(w, 1<<20)
	buf := make([]byte, 0, 24)
	var count uint64

	segments := (limit-1)/segment + 1
	reportEvery := segments / 100
	if reportEvery == 0 {
		reportEvery = 1
	}
	var done uint64

	err := SegmentedSieve(ctx, 2, limit, seeds, segment, func(lo, hi uint64, found []uint64) error {
		for _, p := range found {
			buf = strconv.AppendUint(buf[:0], p, 10)
			buf = append(buf, '\n')
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("failed to write prime %d: %w", p, err)
			}
		}
		count += uint64(len(found))
		done++
		if done%reportEvery == 0 {
			logger.WithFields(logrus.Fields{
				"percent": fmt.Sprintf("%.1f", float64(hi)/float64(limit)*100),
				"primes":  count,
				"elapsed": time.Since(start).Round(time.Second),
			}).Info("Generating prime table")
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("failed to flush prime table: %w", err)
	}

	logger.Infof("Prime table complete: %d primes up to %d in %s", count, limit, time.Since(start).Round(time.Millisecond))
	return count, nil
}

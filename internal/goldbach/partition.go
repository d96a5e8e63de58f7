package goldbach

import (
	"errors"
	"fmt"
)

var ErrInvalidRange = errors.New("invalid verification range")

// Chunk is a contiguous run of Count values Start, Start+step, ..., End.
// End is inclusive.
type Chunk struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
	Count uint64 `json:"count"`
}

// CountSteps returns how many values start, start+step, ... are <= end.
func CountSteps(start, end, step uint64) (uint64, error) {
	if step == 0 {
		return 0, fmt.Errorf("%w: step must be positive", ErrInvalidRange)
	}
	if start > end {
		return 0, fmt.Errorf("%w: start %d exceeds end %d", ErrInvalidRange, start, end)
	}
	return (end-start)/step + 1, nil
}

// Partition splits the stepped sequence over [start, end] into at most workers
// contiguous chunks of equal size; the last chunk absorbs the remainder.
// There are never more chunks than values.
func Partition(start, end, step uint64, workers int) ([]Chunk, error) {
	count, err := CountSteps(start, end, step)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	w := uint64(workers)
	if w > count {
		w = count
	}

	per := count / w
	chunks := make([]Chunk, 0, w)
	for i := uint64(0); i < w; i++ {
		c := per
		if i == w-1 {
			c = count - i*per
		}
		first := start + i*per*step
		chunks = append(chunks, Chunk{
			Start: first,
			End:   first + (c-1)*step,
			Count: c,
		})
	}
	return chunks, nil
}

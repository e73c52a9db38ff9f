package spectrum

import (
	"fmt"

	"github.com/racerxdl/segdsp/tools"
)

// Accumulator keeps per-bin power sums and per-bin counts of contributing
// samples across any number of Frame Batches. Both slices are always exactly
// fftSize long. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	fftSize int
	sum     []float64
	count   []int64
}

// NewAccumulator creates an empty accumulator for frames of fftSize bins.
func NewAccumulator(fftSize int) (*Accumulator, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("%w: fft size must be positive: %d given", ErrInvalidArgument, fftSize)
	}

	return &Accumulator{
		fftSize: fftSize,
		sum:     make([]float64, fftSize),
		count:   make([]int64, fftSize),
	}, nil
}

// FFTSize returns the number of bins per frame.
func (a *Accumulator) FFTSize() int {
	return a.fftSize
}

// Add reshapes one Frame Batch and adds the squared magnitude of every
// sample to its bin. A batch that does not reshape leaves the accumulator
// untouched. Add returns the number of frames found in the batch.
func (a *Accumulator) Add(batch []byte) (int, error) {
	frames, err := Reshape(batch, a.fftSize)
	if err != nil {
		return 0, err
	}

	a.AddFrames(frames)
	return len(frames), nil
}

// AddFrames adds already decoded frames. Every frame must be fftSize long.
func (a *Accumulator) AddFrames(frames [][]complex64) {
	for _, frame := range frames {
		for bin, s := range frame {
			a.sum[bin] += float64(tools.ComplexAbsSquared(s))
			a.count[bin]++
		}
	}
}

// Counts returns a copy of the per-bin contribution counts.
func (a *Accumulator) Counts() []int64 {
	return append([]int64(nil), a.count...)
}

// Result returns the mean power of every bin that received at least one
// sample. Bins without contributions are dropped, not zero-filled, so the
// result is shorter than fftSize when nothing was accumulated.
func (a *Accumulator) Result() []float64 {
	result := make([]float64, 0, a.fftSize)
	for bin, n := range a.count {
		if n > 0 {
			result = append(result, a.sum[bin]/float64(n))
		}
	}
	return result
}

// Reset clears all sums and counts.
func (a *Accumulator) Reset() {
	clear(a.sum)
	clear(a.count)
}

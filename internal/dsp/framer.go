package dsp

import "fmt"

// Framer groups a sample stream into fixed-size frames. Samples carry the
// settings generation they were captured under; a partial frame is dropped
// when the generation changes, so no frame spans two generations.
type Framer struct {
	size       int
	buf        []complex64
	n          int
	generation uint64
	dropped    uint64
}

func NewFramer(size int) (*Framer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("frame size must be positive: %d", size)
	}
	return &Framer{size: size, buf: make([]complex64, size)}, nil
}

func (f *Framer) Size() int {
	return f.size
}

// Dropped returns the number of samples discarded on generation changes.
func (f *Framer) Dropped() uint64 {
	return f.dropped
}

// Pending returns the number of samples waiting for a full frame.
func (f *Framer) Pending() int {
	return f.n
}

// Write appends samples captured under generation and returns the frames
// completed by them. Returned frames are freshly allocated.
func (f *Framer) Write(samples []complex64, generation uint64) [][]complex64 {
	if generation != f.generation {
		f.dropped += uint64(f.n)
		f.n = 0
		f.generation = generation
	}

	var frames [][]complex64
	for len(samples) > 0 {
		c := copy(f.buf[f.n:], samples)
		f.n += c
		samples = samples[c:]

		if f.n == f.size {
			frame := make([]complex64, f.size)
			copy(frame, f.buf)
			frames = append(frames, frame)
			f.n = 0
		}
	}
	return frames
}

// Reset discards the partial frame.
func (f *Framer) Reset() {
	f.dropped += uint64(f.n)
	f.n = 0
}

package dsp

import (
	"fmt"

	"github.com/racerxdl/segdsp/dsp"
	"github.com/racerxdl/segdsp/dsp/fft"
)

// windowAttenuation selects the 4-term 92 dB Blackman-Harris window.
const windowAttenuation = 92

// FFT computes the windowed forward transform of fixed-size frames.
type FFT struct {
	size    int
	shift   bool
	window  []float32
	scratch []complex64
}

// NewFFT creates a transform of size bins, which must be a power of two.
// With shift set, the output is reordered so that DC sits in the middle.
func NewFFT(size int, shift bool) (*FFT, error) {
	if !IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of two: %d", size)
	}

	w := dsp.BlackmanHarris(size, windowAttenuation)
	window := make([]float32, size)
	for i, v := range w {
		window[i] = float32(v)
	}

	return &FFT{
		size:    size,
		shift:   shift,
		window:  window,
		scratch: make([]complex64, size),
	}, nil
}

func (f *FFT) Size() int {
	return f.size
}

// Window returns the window coefficients.
func (f *FFT) Window() []float32 {
	return f.window
}

// Transform returns the spectrum of frame, which must hold Size samples.
// frame is left untouched and the result is never reused.
func (f *FFT) Transform(frame []complex64) ([]complex64, error) {
	if len(frame) != f.size {
		return nil, fmt.Errorf("frame has %d samples, want %d", len(frame), f.size)
	}

	for i, s := range frame {
		w := f.window[i]
		f.scratch[i] = complex(real(s)*w, imag(s)*w)
	}

	out := fft.FFT(f.scratch)
	if f.shift {
		return Shift(out), nil
	}

	res := make([]complex64, len(out))
	copy(res, out)
	return res, nil
}

// Shift swaps the two halves of a spectrum, moving the zero-frequency bin to
// the center.
func Shift(x []complex64) []complex64 {
	out := make([]complex64, len(x))
	half := len(x) / 2
	copy(out, x[half:])
	copy(out[len(x)-half:], x[:half])
	return out
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

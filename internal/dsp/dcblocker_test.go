package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestNewDCBlocker_InvalidLength(t *testing.T) {
	for _, length := range []int{-1, 0, 1} {
		if _, err := NewDCBlocker(length); err == nil {
			t.Errorf("length %d: expected error", length)
		}
	}
}

func TestDCBlocker_RemovesDC(t *testing.T) {
	const length = 32

	b, err := NewDCBlocker(length)
	if err != nil {
		t.Fatalf("NewDCBlocker: %v", err)
	}

	in := make([]complex64, 10*length)
	for i := range in {
		in[i] = complex(0.7, -0.3)
	}
	out := make([]complex64, len(in))
	b.Process(out, in)

	for i := 6 * length; i < len(out); i++ {
		if cmplx.Abs(complex128(out[i])) > 1e-4 {
			t.Fatalf("sample %d: expected DC to be removed, got %v", i, out[i])
		}
	}
}

func TestDCBlocker_PassesTone(t *testing.T) {
	const length = 32
	delay := 2*length - 2

	b, err := NewDCBlocker(length)
	if err != nil {
		t.Fatalf("NewDCBlocker: %v", err)
	}

	// A quarter sample rate tone averages to zero over any 32 samples, so
	// the output is the input delayed by 2D-2 samples.
	in := make([]complex64, 8*length)
	for i := range in {
		in[i] = complex64(cmplx.Exp(complex(0, math.Pi/2*float64(i))))
	}
	out := make([]complex64, len(in))

	// Filter in two chunks to exercise state carried between calls.
	b.Process(out[:100], in[:100])
	b.Process(out[100:], in[100:])

	for i := 5 * length; i < len(out); i++ {
		if d := cmplx.Abs(complex128(out[i] - in[i-delay])); d > 1e-3 {
			t.Fatalf("sample %d: expected %v, got %v", i, in[i-delay], out[i])
		}
	}
}

func TestDCBlocker_Reset(t *testing.T) {
	b, err := NewDCBlocker(4)
	if err != nil {
		t.Fatalf("NewDCBlocker: %v", err)
	}

	in := []complex64{1, 2, 3, 4, 5, 6, 7, 8}
	first := make([]complex64, len(in))
	b.Process(first, in)

	b.Reset()

	second := make([]complex64, len(in))
	b.Process(second, in)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d: expected %v after reset, got %v", i, first[i], second[i])
		}
	}
}

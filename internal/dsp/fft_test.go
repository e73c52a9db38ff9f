package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func peak(x []complex64) int {
	var (
		best int
		max  float64
	)
	for i, s := range x {
		if m := cmplx.Abs(complex128(s)); m > max {
			best, max = i, m
		}
	}
	return best
}

func tone(n, bin int) []complex64 {
	x := make([]complex64, n)
	for i := range x {
		x[i] = complex64(cmplx.Exp(complex(0, 2*math.Pi*float64(bin*i)/float64(n))))
	}
	return x
}

func TestFFT_TonePeak(t *testing.T) {
	const size = 64

	tests := []struct {
		name  string
		shift bool
		bin   int
		want  int
	}{
		{"positive tone", false, 5, 5},
		{"negative tone", false, size - 3, size - 3},
		{"positive tone shifted", true, 5, size/2 + 5},
		{"negative tone shifted", true, size - 3, size/2 - 3},
		{"dc shifted", true, 0, size / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFFT(size, tt.shift)
			if err != nil {
				t.Fatalf("NewFFT: %v", err)
			}

			in := tone(size, tt.bin)
			out, err := f.Transform(in)
			if err != nil {
				t.Fatalf("Transform: %v", err)
			}
			if len(out) != size {
				t.Fatalf("expected %d bins, got %d", size, len(out))
			}
			if got := peak(out); got != tt.want {
				t.Errorf("expected peak at %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFFT_InputUntouched(t *testing.T) {
	f, err := NewFFT(16, false)
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	in := tone(16, 2)
	orig := append([]complex64(nil), in...)

	first, err := f.Transform(in)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	snapshot := append([]complex64(nil), first...)

	if _, err = f.Transform(tone(16, 7)); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
		if first[i] != snapshot[i] {
			t.Fatalf("result reused at %d", i)
		}
	}
}

func TestFFT_Window(t *testing.T) {
	f, err := NewFFT(128, true)
	if err != nil {
		t.Fatalf("NewFFT: %v", err)
	}

	w := f.Window()
	if w[0] > 0.01 {
		t.Errorf("expected a tapered edge, got %f", w[0])
	}

	var max float32
	for _, v := range w {
		max = float32(math.Max(float64(max), float64(v)))
	}
	if max < 0.9 {
		t.Errorf("expected a peak close to 1, got %f", max)
	}
}

func TestNewFFT_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -8, 3, 1000} {
		if _, err := NewFFT(size, false); err == nil {
			t.Errorf("size %d: expected error", size)
		}
	}
}

func TestShift(t *testing.T) {
	got := Shift([]complex64{0, 1, 2, 3})
	want := []complex64{2, 3, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

package spectrum

import (
	"errors"
	"math"
	"testing"
)

func batchOf(frames ...[]complex64) []byte {
	var payload []byte
	for _, f := range frames {
		payload = EncodeFrame(payload, f)
	}
	return payload
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestAccumulator_ConcreteScenario(t *testing.T) {
	acc, err := NewAccumulator(4)
	if err != nil {
		t.Fatalf("Failed to create accumulator: %v", err)
	}

	batches := [][]byte{
		batchOf([]complex64{1 + 0i, 0 + 1i, 1 + 1i, 0 + 0i}),
		batchOf([]complex64{2 + 0i, 0 + 0i, 0 + 2i, 0 + 0i}),
	}
	for i, b := range batches {
		if _, err := acc.Add(b); err != nil {
			t.Fatalf("batch %d: unexpected error: %v", i, err)
		}
	}

	expected := []float64{2.5, 0.5, 3.0, 0.0}
	result := acc.Result()
	if len(result) != len(expected) {
		t.Fatalf("Expected %d bins, got %d: %v", len(expected), len(result), result)
	}
	for i := range expected {
		if !almostEqual(result[i], expected[i]) {
			t.Errorf("bin %d: expected %f, got %f", i, expected[i], result[i])
		}
	}
}

func TestAccumulator_PowerIsMagnitudeSquared(t *testing.T) {
	const m = 3.0
	acc, _ := NewAccumulator(8)

	frame := make([]complex64, 8)
	for i := range frame {
		// Same magnitude, different phase.
		phase := float64(i) * math.Pi / 4
		frame[i] = complex(float32(m*math.Cos(phase)), float32(m*math.Sin(phase)))
	}

	for i := 0; i < 5; i++ {
		if _, err := acc.Add(batchOf(frame)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for bin, p := range acc.Result() {
		if math.Abs(p-m*m) > 1e-4 {
			t.Errorf("bin %d: expected %f, got %f", bin, m*m, p)
		}
	}
}

func TestAccumulator_Linearity(t *testing.T) {
	acc, _ := NewAccumulator(3)

	p1 := []complex64{1, 2, 3}
	p2 := []complex64{3, 0, 1i}
	_, _ = acc.Add(batchOf(p1))
	_, _ = acc.Add(batchOf(p2))

	expected := []float64{(1 + 9) / 2.0, (4 + 0) / 2.0, (9 + 1) / 2.0}
	for i, v := range acc.Result() {
		if !almostEqual(v, expected[i]) {
			t.Errorf("bin %d: expected %f, got %f", i, expected[i], v)
		}
	}
}

func TestAccumulator_MultiFrameBatch(t *testing.T) {
	acc, _ := NewAccumulator(2)

	n, err := acc.Add(batchOf([]complex64{1, 1}, []complex64{3, 0}, []complex64{2, 2}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("Expected 3 frames, got %d", n)
	}

	for bin, c := range acc.Counts() {
		if c != 3 {
			t.Errorf("bin %d: expected count 3, got %d", bin, c)
		}
	}

	expected := []float64{(1 + 9 + 4) / 3.0, (1 + 0 + 4) / 3.0}
	for i, v := range acc.Result() {
		if !almostEqual(v, expected[i]) {
			t.Errorf("bin %d: expected %f, got %f", i, expected[i], v)
		}
	}
}

func TestAccumulator_Empty(t *testing.T) {
	acc, _ := NewAccumulator(16)

	if result := acc.Result(); len(result) != 0 {
		t.Errorf("Expected empty result, got %v", result)
	}

	// An empty batch holds zero frames and populates nothing.
	if n, err := acc.Add(nil); err != nil || n != 0 {
		t.Errorf("Expected 0 frames and no error, got %d, %v", n, err)
	}
	if result := acc.Result(); len(result) != 0 {
		t.Errorf("Expected empty result, got %v", result)
	}
}

func TestAccumulator_ShapeErrorLeavesStateUntouched(t *testing.T) {
	acc, _ := NewAccumulator(4)
	_, _ = acc.Add(batchOf([]complex64{1, 1, 1, 1}))

	bad := make([]byte, FrameBytes(4)*4+FrameBytes(4)/2)
	for i := range bad {
		bad[i] = 0x40
	}

	_, err := acc.Add(bad)
	var shapeErr *ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Expected ShapeError, got %v", err)
	}

	for bin, c := range acc.Counts() {
		if c != 1 {
			t.Errorf("bin %d: expected count 1, got %d", bin, c)
		}
	}
	for bin, v := range acc.Result() {
		if !almostEqual(v, 1) {
			t.Errorf("bin %d: expected 1, got %f", bin, v)
		}
	}
}

func TestNewAccumulator_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := NewAccumulator(size); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("size %d: expected ErrInvalidArgument, got %v", size, err)
		}
	}
}

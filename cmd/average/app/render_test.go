package app

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestCalculateNiceStep(t *testing.T) {
	steps := []float64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000}

	tests := []struct {
		name   string
		range_ float64
		length int
		want   float64
	}{
		{"2.4 MHz over 1024px", 2.4e6, 1024, 1_000_000},
		{"100 kHz over 1024px", 100e3, 1024, 100_000 / 2},
		{"tiny range", 1, 1024, 0.5},
		{"200 bins over 1024px", 200, 1024, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateNiceStep(tt.range_, tt.length, steps); got != tt.want {
				t.Errorf("calculateNiceStep(%v, %d) = %v, want %v", tt.range_, tt.length, got, tt.want)
			}
		})
	}
}

func TestFormatFrequency(t *testing.T) {
	if got := formatFrequency(100e6); got != "100 MHz" {
		t.Errorf("Expected \"100 MHz\", got %q", got)
	}
	if got := formatFrequency(1.5e3); got != "1.5 kHz" {
		t.Errorf("Expected \"1.5 kHz\", got %q", got)
	}
}

func TestHSV_RGB(t *testing.T) {
	tests := []struct {
		hsv  HSV
		want color.RGBA
	}{
		{HSV{H: 0, S: 1, V: 1}, color.RGBA{R: 255, A: 255}},
		{HSV{H: 120, S: 1, V: 1}, color.RGBA{G: 255, A: 255}},
		{HSV{H: 240, S: 1, V: 1}, color.RGBA{B: 255, A: 255}},
		{HSV{H: 0, S: 0, V: 1}, color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	}

	for _, tt := range tests {
		if got := tt.hsv.RGB(); got != tt.want {
			t.Errorf("%+v.RGB() = %v, want %v", tt.hsv, got, tt.want)
		}
	}
}

func TestDrawLine(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{R: 255, A: 255}

	drawLine(0, 0, 9, 9, red, img)
	for i := 0; i < 10; i++ {
		if img.RGBAAt(i, i) != red {
			t.Errorf("Expected pixel (%d, %d) to be set", i, i)
		}
	}

	drawLine(5, 2, 5, 2, red, img)
	if img.RGBAAt(5, 2) != red {
		t.Error("Expected a zero-length line to set its end point")
	}
}

func TestPlotRenderer_Render(t *testing.T) {
	mean := make([]float64, 64)
	for i := range mean {
		mean[i] = 1e-6
	}
	mean[40] = 1

	spec := NewPowerSpectrum(mean, ptr(100e6), ptr(2.4e6), true)
	bounds := spec.Bounds(nil, nil)

	for _, annotations := range []bool{false, true} {
		r := NewPlotRenderer(RenderConfig{Width: 256, Height: 128, Annotations: annotations, Endpoint: "tcp://127.0.0.1:5555"})
		img, err := r.Render(spec, bounds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		size := img.Bounds().Size()
		wantW := 256 + defaultLeftBorder + defaultRightBorder
		wantH := 128 + defaultTopBorder + defaultBottomBorder
		if size.X != wantW || size.Y != wantH {
			t.Fatalf("Expected %dx%d image, got %dx%d", wantW, wantH, size.X, size.Y)
		}

		// The peak reaches the top of the plot area in the hottest color.
		p := &plot{
			area:   image.Rect(defaultLeftBorder, defaultTopBorder, defaultLeftBorder+256, defaultTopBorder+128),
			spec:   spec,
			bounds: bounds,
		}
		x := int(p.x(spec.Bins[40].Frequency))
		y := int(p.y(spec.Bins[40].PowerDB))
		want := powerColor(spec.Bins[40].PowerDB, bounds)
		if got := img.At(x, y); !sameColor(got, want) {
			t.Errorf("Expected peak pixel %v at (%d, %d), got %v", want, x, y, got)
		}
		if y >= p.area.Min.Y+p.area.Dy()/4 {
			t.Errorf("Expected the peak near the top of the plot, got y=%d", y)
		}
	}
}

func TestPowerColor_Clamps(t *testing.T) {
	bounds := PowerBounds{Min: -100, Max: 0}

	if !sameColor(powerColor(math.Inf(1), bounds), powerColor(0, bounds)) {
		t.Error("Expected power above bounds to clamp to the hottest color")
	}
	if !sameColor(powerColor(-500, bounds), powerColor(-100, bounds)) {
		t.Error("Expected power below bounds to clamp to the coldest color")
	}
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/racerxdl/segdsp/tools"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 8.0
	tickMarkLength = 5
	pixelsPerLabel = 150.00

	defaultPlotWidth  = 1024
	defaultPlotHeight = 512

	// Default border sizes in pixels
	defaultTopBorder    = 20
	defaultLeftBorder   = 80
	defaultBottomBorder = 70
	defaultRightBorder  = 40

	hueCold = 236.0
	hueHot  = 0.0
)

var (
	gridColor       = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	meanColor       = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	backgroundColor = color.White
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Top padding
	Left   int // Space for power scale
	Bottom int // Space for frequency scale and information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for the spectrum plot
type RenderConfig struct {
	Width, Height int // Plot area in pixels
	FontSize      float64
	Annotations   bool
	Endpoint      string

	BorderConfig BorderConfig
}

// PlotRenderer draws an averaged power spectrum as a line plot
type PlotRenderer struct {
	config RenderConfig
}

// NewPlotRenderer creates a new plot renderer with the given configuration
func NewPlotRenderer(config RenderConfig) *PlotRenderer {
	if config.Width <= 0 {
		config.Width = defaultPlotWidth
	}
	if config.Height <= 0 {
		config.Height = defaultPlotHeight
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &PlotRenderer{config: config}
}

// Render creates an image of the spectrum with annotations
func (r *PlotRenderer) Render(spec *PowerSpectrum, bounds PowerBounds) (*image.RGBA, error) {
	b := r.config.BorderConfig
	fullWidth := r.config.Width + b.Left + b.Right
	fullHeight := r.config.Height + b.Top + b.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	p := &plot{
		area:   image.Rect(b.Left, b.Top, b.Left+r.config.Width, b.Top+r.config.Height),
		spec:   spec,
		bounds: bounds,
	}

	p.drawGrid(img)

	if r.config.Annotations {
		ann, err := newAnnotator(r.config)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, p); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	p.drawTrace(img)
	return img, nil
}

// plot maps spectrum values onto the plot area.
type plot struct {
	area   image.Rectangle
	spec   *PowerSpectrum
	bounds PowerBounds
}

func (p *plot) x(position float64) float32 {
	span := p.spec.FrequencyMax - p.spec.FrequencyMin
	if span <= 0 {
		return float32(p.area.Min.X + p.area.Dx()/2)
	}
	ratio := (position - p.spec.FrequencyMin) / span
	return float32(p.area.Min.X) + float32(ratio*float64(p.area.Dx()-1))
}

func (p *plot) y(power float64) float32 {
	power = math.Max(p.bounds.Min, math.Min(power, p.bounds.Max))
	ratio := (power - p.bounds.Min) / (p.bounds.Max - p.bounds.Min)
	return float32(p.area.Max.Y-1) - float32(ratio*float64(p.area.Dy()-1))
}

func (p *plot) drawGrid(img *image.RGBA) {
	for _, db := range p.powerTicks() {
		y := int(p.y(db))
		for x := p.area.Min.X; x < p.area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
	}

	mean := int(p.y(p.bounds.Mean))
	for x := p.area.Min.X; x < p.area.Max.X; x += 4 {
		img.Set(x, mean, meanColor)
	}

	frame := p.area.Inset(-1)
	for x := frame.Min.X; x < frame.Max.X; x++ {
		img.Set(x, frame.Min.Y, color.Black)
		img.Set(x, frame.Max.Y-1, color.Black)
	}
	for y := frame.Min.Y; y < frame.Max.Y; y++ {
		img.Set(frame.Min.X, y, color.Black)
		img.Set(frame.Max.X-1, y, color.Black)
	}
}

func (p *plot) drawTrace(img *image.RGBA) {
	bins := p.spec.Ordered()
	for i, bin := range bins {
		x1, y1 := p.x(p.spec.Position(bin)), p.y(bin.PowerDB)
		if i == 0 {
			img.Set(int(x1), int(y1), powerColor(bin.PowerDB, p.bounds))
			continue
		}

		// a segment takes the color of its stronger end
		prev := bins[i-1]
		c := powerColor(max(prev.PowerDB, bin.PowerDB), p.bounds)
		drawLine(p.x(p.spec.Position(prev)), p.y(prev.PowerDB), x1, y1, c, img)
	}
}

func (p *plot) powerTicks() []float64 {
	step := calculateNiceStep(p.bounds.Max-p.bounds.Min, p.area.Dy(), []float64{1, 2, 5, 10, 20, 50, 100})
	if step <= 0 {
		return nil
	}

	var ticks []float64
	for db := math.Ceil(p.bounds.Min/step) * step; db <= p.bounds.Max; db += step {
		ticks = append(ticks, db)
	}
	return ticks
}

// drawLine rasterizes a segment with a DDA, end point included.
func drawLine(x0, y0, x1, y1 float32, c color.Color, img *image.RGBA) {
	dx := x1 - x0
	dy := y1 - y0

	steps := max(tools.Abs(dx), tools.Abs(dy))
	if steps < 1 {
		img.Set(int(x1), int(y1), c)
		return
	}

	xinc := dx / steps
	yinc := dy / steps

	x, y := x0, y0
	for i := 0; i <= int(steps); i++ {
		img.Set(int(x), int(y), c)
		x += xinc
		y += yinc
	}
}

// powerColor maps power onto a cold-to-hot hue within bounds.
func powerColor(power float64, bounds PowerBounds) color.Color {
	normalized := (power - bounds.Min) / (bounds.Max - bounds.Min)
	normalized = math.Max(0, math.Min(1, normalized))

	return HSV{
		H: hueCold - normalized*(hueCold-hueHot),
		S: 1,
		V: 0.85,
	}.RGB()
}

// HSV represents a color in HSV color space
type HSV struct {
	H float64 // Hue [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value [0-1]
}

// RGB converts HSV color space to RGB
func (hsv HSV) RGB() color.Color {
	if hsv.S <= 0.0 {
		v := uint8(hsv.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 0xff}
	}

	h := math.Mod(hsv.H, 360) / 60
	i := math.Floor(h)
	f := h - i

	v := hsv.V
	p := v * (1 - hsv.S)
	q := v * (1 - hsv.S*f)
	t := v * (1 - hsv.S*(1-f))

	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}

	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 0xff}
}

type annotator struct {
	context  *freetype.Context
	config   RenderConfig
	fontFace font.Face
}

func newAnnotator(config RenderConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, p *plot) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawFrequencyScale(img, p); err != nil {
		return fmt.Errorf("drawing frequency scale: %w", err)
	}
	if err := a.drawPowerScale(img, p); err != nil {
		return fmt.Errorf("drawing power scale: %w", err)
	}
	if err := a.drawInfoBar(img, p); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, p *plot) error {
	spec := p.spec
	span := spec.FrequencyMax - spec.FrequencyMin
	if span <= 0 {
		return nil
	}

	steps := []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000}
	step := calculateNiceStep(span, p.area.Dx(), steps)
	textY := p.area.Max.Y + tickMarkLength + a.fontHeight()

	for pos := math.Ceil(spec.FrequencyMin/step) * step; pos <= spec.FrequencyMax; pos += step {
		x := int(p.x(pos))

		for y := p.area.Max.Y; y < p.area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%.0f", pos)
		if spec.HasFrequency {
			label = formatFrequency(pos)
		}
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawPowerScale(img *image.RGBA, p *plot) error {
	metrics := a.fontFace.Metrics()
	fontHeight := a.fontHeight()

	for _, db := range p.powerTicks() {
		y := int(p.y(db))

		for x := p.area.Min.X - tickMarkLength; x < p.area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%.0f dB", db)
		width := font.MeasureString(a.fontFace, label).Round()
		textY := y + fontHeight/2 - metrics.Descent.Round()
		pt := freetype.Pt(p.area.Min.X-tickMarkLength-3-width, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing power label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, p *plot) error {
	spec := p.spec

	var sb strings.Builder
	fmt.Fprintf(&sb, "Bins: %d; Reads: %d; ", len(spec.Bins), spec.Reads)
	if spec.HasFrequency {
		sb.WriteString(formatFrequencyRange(spec.FrequencyMin, spec.FrequencyMax))
		fmt.Fprintf(&sb, "; Peak: %s @ %.1f dB", formatFrequency(spec.Peak.Frequency), spec.Peak.PowerDB)
	} else {
		fmt.Fprintf(&sb, "Peak: bin %d @ %.1f dB", spec.Peak.Index, spec.Peak.PowerDB)
	}
	if a.config.Endpoint != "" {
		sb.WriteString("; Source: ")
		sb.WriteString(a.config.Endpoint)
	}

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - a.fontHeight()/2 - metrics.Descent.Round()

	pt := freetype.Pt(p.area.Min.X, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

// Helper functions

// calculateNiceStep picks the smallest step from steps giving at most one
// label per pixelsPerLabel and at least two labels.
func calculateNiceStep(range_ float64, length int, steps []float64) float64 {
	desiredSteps := max(float64(length)/pixelsPerLabel, 1)
	targetStep := range_ / desiredSteps

	for _, step := range steps {
		if step >= targetStep {
			if range_/step >= 2 {
				return step
			}
			break
		}
	}

	// If we can't find a suitable step or would get too few points,
	// return half the range to show at least the center
	return range_ / 2
}

func formatFrequency(freq float64) string {
	return humanize.SIWithDigits(freq, 3, "Hz")
}

func formatFrequencyRange(min, max float64) string {
	return fmt.Sprintf("Freq: %s - %s", formatFrequency(min), formatFrequency(max))
}

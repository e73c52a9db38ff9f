// Package dsp holds the sample processing stages between the receiver and
// the published spectra.
package dsp

import (
	"fmt"
)

// delayLine returns each value length calls after it was pushed.
type delayLine struct {
	buf []complex64
	pos int
}

func newDelayLine(length int) delayLine {
	return delayLine{buf: make([]complex64, length)}
}

func (d *delayLine) shift(x complex64) complex64 {
	if len(d.buf) == 0 {
		return x
	}
	out := d.buf[d.pos]
	d.buf[d.pos] = x
	d.pos = (d.pos + 1) % len(d.buf)
	return out
}

func (d *delayLine) reset() {
	clear(d.buf)
	d.pos = 0
}

// movingAverage is a recursive length-D boxcar filter.
type movingAverage struct {
	length  int
	line    delayLine
	delayed complex64 // x[n-(D-1)]
	sum     complex64
}

func newMovingAverage(length int) movingAverage {
	return movingAverage{length: length, line: newDelayLine(length - 1)}
}

func (m *movingAverage) filter(x complex64) complex64 {
	prev := m.delayed // x[n-D]
	m.delayed = m.line.shift(x)
	m.sum = x - prev + m.sum
	return m.sum / complex(float32(m.length), 0)
}

func (m *movingAverage) reset() {
	m.line.reset()
	m.delayed = 0
	m.sum = 0
}

// DCBlocker removes the DC component of a complex stream by subtracting a
// cascade of four moving averages from the delayed input. The delay is
// 2D-2 samples for a blocker of length D.
type DCBlocker struct {
	length int
	ma     [4]movingAverage
	delay  delayLine
}

// NewDCBlocker creates a blocker with moving averages of length samples.
func NewDCBlocker(length int) (*DCBlocker, error) {
	if length < 2 {
		return nil, fmt.Errorf("dc blocker length must be at least 2: %d", length)
	}

	b := DCBlocker{
		length: length,
		delay:  newDelayLine(length - 1),
	}
	for i := range b.ma {
		b.ma[i] = newMovingAverage(length)
	}

	return &b, nil
}

// Length returns the moving average length.
func (b *DCBlocker) Length() int {
	return b.length
}

// Process filters in into out, which must be at least as long as in. It
// returns the number of samples written. in and out may be the same slice.
func (b *DCBlocker) Process(out, in []complex64) int {
	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		y := in[i]
		for j := range b.ma {
			y = b.ma[j].filter(y)
		}
		d := b.delay.shift(b.ma[0].delayed)
		out[i] = d - y
	}
	return n
}

// Reset clears the filter history.
func (b *DCBlocker) Reset() {
	for i := range b.ma {
		b.ma[i].reset()
	}
	b.delay.reset()
}

package app

import (
	"math"
	"slices"
)

const (
	defaultMinPower = -120.0 // dB
	defaultMaxPower = -20.0  // dB

	// Power of an empty bin, keeps log10 finite.
	floorPower = 1e-20

	// For 20 bins:
	// - 5% percentile  = 1 bin
	// - 95% percentile = 19th bin
	minimumSampleCount = 20

	minimumRange = 30.0 // dB
)

// Bin is one averaged FFT bin.
type Bin struct {
	Index     int
	Frequency float64 // Hz, meaningful only when PowerSpectrum.HasFrequency
	Power     float64 // linear |X|²
	PowerDB   float64
}

// PowerSpectrum is the averaged spectrum together with the frequency axis
// when the receiver tuning is known.
type PowerSpectrum struct {
	Bins                       []Bin
	HasFrequency               bool
	FrequencyMin, FrequencyMax float64
	Peak                       Bin
	Reads                      int
}

// PowerBounds represents the power range shown on the plot.
type PowerBounds struct {
	Min  float64 // dB
	Max  float64 // dB
	Mean float64 // dB
}

func defaultPowerBounds() PowerBounds {
	return PowerBounds{
		Min:  defaultMinPower,
		Max:  defaultMaxPower,
		Mean: (defaultMinPower + defaultMaxPower) / 2,
	}
}

// NewPowerSpectrum annotates mean power values with dB and, when center and
// rate are given, bin center frequencies. Shifted frames carry the negative
// frequencies in their first half.
func NewPowerSpectrum(mean []float64, center, rate *float64, shifted bool) *PowerSpectrum {
	spec := &PowerSpectrum{
		Bins:         make([]Bin, len(mean)),
		HasFrequency: center != nil && rate != nil,
		FrequencyMin: math.MaxFloat64,
		FrequencyMax: -math.MaxFloat64,
	}

	for i, p := range mean {
		bin := Bin{Index: i, Power: p, PowerDB: toDB(p)}
		if spec.HasFrequency {
			bin.Frequency = binFrequency(i, len(mean), *center, *rate, shifted)
			spec.FrequencyMin = min(spec.FrequencyMin, bin.Frequency)
			spec.FrequencyMax = max(spec.FrequencyMax, bin.Frequency)
		}
		if i == 0 || bin.Power > spec.Peak.Power {
			spec.Peak = bin
		}
		spec.Bins[i] = bin
	}

	if !spec.HasFrequency {
		spec.FrequencyMin, spec.FrequencyMax = 0, float64(max(len(mean)-1, 0))
	}
	return spec
}

// Position returns the x-axis value of a bin: its frequency, or its index.
func (s *PowerSpectrum) Position(b Bin) float64 {
	if s.HasFrequency {
		return b.Frequency
	}
	return float64(b.Index)
}

// Ordered returns bins sorted by x-axis position. Unshifted frames put the
// negative frequencies after the positive ones.
func (s *PowerSpectrum) Ordered() []Bin {
	bins := slices.Clone(s.Bins)
	slices.SortStableFunc(bins, func(a, b Bin) int {
		pa, pb := s.Position(a), s.Position(b)
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		}
		return 0
	})
	return bins
}

// Bounds derives the plotted power range from the 5th and 95th percentile,
// with manual overrides taking precedence.
func (s *PowerSpectrum) Bounds(minPower, maxPower *float64) PowerBounds {
	bounds := percentileBounds(s.Bins)
	if minPower != nil {
		bounds.Min = *minPower
	}
	if maxPower != nil {
		bounds.Max = *maxPower
	}
	if bounds.Max <= bounds.Min {
		bounds.Max = bounds.Min + minimumRange
	}
	return bounds
}

func percentileBounds(bins []Bin) PowerBounds {
	if len(bins) == 0 {
		return defaultPowerBounds()
	}

	powers := make([]float64, len(bins))
	var sum float64
	for i, b := range bins {
		powers[i] = b.PowerDB
		sum += b.PowerDB
	}
	slices.Sort(powers)

	lo, hi := powers[0], powers[len(powers)-1]
	if len(powers) >= minimumSampleCount {
		lo = powers[len(powers)*5/100]
		hi = powers[len(powers)-1-len(powers)*5/100]
	}

	// Ensure minimum range of 30dB
	if hi-lo < minimumRange {
		center := (hi + lo) / 2
		lo = center - minimumRange/2
		hi = center + minimumRange/2
	}

	margin := (hi - lo) / 10
	return PowerBounds{
		Min:  math.Floor(lo - margin),
		Max:  math.Ceil(hi + margin),
		Mean: sum / float64(len(powers)),
	}
}

func binFrequency(i, n int, center, rate float64, shifted bool) float64 {
	k := i
	switch {
	case shifted:
		k = i - n/2
	case i >= (n+1)/2:
		k = i - n
	}
	return center + float64(k)*rate/float64(n)
}

func toDB(p float64) float64 {
	return 10 * math.Log10(max(p, floorPower))
}

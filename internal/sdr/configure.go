package sdr

import (
	"fmt"

	"github.com/roman-kulish/spectrum-relay/internal/sdr/driver"
)

// Settings is the initial tuning of a receiver.
type Settings struct {
	Frequency  float64 // center frequency in Hz
	SampleRate float64 // sample rate in Hz
	Gain       float64 // manual gain in dB
}

// Validate rejects negative or zero values the radio cannot start with.
func (s Settings) Validate() error {
	if s.Frequency <= 0 {
		return driver.NewConfigError(fmt.Sprintf("sdr.Settings: frequency must be positive: %f", s.Frequency))
	}
	if s.SampleRate <= 0 {
		return driver.NewConfigError(fmt.Sprintf("sdr.Settings: sample rate must be positive: %f", s.SampleRate))
	}
	if s.Gain < 0 {
		return driver.NewConfigError(fmt.Sprintf("sdr.Settings: gain must not be negative: %f", s.Gain))
	}
	return nil
}

// Configure applies the initial settings to the driver in the order the
// radio expects: sample rate, center frequency, DC offset correction, gain
// mode and gain, then bandwidth. The fallback profile resets IQ balance
// after DC offset correction and leaves bandwidth untouched. The first
// failure is returned as a *driver.DriverError.
func Configure(d Driver, p Profile, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	type step struct {
		op string
		fn func() error
	}

	ops := []step{
		{"set sample rate", func() error { return d.SetSampleRate(s.SampleRate) }},
		{"set center frequency", func() error { return d.SetCenterFreq(s.Frequency) }},
		{"set DC offset mode", func() error { return d.SetDCOffsetMode(DCOffsetAutomatic) }},
	}

	if p.ResetIQBalance {
		ops = append(ops, step{"set IQ balance mode", func() error { return d.SetIQBalanceMode(0) }})
	}

	ops = append(ops,
		step{"set gain mode", func() error { return d.SetGainMode(false) }},
		step{"set gain", func() error { return d.SetGain(s.Gain) }},
	)

	if !p.ResetIQBalance {
		ops = append(ops, step{"set bandwidth", func() error { return d.SetBandwidth(p.Bandwidth(s.SampleRate)) }})
	}

	for _, op := range ops {
		if err := op.fn(); err != nil {
			return driver.NewDriverError(d.Name(), op.op, err)
		}
	}

	return nil
}

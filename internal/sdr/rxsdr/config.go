package rxsdr

import (
	"fmt"
	"strconv"
	"strings"
)

// Config is the `rx_sdr` tool configuration.
// See https://github.com/rxseger/rx_tools for the option reference.
type Config struct {
	DeviceArgs  string  // -d SoapySDR device arguments, e.g. "driver=rtlsdr"
	Frequency   float64 // -f center frequency (Hz)
	SampleRate  float64 // -s sample rate (Hz)
	Gain        float64 // -g tuner gain (dB), ignored when AutoGain is set
	AutoGain    bool    // omit -g and let the driver pick the gain
	DCOffset    bool    // -t dc_offset_mode=1 in the stream settings
	IQBalance   bool    // -t iq_balance_mode=1 in the stream settings
	PPMError    int     // -p ppm_error (default: 0)
	ChannelArgs string  // -c channel settings, passed unchanged
}

func (c *Config) Validate() error {
	if c.Frequency <= 0 {
		return fmt.Errorf("rxsdr.Config: frequency must be positive: %.0f", c.Frequency)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("rxsdr.Config: sample rate must be positive: %.0f", c.SampleRate)
	}
	if !c.AutoGain && c.Gain < 0 {
		return fmt.Errorf("rxsdr.Config: gain must not be negative: %.1f", c.Gain)
	}

	return nil
}

// Args returns the command line arguments for `rx_sdr`. Samples are always
// requested as CF32 on stdout.
func (c *Config) Args() ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var args []string

	if c.DeviceArgs != "" {
		args = append(args, "-d", c.DeviceArgs)
	}

	args = append(args,
		"-f", strconv.FormatFloat(c.Frequency, 'f', -1, 64),
		"-s", strconv.FormatFloat(c.SampleRate, 'f', -1, 64),
	)

	if !c.AutoGain {
		args = append(args, "-g", strconv.FormatFloat(c.Gain, 'f', -1, 64))
	}

	if c.PPMError != 0 {
		args = append(args, "-p", strconv.Itoa(c.PPMError))
	}

	if c.ChannelArgs != "" {
		args = append(args, "-c", c.ChannelArgs)
	}

	var settings []string
	if c.DCOffset {
		settings = append(settings, "dc_offset_mode=1")
	}
	if c.IQBalance {
		settings = append(settings, "iq_balance_mode=1")
	}
	if len(settings) > 0 {
		args = append(args, "-t", strings.Join(settings, ","))
	}

	args = append(args, "-F", "CF32", "-") // Always dump CF32 to stdout

	return args, nil
}

func (c *Config) String() string {
	args, err := c.Args()
	if err != nil {
		return fmt.Sprintf("rxsdr.Config: failed to build args: %s", err)
	}
	return fmt.Sprintf("%s %s", Runtime, strings.Join(args, " "))
}

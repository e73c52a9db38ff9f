package sdr

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DCOffsetOff disables DC offset correction in the driver.
	DCOffsetOff DCOffsetMode = iota
	// DCOffsetManual applies a fixed correction.
	DCOffsetManual
	// DCOffsetAutomatic lets the driver track and remove the DC offset.
	DCOffsetAutomatic
)

// DCOffsetMode is the enumerated DC offset correction mode of a driver.
type DCOffsetMode int

// Driver is the radio behind the pipeline. Implementations forward every
// setting to the hardware, or to the process or server controlling it, and
// report the radio's own failures unchanged.
type Driver interface {
	// Name returns a short human-readable driver name.
	Name() string

	SetSampleRate(hz float64) error
	SetCenterFreq(hz float64) error
	SetDCOffsetMode(mode DCOffsetMode) error
	SetIQBalanceMode(mode int) error
	SetGainMode(automatic bool) error
	SetGain(db float64) error
	SetBandwidth(hz float64) error

	// ReadSamples fills buf with complex baseband samples and returns the
	// number of samples written. It blocks until data is available or ctx
	// is done.
	ReadSamples(ctx context.Context, buf []complex64) (int, error)

	Close() error
}

const (
	ReceiverRTL ReceiverType = iota
	ReceiverAirspy
	ReceiverOsmo
	ReceiverUHD
	ReceiverFuncube
	ReceiverFallback
)

var receiverTypeNames = map[ReceiverType]string{
	ReceiverRTL:      "rtl",
	ReceiverAirspy:   "airspy",
	ReceiverOsmo:     "osmo",
	ReceiverUHD:      "uhd",
	ReceiverFuncube:  "funcube",
	ReceiverFallback: "fallback",
}

// ReceiverType selects how the radio is addressed.
type ReceiverType int

func (t ReceiverType) String() string {
	if name, ok := receiverTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ReceiverType(%d)", int(t))
}

// ParseReceiverType maps a receiver tag to its type. Unknown tags resolve to
// ReceiverFallback, which still drives the first receiver found.
func ParseReceiverType(tag string) ReceiverType {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for t, name := range receiverTypeNames {
		if name == tag && t != ReceiverFallback {
			return t
		}
	}
	return ReceiverFallback
}

// Profile is the capability descriptor of a receiver type, resolved once
// when the pipeline is built.
type Profile struct {
	Type        ReceiverType
	Args        string // driver argument string, e.g. "numchan=1 rtl=0"
	Description string

	// ExtendedBandwidth requests an analog bandwidth of 1.5x the sample rate
	// instead of leaving it to the driver.
	ExtendedBandwidth bool

	// ResetIQBalance disables IQ balance correction on setup.
	ResetIQBalance bool
}

// NewProfile resolves a receiver type and an opaque extra argument string
// into a Profile.
func NewProfile(t ReceiverType, extraArgs string) Profile {
	const numChan = "numchan=1 "

	p := Profile{Type: t}
	switch t {
	case ReceiverRTL:
		p.Args = numChan + "rtl=0" + extraArgs
		p.Description = "RTL-SDR"

	case ReceiverAirspy:
		p.Args = numChan + "airspy" + extraArgs
		p.Description = "Airspy"

	case ReceiverOsmo:
		// The leading separator of the extra arguments is dropped, the first
		// compatible receiver found is used.
		p.Args = numChan + dropSeparator(extraArgs)
		p.Description = "first osmocom compatible receiver found"

	case ReceiverUHD:
		p.Args = numChan + "uhd" + extraArgs
		p.Description = "UHD"
		p.ExtendedBandwidth = true

	case ReceiverFuncube:
		p.Args = numChan + "fcd=0" + extraArgs
		p.Description = "Funcube Pro/Pro+"

	default:
		p.Type = ReceiverFallback
		p.Args = strings.TrimSpace(numChan + dropSeparator(extraArgs))
		p.Description = "unrecognized receiver, default osmocom driver"
		p.ResetIQBalance = true
	}

	return p
}

// Bandwidth returns the analog bandwidth to request for a sample rate.
// Zero leaves the choice to the driver.
func (p Profile) Bandwidth(sampleRate float64) float64 {
	if p.ExtendedBandwidth {
		return 1.5 * sampleRate
	}
	return 0
}

func dropSeparator(extraArgs string) string {
	if extraArgs == "" {
		return ""
	}
	return extraArgs[1:]
}

package sdr

import (
	"errors"
	"slices"
	"testing"

	"github.com/roman-kulish/spectrum-relay/internal/sdr/driver"
)

func TestParseReceiverType(t *testing.T) {
	testCases := []struct {
		tag  string
		want ReceiverType
	}{
		{"rtl", ReceiverRTL},
		{"RTL", ReceiverRTL},
		{"airspy", ReceiverAirspy},
		{"osmo", ReceiverOsmo},
		{"uhd", ReceiverUHD},
		{" funcube ", ReceiverFuncube},
		{"hackrf", ReceiverFallback},
		{"", ReceiverFallback},
		{"fallback", ReceiverFallback},
	}

	for _, tc := range testCases {
		if got := ParseReceiverType(tc.tag); got != tc.want {
			t.Errorf("ParseReceiverType(%q): expected %s, got %s", tc.tag, tc.want, got)
		}
	}
}

func TestNewProfile(t *testing.T) {
	testCases := []struct {
		typ      ReceiverType
		extra    string
		args     string
		extended bool
		iq       bool
	}{
		{ReceiverRTL, ",bias=1", "numchan=1 rtl=0,bias=1", false, false},
		{ReceiverAirspy, "", "numchan=1 airspy", false, false},
		{ReceiverOsmo, ",hackrf=0", "numchan=1 hackrf=0", false, false},
		{ReceiverUHD, ",type=b200", "numchan=1 uhd,type=b200", true, false},
		{ReceiverFuncube, "", "numchan=1 fcd=0", false, false},
		{ReceiverFallback, "", "numchan=1", false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			p := NewProfile(tc.typ, tc.extra)
			if p.Args != tc.args {
				t.Errorf("expected args %q, got %q", tc.args, p.Args)
			}
			if p.ExtendedBandwidth != tc.extended {
				t.Errorf("expected extended bandwidth %v, got %v", tc.extended, p.ExtendedBandwidth)
			}
			if p.ResetIQBalance != tc.iq {
				t.Errorf("expected IQ balance reset %v, got %v", tc.iq, p.ResetIQBalance)
			}
		})
	}

	if bw := NewProfile(ReceiverUHD, "").Bandwidth(10e6); bw != 15e6 {
		t.Errorf("expected UHD bandwidth 15MHz, got %f", bw)
	}
	if bw := NewProfile(ReceiverRTL, "").Bandwidth(2.4e6); bw != 0 {
		t.Errorf("expected automatic bandwidth, got %f", bw)
	}
}

func TestConfigure(t *testing.T) {
	s := Settings{Frequency: 100e6, SampleRate: 2e6, Gain: 20}

	t.Run("uhd", func(t *testing.T) {
		d := newFakeDriver()
		if err := Configure(d, NewProfile(ReceiverUHD, ""), s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"rate=2e+06", "freq=1e+08", "dc=2", "agc=false", "gain=20", "bw=3e+06"}
		if got := d.Calls(); !slices.Equal(got, want) {
			t.Errorf("expected calls %v, got %v", want, got)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		d := newFakeDriver()
		if err := Configure(d, NewProfile(ReceiverFallback, ""), s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// No bandwidth request on the fallback driver.
		want := []string{"rate=2e+06", "freq=1e+08", "dc=2", "iq=0", "agc=false", "gain=20"}
		if got := d.Calls(); !slices.Equal(got, want) {
			t.Errorf("expected calls %v, got %v", want, got)
		}
	})

	t.Run("driver failure", func(t *testing.T) {
		d := newFakeDriver()
		rejected := errors.New("gain out of range")
		d.fail["gain"] = rejected

		err := Configure(d, NewProfile(ReceiverRTL, ""), s)

		var drvErr *driver.DriverError
		if !errors.As(err, &drvErr) {
			t.Fatalf("expected DriverError, got %v", err)
		}
		if !errors.Is(err, rejected) {
			t.Errorf("driver error should be kept unchanged, got %v", err)
		}
	})

	t.Run("invalid settings", func(t *testing.T) {
		d := newFakeDriver()
		err := Configure(d, NewProfile(ReceiverRTL, ""), Settings{Frequency: 100e6})

		var cfgErr *driver.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		if len(d.Calls()) != 0 {
			t.Errorf("driver should not be touched, got %v", d.Calls())
		}
	})
}

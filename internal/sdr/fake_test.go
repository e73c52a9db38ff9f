package sdr

import (
	"context"
	"fmt"
	"sync"
)

type fakeDriver struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error

	freq float64
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{fail: make(map[string]error)}
}

func (d *fakeDriver) record(op string, v any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, fmt.Sprintf("%s=%v", op, v))
	return d.fail[op]
}

func (d *fakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDriver) Name() string { return "fake" }

func (d *fakeDriver) SetSampleRate(hz float64) error { return d.record("rate", hz) }
func (d *fakeDriver) SetCenterFreq(hz float64) error {
	if err := d.record("freq", hz); err != nil {
		return err
	}
	d.mu.Lock()
	d.freq = hz
	d.mu.Unlock()
	return nil
}
func (d *fakeDriver) SetDCOffsetMode(mode DCOffsetMode) error { return d.record("dc", int(mode)) }
func (d *fakeDriver) SetIQBalanceMode(mode int) error        { return d.record("iq", mode) }
func (d *fakeDriver) SetGainMode(automatic bool) error       { return d.record("agc", automatic) }
func (d *fakeDriver) SetGain(db float64) error               { return d.record("gain", db) }
func (d *fakeDriver) SetBandwidth(hz float64) error          { return d.record("bw", hz) }

// ReadSamples fills buf with the current frequency as the real part.
func (d *fakeDriver) ReadSamples(ctx context.Context, buf []complex64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	f := d.freq
	d.mu.Unlock()
	for i := range buf {
		buf[i] = complex(float32(f), 0)
	}
	return len(buf), nil
}

func (d *fakeDriver) Close() error { return nil }

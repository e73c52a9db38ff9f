package rxsdr

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
	"github.com/roman-kulish/spectrum-relay/internal/sdr/driver"
)

// zeroSource streams size bytes of zeros and counts the processes started.
func zeroSource(t *testing.T, size int, starts *atomic.Int32, lastArgs *atomic.Value) CommandFunc {
	t.Helper()

	head, err := exec.LookPath("head")
	if err != nil {
		t.Skip("head is not available")
	}

	return func(ctx context.Context, args []string) *exec.Cmd {
		starts.Add(1)
		lastArgs.Store(args)
		return exec.CommandContext(ctx, head, "-c", strconv.Itoa(size), "/dev/zero")
	}
}

func newTestDevice(t *testing.T, size int) (*Device, *atomic.Int32, *atomic.Value) {
	t.Helper()

	var starts atomic.Int32
	var lastArgs atomic.Value

	profile := sdr.NewProfile(sdr.ReceiverFallback, "")

	d, err := New(profile.Args, WithCommand(zeroSource(t, size, &starts, &lastArgs)))
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err = sdr.Configure(d, profile, sdr.Settings{Frequency: 100e6, SampleRate: 1e6, Gain: 10}); err != nil {
		t.Fatalf("Failed to configure device: %v", err)
	}

	return d, &starts, &lastArgs
}

func TestDevice_Name(t *testing.T) {
	d, err := New("driver=rtlsdr", WithCommand(func(ctx context.Context, args []string) *exec.Cmd {
		return exec.CommandContext(ctx, "true")
	}))
	if err != nil {
		t.Fatalf("Failed to create device: %v", err)
	}
	defer d.Close()

	var drv sdr.Driver = d
	if drv.Name() != DeviceName {
		t.Errorf("expected name %q, got %q", DeviceName, drv.Name())
	}
}

func TestDevice_ReadSamples(t *testing.T) {
	d, starts, lastArgs := newTestDevice(t, 8*1024)

	buf := make([]complex64, 128)
	for i := 0; i < 2; i++ {
		n, err := d.ReadSamples(context.Background(), buf)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if n != len(buf) {
			t.Fatalf("read %d: expected %d samples, got %d", i, len(buf), n)
		}
	}

	if got := starts.Load(); got != 1 {
		t.Errorf("expected a single process, got %d", got)
	}

	args := lastArgs.Load().([]string)
	if args[0] != "-d" || args[1] != "numchan=1" {
		t.Errorf("unexpected device args: %v", args)
	}

	for _, s := range buf {
		if s != 0 {
			t.Fatalf("expected zero samples, got %v", s)
		}
	}
}

func TestDevice_RestartsOnRetune(t *testing.T) {
	d, starts, lastArgs := newTestDevice(t, 8*1024)

	buf := make([]complex64, 64)
	if _, err := d.ReadSamples(context.Background(), buf); err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}

	if err := d.SetCenterFreq(101e6); err != nil {
		t.Fatalf("SetCenterFreq: %v", err)
	}
	// Unchanged settings do not restart the process.
	if err := d.SetGain(10); err != nil {
		t.Fatalf("SetGain: %v", err)
	}

	if _, err := d.ReadSamples(context.Background(), buf); err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}

	if got := starts.Load(); got != 2 {
		t.Errorf("expected 2 processes, got %d", got)
	}

	args := lastArgs.Load().([]string)
	found := false
	for i := range args {
		if args[i] == "-f" && args[i+1] == "101000000" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected retuned frequency in %v", args)
	}
}

func TestDevice_ShortStream(t *testing.T) {
	d, _, _ := newTestDevice(t, 8*10)

	n, err := d.ReadSamples(context.Background(), make([]complex64, 20))
	if err == nil {
		t.Fatal("expected error on a short stream")
	}
	if n != 10 {
		t.Errorf("expected 10 samples before the stream ended, got %d", n)
	}
}

func TestDevice_UnsupportedAndClosed(t *testing.T) {
	d, _, _ := newTestDevice(t, 8)

	if err := d.SetBandwidth(1e6); !errors.Is(err, driver.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	_ = d.Close()

	if _, err := d.ReadSamples(context.Background(), make([]complex64, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := d.SetGain(1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

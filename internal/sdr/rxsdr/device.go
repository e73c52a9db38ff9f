// Package rxsdr drives a SoapySDR radio through the `rx_sdr` tool. Every
// settings change is applied by restarting the process before the next read,
// so samples from the old and new settings never share a read.
package rxsdr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/racerxdl/fastconvert"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
	"github.com/roman-kulish/spectrum-relay/internal/sdr/driver"
)

const (
	Runtime    = "rx_sdr"
	DeviceName = "rx_sdr"

	sampleSize = 8 // CF32
)

// ErrClosed is returned by ReadSamples after Close.
var ErrClosed = errors.New("rxsdr: device closed")

// CommandFunc builds the process to run for the given arguments.
type CommandFunc func(ctx context.Context, args []string) *exec.Cmd

// WithLogger sets the logger for the device
func WithLogger(logger *slog.Logger) func(d *Device) {
	return func(d *Device) {
		d.logger = logger.With(slog.String("device", DeviceName))
	}
}

// WithCommand replaces the `rx_sdr` lookup with a custom command factory.
func WithCommand(fn CommandFunc) func(d *Device) {
	return func(d *Device) {
		d.command = fn
	}
}

// Device is an sdr.Driver backed by an `rx_sdr` child process.
type Device struct {
	mu     sync.Mutex
	config Config
	dirty  bool
	closed bool

	command CommandFunc
	proc    *process
	raw     []byte

	logger *slog.Logger
}

var _ sdr.Driver = (*Device)(nil)

type process struct {
	cmd    *exec.Cmd
	stdout *bufio.Reader
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Device for the given SoapySDR device arguments. The process
// is started lazily by the first ReadSamples call.
func New(deviceArgs string, options ...func(d *Device)) (*Device, error) {
	d := Device{
		config: Config{DeviceArgs: strings.TrimSpace(deviceArgs), AutoGain: true},
		dirty:  true,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&d)
	}

	if d.command == nil {
		binPath, err := driver.FindRuntime(Runtime)
		if err != nil {
			return nil, fmt.Errorf("error finding runtime: %w", err)
		}
		d.command = func(ctx context.Context, args []string) *exec.Cmd {
			return exec.CommandContext(ctx, binPath, args...)
		}
	}

	return &d, nil
}

// Config returns a copy of the settings the next process will run with.
func (d *Device) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.config
}

func (d *Device) Name() string {
	return DeviceName
}

func (d *Device) SetSampleRate(hz float64) error {
	return d.update(func(c *Config) { c.SampleRate = hz })
}

func (d *Device) SetCenterFreq(hz float64) error {
	return d.update(func(c *Config) { c.Frequency = hz })
}

func (d *Device) SetDCOffsetMode(mode sdr.DCOffsetMode) error {
	if mode == sdr.DCOffsetManual {
		return fmt.Errorf("manual DC offset: %w", driver.ErrUnsupported)
	}
	return d.update(func(c *Config) { c.DCOffset = mode == sdr.DCOffsetAutomatic })
}

func (d *Device) SetIQBalanceMode(mode int) error {
	if mode < 0 || mode > 1 {
		return fmt.Errorf("IQ balance mode %d: %w", mode, driver.ErrUnsupported)
	}
	return d.update(func(c *Config) { c.IQBalance = mode == 1 })
}

func (d *Device) SetGainMode(automatic bool) error {
	return d.update(func(c *Config) { c.AutoGain = automatic })
}

func (d *Device) SetGain(db float64) error {
	return d.update(func(c *Config) { c.Gain = db })
}

// SetBandwidth accepts only 0: rx_sdr leaves the analog bandwidth to the
// SoapySDR driver.
func (d *Device) SetBandwidth(hz float64) error {
	if hz != 0 {
		return fmt.Errorf("bandwidth %.0f Hz: %w", hz, driver.ErrUnsupported)
	}
	return nil
}

// ReadSamples reads len(buf) samples, (re)starting `rx_sdr` when the settings
// changed since the previous read.
func (d *Device) ReadSamples(ctx context.Context, buf []complex64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}

	if d.dirty || d.proc == nil {
		d.stop()
		if err := d.start(); err != nil {
			return 0, err
		}
		d.dirty = false
	}

	if cap(d.raw) < sampleSize*len(buf) {
		d.raw = make([]byte, sampleSize*len(buf))
	}
	raw := d.raw[:sampleSize*len(buf)]

	proc := d.proc
	stop := context.AfterFunc(ctx, proc.cancel)
	defer stop()

	n, err := io.ReadFull(proc.stdout, raw)
	pairs := n / sampleSize
	if pairs > 0 {
		copy(buf, fastconvert.ByteArrayToComplex64Array(raw[:pairs*sampleSize]))
	}

	if err != nil {
		d.stop()
		if ctx.Err() != nil {
			return pairs, ctx.Err()
		}
		return pairs, fmt.Errorf("%s: reading samples: %w", DeviceName, err)
	}

	return pairs, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.stop()

	return nil
}

func (d *Device) update(fn func(c *Config)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	next := d.config
	fn(&next)
	if next != d.config {
		d.config = next
		d.dirty = true
	}

	return nil
}

func (d *Device) start() error {
	args, err := d.config.Args()
	if err != nil {
		return driver.NewConfigError(err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := d.command(ctx, args)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("error starting command: %w", err)
	}

	p := process{
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, 1<<16),
		cancel: cancel,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		d.handleStderr(stderr)
	}()

	d.proc = &p
	d.logger.Info("process started", slog.String("args", strings.Join(args, " ")))

	return nil
}

// stop kills the running process, if any, and waits for it to exit.
func (d *Device) stop() {
	if d.proc == nil {
		return
	}

	p := d.proc
	d.proc = nil

	p.cancel()
	p.wg.Wait()

	if err := p.cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Debug("process exited", slog.String("status", err.Error()))
	}
}

// handleStderr reads from stderr and logs the tool's messages.
func (d *Device) handleStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		d.logger.Warn(fmt.Sprintf("%s >> %s", Runtime, line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		d.logger.Error("error reading stderr", slog.String("error", err.Error()))
	}
}

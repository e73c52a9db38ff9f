package sdr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/spectrum-relay/internal/sdr/driver"
)

const (
	ParamFrequency  = "frequency"
	ParamSampleRate = "sampleRate"
	ParamGain       = "gain"
)

// ErrNegativeValue is returned by setters for values below zero. Range
// checks beyond that are left to the driver.
var ErrNegativeValue = errors.New("value must not be negative")

// State is the receiver control record owned by a Controller.
type State struct {
	Receiver   string  `json:"receiver"`
	Frequency  float64 `json:"frequency"`
	SampleRate float64 `json:"sampleRate"`
	Gain       float64 `json:"gain"`
	Bandwidth  float64 `json:"bandwidth"`
	Generation uint64  `json:"generation"`
}

// Change describes one accepted control change.
type Change struct {
	Parameter  string
	Value      float64
	Generation uint64
	Time       time.Time
}

// Observer is notified after a change has been applied by the driver.
// Observers run synchronously and must not call back into the Controller.
type Observer func(Change)

// WithControllerLogger sets the logger of the Controller.
func WithControllerLogger(logger *slog.Logger) func(*Controller) {
	return func(c *Controller) {
		c.logger = logger.With(slog.String("receiver", c.profile.Type.String()))
	}
}

// WithObserver registers an Observer.
func WithObserver(o Observer) func(*Controller) {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// Controller is the live control surface of a receiver. Every setter
// forwards to the driver first and updates the cached value only when the
// driver accepted it. Sample reads and setting changes are serialized, so a
// block of samples is always captured under a single generation of
// settings.
type Controller struct {
	mu      sync.Mutex
	driver  Driver
	profile Profile
	state   State

	observers []Observer
	logger    *slog.Logger
}

// NewController configures the driver with the initial settings and returns
// a Controller owning it.
func NewController(d Driver, p Profile, s Settings, options ...func(*Controller)) (*Controller, error) {
	c := Controller{
		driver:  d,
		profile: p,
		state: State{
			Receiver:   p.Type.String(),
			Frequency:  s.Frequency,
			SampleRate: s.SampleRate,
			Gain:       s.Gain,
			Bandwidth:  p.Bandwidth(s.SampleRate),
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	if err := Configure(d, p, s); err != nil {
		return nil, err
	}

	c.logger.Info("receiver configured",
		slog.String("driver", d.Name()),
		slog.String("args", p.Args),
		slog.String("frequency", humanize.SIWithDigits(s.Frequency, 3, "Hz")),
		slog.String("sampleRate", humanize.SIWithDigits(s.SampleRate, 3, "S/s")),
		slog.Float64("gain", s.Gain))

	return &c, nil
}

// Profile returns the receiver capability descriptor.
func (c *Controller) Profile() Profile {
	return c.profile
}

// State returns a copy of the current control record.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Frequency() float64  { return c.State().Frequency }
func (c *Controller) SampleRate() float64 { return c.State().SampleRate }
func (c *Controller) Gain() float64       { return c.State().Gain }
func (c *Controller) Bandwidth() float64  { return c.State().Bandwidth }
func (c *Controller) Generation() uint64  { return c.State().Generation }

// Tuning is an alias of Frequency.
func (c *Controller) Tuning() float64 {
	return c.Frequency()
}

// SetTuning is an alias of SetFrequency.
func (c *Controller) SetTuning(hz float64) error {
	return c.SetFrequency(hz)
}

// SetFrequency retunes the receiver to hz.
func (c *Controller) SetFrequency(hz float64) error {
	return c.apply(ParamFrequency, hz, func() error {
		if err := c.driver.SetCenterFreq(hz); err != nil {
			return driver.NewDriverError(c.driver.Name(), "set center frequency", err)
		}
		c.state.Frequency = hz
		return nil
	})
}

// SetSampleRate changes the sample rate. Receivers with extended bandwidth
// also get their analog bandwidth widened to match.
func (c *Controller) SetSampleRate(hz float64) error {
	return c.apply(ParamSampleRate, hz, func() error {
		if err := c.driver.SetSampleRate(hz); err != nil {
			return driver.NewDriverError(c.driver.Name(), "set sample rate", err)
		}
		c.state.SampleRate = hz

		if c.profile.ExtendedBandwidth {
			bw := c.profile.Bandwidth(hz)
			if err := c.driver.SetBandwidth(bw); err != nil {
				return driver.NewDriverError(c.driver.Name(), "set bandwidth", err)
			}
			c.state.Bandwidth = bw
		}
		return nil
	})
}

// SetGain changes the manual gain in dB.
func (c *Controller) SetGain(db float64) error {
	return c.apply(ParamGain, db, func() error {
		if err := c.driver.SetGain(db); err != nil {
			return driver.NewDriverError(c.driver.Name(), "set gain", err)
		}
		c.state.Gain = db
		return nil
	})
}

// ReadSamples reads one block of samples and reports the settings
// generation it was captured under.
func (c *Controller) ReadSamples(ctx context.Context, buf []complex64) (int, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.driver.ReadSamples(ctx, buf)
	return n, c.state.Generation, err
}

// Close releases the driver.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driver.Close()
}

func (c *Controller) apply(param string, value float64, fn func() error) error {
	if value < 0 {
		return fmt.Errorf("%s %f: %w", param, value, ErrNegativeValue)
	}

	c.mu.Lock()
	err := fn()
	// A rejected change may still have reached the radio half way, so the
	// generation moves on either way.
	c.state.Generation++
	change := Change{
		Parameter:  param,
		Value:      value,
		Generation: c.state.Generation,
		Time:       time.Now().UTC(),
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error(err.Error(), slog.String("parameter", param), slog.Float64("value", value))
		return err
	}

	c.logger.Info("receiver setting changed",
		slog.String("parameter", param),
		slog.Float64("value", value),
		slog.Uint64("generation", change.Generation))

	for _, o := range c.observers {
		o(change)
	}

	return nil
}

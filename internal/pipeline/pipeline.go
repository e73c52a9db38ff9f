// Package pipeline runs the receiver flowgraph: samples are read from the
// receiver, DC-blocked, grouped into frames, transformed with a windowed
// FFT and published one frame per message.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/spectrum-relay/internal/dsp"
	"github.com/roman-kulish/spectrum-relay/internal/spectrum"
)

const (
	DefaultFFTSize         = 1024
	DefaultDCBlockerLength = 1024
	DefaultQueueDepth      = 16
)

// ErrRunning is returned by Run when the pipeline is already running.
var ErrRunning = errors.New("pipeline is already running")

// Source produces blocks of samples tagged with the settings generation they
// were captured under. *sdr.Controller is a Source.
type Source interface {
	ReadSamples(ctx context.Context, buf []complex64) (int, uint64, error)
}

// Sink publishes encoded frames. Send is only ever called with whole frames.
type Sink interface {
	Send(ctx context.Context, frame []byte) error
}

// Config is the flowgraph shape. It is fixed for the pipeline lifetime.
type Config struct {
	FFTSize         int  `yaml:"fftSize" json:"fftSize"`
	DCBlockerLength int  `yaml:"dcBlockerLength" json:"dcBlockerLength"`
	FFTShift        bool `yaml:"fftShift" json:"fftShift"`
	QueueDepth      int  `yaml:"queueDepth" json:"queueDepth"`
}

// DefaultConfig mirrors the classic flowgraph: 1024 bins, a 1024 sample DC
// blocker and a centered spectrum.
func DefaultConfig() Config {
	return Config{
		FFTSize:         DefaultFFTSize,
		DCBlockerLength: DefaultDCBlockerLength,
		FFTShift:        true,
		QueueDepth:      DefaultQueueDepth,
	}
}

func (c *Config) Validate() error {
	if !dsp.IsPowerOfTwo(c.FFTSize) {
		return fmt.Errorf("pipeline.Config: fft size must be a power of two: %d", c.FFTSize)
	}
	if c.DCBlockerLength < 2 {
		return fmt.Errorf("pipeline.Config: dc blocker length must be at least 2: %d", c.DCBlockerLength)
	}
	if c.QueueDepth < 1 {
		return fmt.Errorf("pipeline.Config: queue depth must be positive: %d", c.QueueDepth)
	}
	return nil
}

// WithLogger sets the logger of the Pipeline.
func WithLogger(logger *slog.Logger) func(*Pipeline) {
	return func(p *Pipeline) {
		p.logger = logger.With(slog.String("pipeline", p.id))
	}
}

// WithDataAddress records the address consumers connect to.
func WithDataAddress(addr string) func(*Pipeline) {
	return func(p *Pipeline) {
		p.dataAddress = addr
	}
}

// Pipeline connects a Source to a Sink. Each stage runs in its own
// goroutine; stages are linked by bounded channels.
type Pipeline struct {
	id          string
	config      Config
	dataAddress string

	source Source
	sink   Sink

	running   atomic.Bool
	published atomic.Uint64
	discarded atomic.Uint64

	logger *slog.Logger
}

type block struct {
	samples    []complex64
	generation uint64
}

// New validates the configuration and creates a Pipeline.
func New(source Source, sink Sink, config Config, options ...func(*Pipeline)) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := Pipeline{
		id:     uuid.NewString(),
		config: config,
		source: source,
		sink:   sink,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&p)
	}

	return &p, nil
}

// ID returns the unique instance identifier.
func (p *Pipeline) ID() string {
	return p.id
}

// FFTSize returns the number of bins per frame.
func (p *Pipeline) FFTSize() int {
	return p.config.FFTSize
}

// DataAddress returns the address consumers connect to.
func (p *Pipeline) DataAddress() string {
	return p.dataAddress
}

// Config returns the flowgraph shape.
func (p *Pipeline) Config() Config {
	return p.config
}

// Published returns the number of frames handed to the sink.
func (p *Pipeline) Published() uint64 {
	return p.published.Load()
}

// Discarded returns the number of whole frames dropped on stop.
func (p *Pipeline) Discarded() uint64 {
	return p.discarded.Load()
}

// Run starts the stages and blocks until ctx is done or a stage fails. On
// stop the source is cancelled first and every stage drains in order; the
// sink never sees a partial frame. Run returns nil on a clean stop.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer p.running.Store(false)

	blocker, err := dsp.NewDCBlocker(p.config.DCBlockerLength)
	if err != nil {
		return err
	}
	framer, err := dsp.NewFramer(p.config.FFTSize)
	if err != nil {
		return err
	}
	transform, err := dsp.NewFFT(p.config.FFTSize, p.config.FFTShift)
	if err != nil {
		return err
	}

	depth := p.config.QueueDepth
	raw := make(chan block, depth)
	filtered := make(chan block, depth)
	frames := make(chan []byte, depth)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.read(gctx, raw) })
	g.Go(func() error { return p.dcBlock(gctx, blocker, raw, filtered) })
	g.Go(func() error { return p.frame(gctx, framer, transform, filtered, frames) })
	g.Go(func() error { return p.publish(gctx, frames) })

	p.logger.Info("pipeline started",
		slog.Int("fftSize", p.config.FFTSize),
		slog.String("frameSize", humanize.IBytes(uint64(spectrum.FrameBytes(p.config.FFTSize)))),
		slog.String("dataAddress", p.dataAddress))

	err = g.Wait()

	p.logger.Info("pipeline stopped",
		slog.Uint64("published", p.published.Load()),
		slog.Uint64("discarded", p.discarded.Load()),
		slog.Uint64("droppedSamples", framer.Dropped()))

	return err
}

// read pulls sample blocks from the source until ctx is done.
func (p *Pipeline) read(ctx context.Context, out chan<- block) error {
	defer close(out)

	for {
		buf := make([]complex64, p.config.FFTSize)
		n, gen, err := p.source.ReadSamples(ctx, buf)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading samples: %w", err)
		}
		if n == 0 {
			continue
		}

		select {
		case out <- block{samples: buf[:n], generation: gen}:
		case <-ctx.Done():
			return nil
		}
	}
}

// dcBlock removes DC from each block. The filter history is cleared when
// the settings generation changes.
func (p *Pipeline) dcBlock(ctx context.Context, blocker *dsp.DCBlocker, in <-chan block, out chan<- block) error {
	defer close(out)

	var (
		generation uint64
		started    bool
	)

	for b := range in {
		if started && b.generation != generation {
			blocker.Reset()
		}
		generation, started = b.generation, true

		blocker.Process(b.samples, b.samples)

		select {
		case out <- b:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// frame groups samples into whole frames and transforms them.
func (p *Pipeline) frame(ctx context.Context, framer *dsp.Framer, transform *dsp.FFT, in <-chan block, out chan<- []byte) error {
	defer close(out)

	for b := range in {
		for _, f := range framer.Write(b.samples, b.generation) {
			spec, err := transform.Transform(f)
			if err != nil {
				return err
			}

			msg := spectrum.EncodeFrame(make([]byte, 0, spectrum.FrameBytes(len(spec))), spec)

			select {
			case out <- msg:
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

// publish hands frames to the sink. Frames still queued on stop are
// discarded whole.
func (p *Pipeline) publish(ctx context.Context, in <-chan []byte) error {
	for msg := range in {
		if ctx.Err() != nil {
			p.discarded.Add(1)
			continue
		}

		if err := p.sink.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				p.discarded.Add(1)
				continue
			}
			return fmt.Errorf("publishing frame: %w", err)
		}
		p.published.Add(1)
	}
	return nil
}

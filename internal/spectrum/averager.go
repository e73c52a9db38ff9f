package spectrum

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/spectrum-relay/internal/transport"
)

// Receiver yields one Frame Batch per call.
type Receiver interface {
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// DialFunc connects a Receiver to a pull-style endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Receiver, error)

// DialZMQ connects a ZeroMQ PULL socket to endpoint.
func DialZMQ(ctx context.Context, endpoint string) (Receiver, error) {
	return transport.DialPull(ctx, endpoint)
}

// WithLogger sets the logger of the Averager.
func WithLogger(logger *slog.Logger) func(*Averager) {
	return func(a *Averager) {
		a.logger = logger
	}
}

// WithReceiveTimeout bounds the wait for each individual batch. Zero, the
// default, waits indefinitely.
func WithReceiveTimeout(d time.Duration) func(*Averager) {
	return func(a *Averager) {
		a.recvTimeout = d
	}
}

// WithDialer replaces the transport used to reach the endpoint.
func WithDialer(dial DialFunc) func(*Averager) {
	return func(a *Averager) {
		a.dial = dial
	}
}

// Averager computes mean power spectra from a stream of Frame Batches.
type Averager struct {
	dial        DialFunc
	recvTimeout time.Duration
	logger      *slog.Logger
}

// NewAverager creates an Averager using ZeroMQ and a discard logger.
func NewAverager(options ...func(*Averager)) *Averager {
	a := Averager{
		dial:   DialZMQ,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&a)
	}

	return &a
}

// AveragePowerSpectrum connects to endpoint with the default Averager and
// returns the per-bin mean power over readCount receive calls.
func AveragePowerSpectrum(ctx context.Context, endpoint string, fftSize, readCount int) ([]float64, error) {
	return NewAverager().Average(ctx, endpoint, fftSize, readCount)
}

// Average connects to endpoint, performs readCount receive calls and returns
// the mean power of every bin that received at least one sample. readCount
// counts receive calls, not frames: one batch may carry several frames.
//
// Arguments are validated before any I/O. A transport failure yields a
// *TransportError, a malformed batch a *ShapeError; in both cases the
// partial accumulation is discarded and no result is returned.
func (a *Averager) Average(ctx context.Context, endpoint string, fftSize, readCount int) ([]float64, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("%w: fft size must be positive: %d given", ErrInvalidArgument, fftSize)
	}
	if readCount <= 0 {
		return nil, fmt.Errorf("%w: read count must be positive: %d given", ErrInvalidArgument, readCount)
	}

	acc, err := NewAccumulator(fftSize)
	if err != nil {
		return nil, err
	}

	rcv, err := a.dial(ctx, endpoint)
	if err != nil {
		return nil, &TransportError{Op: "dial", Endpoint: endpoint, Err: err}
	}
	defer rcv.Close()

	logger := a.logger.With(slog.String("endpoint", endpoint), slog.Int("fftSize", fftSize))

	var frames, received int
	for i := 0; i < readCount; i++ {
		batch, err := a.recv(ctx, rcv)
		if err != nil {
			return nil, &TransportError{Op: "recv", Endpoint: endpoint, Err: err}
		}

		n, err := acc.Add(batch)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}

		frames += n
		received += len(batch)
	}

	logger.Debug("averaging done",
		slog.Int("reads", readCount),
		slog.Int("frames", frames),
		slog.String("received", humanize.Bytes(uint64(received))))

	return acc.Result(), nil
}

func (a *Averager) recv(ctx context.Context, rcv Receiver) ([]byte, error) {
	if a.recvTimeout <= 0 {
		return rcv.Recv(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, a.recvTimeout)
	defer cancel()

	return rcv.Recv(ctx)
}

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-zeromq/zmq4"
)

// WithPushLogger sets the logger of a Pusher.
func WithPushLogger(logger *slog.Logger) func(*Pusher) {
	return func(p *Pusher) {
		p.logger = logger.With(slog.String("endpoint", p.endpoint))
	}
}

// WithHighWaterMark sets the number of messages queued before Send blocks.
func WithHighWaterMark(hwm int) func(*Pusher) {
	return func(p *Pusher) {
		if hwm > 0 {
			p.hwm = hwm
		}
	}
}

// WithFrameBytes makes the Pusher reject any message that is not exactly n bytes.
func WithFrameBytes(n int) func(*Pusher) {
	return func(p *Pusher) {
		p.frameBytes = n
	}
}

// Pusher is the producer side of a PUSH/PULL pair. Messages are queued up
// to the high-water mark and written by a single goroutine, so each message
// goes out whole and in order. Close does not linger: queued messages are
// discarded.
type Pusher struct {
	endpoint   string
	hwm        int
	frameBytes int

	sock   zmq4.Socket
	queue  chan []byte
	cancel context.CancelFunc
	done   chan struct{}

	sent    atomic.Uint64
	sendErr atomic.Pointer[error]
	closed  atomic.Bool

	closeOnce sync.Once
	closeErr  error

	logger *slog.Logger
}

// ListenPush binds a PUSH socket to endpoint, for example "tcp://*:5555".
func ListenPush(ctx context.Context, endpoint string, options ...func(*Pusher)) (*Pusher, error) {
	p := Pusher{
		endpoint: endpoint,
		hwm:      DefaultHighWaterMark,
		done:     make(chan struct{}),
		logger:   discardLogger(),
	}

	for _, option := range options {
		option(&p)
	}

	p.queue = make(chan []byte, p.hwm)

	var sockCtx context.Context
	sockCtx, p.cancel = context.WithCancel(ctx)

	p.sock = zmq4.NewPush(sockCtx)
	if err := p.sock.Listen(endpoint); err != nil {
		p.cancel()
		_ = p.sock.Close()
		return nil, fmt.Errorf("listening on %s: %w", endpoint, err)
	}

	p.logger.Info("publishing frames", slog.Int("highWaterMark", p.hwm))

	go p.writeLoop(sockCtx)

	return &p, nil
}

// Endpoint returns the bound address.
func (p *Pusher) Endpoint() string {
	return p.endpoint
}

// Sent returns the number of messages handed to the socket.
func (p *Pusher) Sent() uint64 {
	return p.sent.Load()
}

// Send queues one message. It blocks while the queue is at the high-water
// mark, until ctx is done or the Pusher is closed.
func (p *Pusher) Send(ctx context.Context, msg []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if errp := p.sendErr.Load(); errp != nil {
		return *errp
	}
	if p.frameBytes > 0 && len(msg) != p.frameBytes {
		return fmt.Errorf("%w: %d bytes, expected %d", ErrFrameSize, len(msg), p.frameBytes)
	}

	select {
	case p.queue <- msg:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the writer, drops queued messages and closes the socket.
func (p *Pusher) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.cancel()
		<-p.done

		dropped := len(p.queue)
		p.closeErr = p.sock.Close()

		p.logger.Info("publisher closed", slog.Uint64("sent", p.sent.Load()), slog.Int("dropped", dropped))
	})
	return p.closeErr
}

func (p *Pusher) writeLoop(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case msg := <-p.queue:
			if err := p.sock.Send(zmq4.NewMsg(msg)); err != nil {
				if ctx.Err() != nil {
					return
				}
				err = fmt.Errorf("sending frame: %w", err)
				p.sendErr.Store(&err)
				p.logger.Error(err.Error())
				return
			}
			p.sent.Add(1)

		case <-ctx.Done():
			return
		}
	}
}

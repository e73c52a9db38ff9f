package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
)

const defaultDialRetry = 250 * time.Millisecond

type recvResult struct {
	payload []byte
	err     error
}

// WithPullLogger sets the logger of a Puller.
func WithPullLogger(logger *slog.Logger) func(*Puller) {
	return func(p *Puller) {
		p.logger = logger.With(slog.String("endpoint", p.endpoint))
	}
}

// WithDialTimeout bounds the time spent establishing the connection.
func WithDialTimeout(d time.Duration) func(*Puller) {
	return func(p *Puller) {
		p.dialTimeout = d
	}
}

// Puller is the consumer side of a PUSH/PULL pair. It connects to the
// producer, it never binds.
type Puller struct {
	endpoint    string
	dialTimeout time.Duration

	sock     zmq4.Socket
	cancel   context.CancelFunc
	incoming chan recvResult

	closeOnce sync.Once
	closeErr  error

	logger *slog.Logger
}

// DialPull connects a PULL socket to endpoint, for example "tcp://127.0.0.1:5555".
func DialPull(ctx context.Context, endpoint string, options ...func(*Puller)) (*Puller, error) {
	p := Puller{
		endpoint: endpoint,
		incoming: make(chan recvResult),
		logger:   discardLogger(),
	}

	for _, option := range options {
		option(&p)
	}

	var sockCtx context.Context
	sockCtx, p.cancel = context.WithCancel(ctx)

	zopts := []zmq4.Option{zmq4.WithDialerRetry(defaultDialRetry)}
	if p.dialTimeout > 0 {
		zopts = append(zopts, zmq4.WithDialerTimeout(p.dialTimeout))
	}

	p.sock = zmq4.NewPull(sockCtx, zopts...)
	if err := p.sock.Dial(endpoint); err != nil {
		p.cancel()
		_ = p.sock.Close()
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}

	p.logger.Debug("connected")

	go p.readLoop(sockCtx)

	return &p, nil
}

// Endpoint returns the address the Puller is connected to.
func (p *Puller) Endpoint() string {
	return p.endpoint
}

// Recv blocks until one message arrives, ctx is done or the connection fails.
// The returned payload is the concatenation of all message parts.
func (p *Puller) Recv(ctx context.Context) ([]byte, error) {
	select {
	case r, ok := <-p.incoming:
		if !ok {
			return nil, ErrClosed
		}
		return r.payload, r.err

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the socket. Messages not yet received are dropped.
func (p *Puller) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.closeErr = p.sock.Close()
	})
	return p.closeErr
}

func (p *Puller) readLoop(ctx context.Context) {
	defer close(p.incoming)

	for {
		msg, err := p.sock.Recv()
		r := recvResult{err: err}
		if err == nil {
			r.payload = joinFrames(msg.Frames)
		}

		select {
		case p.incoming <- r:
		case <-ctx.Done():
			return
		}

		if err != nil {
			return
		}
	}
}

func joinFrames(frames [][]byte) []byte {
	if len(frames) == 1 {
		return frames[0]
	}

	var n int
	for _, f := range frames {
		n += len(f)
	}

	payload := make([]byte, 0, n)
	for _, f := range frames {
		payload = append(payload, f...)
	}
	return payload
}

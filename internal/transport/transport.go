// Package transport carries spectral frames over ZeroMQ PUSH/PULL sockets.
// The producer binds a PUSH socket, consumers connect PULL sockets to it.
// One message holds one or more whole frames and never a partial one.
package transport

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

const (
	// DefaultHighWaterMark is the outbound queue depth of a Pusher.
	DefaultHighWaterMark = 100

	// DefaultBind is the interface a Pusher binds to when none is configured.
	DefaultBind = "tcp://*"

	// DefaultPort is the port spectral frames are published on.
	DefaultPort = 5555
)

var (
	// ErrClosed is returned by operations on a closed endpoint.
	ErrClosed = errors.New("transport: endpoint closed")

	// ErrFrameSize is returned when a message does not match the configured frame size.
	ErrFrameSize = errors.New("transport: message size does not match frame size")
)

// LocalAddress returns the loopback connect address for a port,
// e.g. "tcp://127.0.0.1:5555".
func LocalAddress(port int) string {
	return fmt.Sprintf("tcp://127.0.0.1:%d", port)
}

// BindAddress joins a bind prefix such as "tcp://*" with a port.
func BindAddress(bind string, port int) string {
	if bind == "" {
		bind = DefaultBind
	}
	return fmt.Sprintf("%s:%d", bind, port)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

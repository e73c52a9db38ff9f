package spectrum

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when averaging parameters are rejected
// before any network I/O takes place.
var ErrInvalidArgument = errors.New("invalid argument")

// ShapeError reports a Frame Batch whose byte length is not an exact
// multiple of the frame size.
type ShapeError struct {
	Length     int // payload length in bytes
	FrameBytes int // expected frame size in bytes (fftSize * 8)
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("spectrum: cannot reshape %d bytes into frames of %d bytes (%.2f frames)",
		e.Length, e.FrameBytes, float64(e.Length)/float64(e.FrameBytes))
}

// TransportError wraps a failure of the underlying message transport:
// connection refused, reset, receive failure or timeout.
type TransportError struct {
	Op       string // "dial" or "recv"
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("spectrum: %s %s: %s", e.Op, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

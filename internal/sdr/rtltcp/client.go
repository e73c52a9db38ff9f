// Package rtltcp drives a receiver through an rtl_tcp compatible server.
// Settings are sent as 5-byte commands; samples arrive as interleaved
// unsigned 8-bit I/Q pairs.
package rtltcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
	"github.com/roman-kulish/spectrum-relay/internal/sdr/driver"
)

const (
	Device = "rtl_tcp"

	defaultDialTimeout = 5 * time.Second
)

// Command codes understood by rtl_tcp.
const (
	cmdCenterFreq byte = iota + 1
	cmdSampleRate
	cmdTunerGainMode
	cmdTunerGain
	cmdFreqCorrection
	cmdTunerIfGain
	cmdTestMode
	cmdAGCMode
	cmdDirectSampling
	cmdOffsetTuning
	cmdRTLXtalFreq
	cmdTunerXtalFreq
	cmdGainByIndex
)

var dongleMagic = [4]byte{'R', 'T', 'L', '0'}

// ErrBadMagic is returned when the server does not greet with "RTL0".
var ErrBadMagic = errors.New("rtltcp: bad dongle magic")

// DongleInfo is the 12-byte greeting sent by the server on connect.
type DongleInfo struct {
	Magic     [4]byte
	Tuner     uint32
	GainCount uint32
}

// Valid checks the greeting magic.
func (d DongleInfo) Valid() bool {
	return d.Magic == dongleMagic
}

// WithLogger sets the logger of the Client.
func WithLogger(logger *slog.Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger.With(slog.String("device", Device), slog.String("address", c.address))
	}
}

// WithDialTimeout bounds the connection setup.
func WithDialTimeout(d time.Duration) func(*Client) {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// Client is an sdr.Driver talking to an rtl_tcp server.
type Client struct {
	address     string
	dialTimeout time.Duration

	conn net.Conn
	info DongleInfo

	wmu sync.Mutex // serializes commands
	buf []byte     // raw sample bytes

	logger *slog.Logger
}

var _ sdr.Driver = (*Client)(nil)

// Dial connects to an rtl_tcp server at address ("host:port") and reads its
// greeting.
func Dial(ctx context.Context, address string, options ...func(*Client)) (*Client, error) {
	c := Client{
		address:     address,
		dialTimeout: defaultDialTimeout,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", address, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.dialTimeout))
	if err = binary.Read(conn, binary.BigEndian, &c.info); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("reading dongle information: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	if !c.info.Valid() {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, c.info.Magic)
	}

	c.conn = conn
	c.logger.Info("connected", slog.Uint64("tuner", uint64(c.info.Tuner)), slog.Uint64("gains", uint64(c.info.GainCount)))

	return &c, nil
}

// Info returns the server greeting.
func (c *Client) Info() DongleInfo {
	return c.info
}

func (c *Client) Name() string {
	return Device
}

func (c *Client) SetCenterFreq(hz float64) error {
	v, err := toUint32(hz)
	if err != nil {
		return err
	}
	return c.send(cmdCenterFreq, v)
}

func (c *Client) SetSampleRate(hz float64) error {
	v, err := toUint32(hz)
	if err != nil {
		return err
	}
	return c.send(cmdSampleRate, v)
}

// SetGainMode switches between tuner AGC (true) and manual gain (false).
func (c *Client) SetGainMode(automatic bool) error {
	if automatic {
		return c.send(cmdTunerGainMode, 0)
	}
	return c.send(cmdTunerGainMode, 1)
}

// SetGain sets the manual tuner gain; rtl_tcp expects tenths of a dB.
func (c *Client) SetGain(db float64) error {
	v, err := toUint32(math.Round(db * 10))
	if err != nil {
		return err
	}
	return c.send(cmdTunerGain, v)
}

// SetBandwidth accepts only 0: rtl_tcp derives the tuner bandwidth from the
// sample rate.
func (c *Client) SetBandwidth(hz float64) error {
	if hz != 0 {
		return fmt.Errorf("bandwidth %.0f Hz: %w", hz, driver.ErrUnsupported)
	}
	return nil
}

// SetDCOffsetMode accepts off and automatic. rtl_tcp has no DC correction
// of its own; the pipeline DC blocker removes the offset.
func (c *Client) SetDCOffsetMode(mode sdr.DCOffsetMode) error {
	if mode == sdr.DCOffsetManual {
		return fmt.Errorf("manual DC offset: %w", driver.ErrUnsupported)
	}
	return nil
}

// SetIQBalanceMode accepts only 0 (off).
func (c *Client) SetIQBalanceMode(mode int) error {
	if mode != 0 {
		return fmt.Errorf("IQ balance mode %d: %w", mode, driver.ErrUnsupported)
	}
	return nil
}

// SetFreqCorrection sets the frequency correction in ppm.
func (c *Client) SetFreqCorrection(ppm int) error {
	return c.send(cmdFreqCorrection, uint32(int32(ppm)))
}

// SetAGCMode toggles the RTL2832 digital AGC.
func (c *Client) SetAGCMode(enabled bool) error {
	if enabled {
		return c.send(cmdAGCMode, 1)
	}
	return c.send(cmdAGCMode, 0)
}

// ReadSamples reads len(buf) I/Q pairs and scales them to [-1, 1].
func (c *Client) ReadSamples(ctx context.Context, buf []complex64) (int, error) {
	if cap(c.buf) < 2*len(buf) {
		c.buf = make([]byte, 2*len(buf))
	}
	raw := c.buf[:2*len(buf)]

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
		close(interrupted)
	})

	n, err := io.ReadFull(c.conn, raw)
	if !stop() {
		// The deadline outlives this call; clear it for the next read.
		<-interrupted
		_ = c.conn.SetReadDeadline(time.Time{})
	}
	pairs := n / 2
	convertU8(buf[:pairs], raw[:pairs*2])

	if err != nil {
		if ctx.Err() != nil {
			return pairs, ctx.Err()
		}
		return pairs, fmt.Errorf("reading samples: %w", err)
	}

	return pairs, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) send(cmd byte, param uint32) error {
	var msg [5]byte
	msg[0] = cmd
	binary.BigEndian.PutUint32(msg[1:], param)

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if _, err := c.conn.Write(msg[:]); err != nil {
		return fmt.Errorf("sending command 0x%02x: %w", cmd, err)
	}
	return nil
}

func toUint32(v float64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("value %f out of range", v)
	}
	return uint32(v), nil
}

func convertU8(dst []complex64, src []byte) {
	for i := range dst {
		re := (float32(src[2*i]) - 127.5) / 127.5
		im := (float32(src[2*i+1]) - 127.5) / 127.5
		dst[i] = complex(re, im)
	}
}

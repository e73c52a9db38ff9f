package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/spectrum-relay/internal/transport"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"

	defaultHost    = "127.0.0.1"
	defaultFFTSize = 1024
	defaultReads   = 10
)

type ImageFormat string

type Config struct {
	Endpoint        string
	FFTSize         int
	Reads           int
	Timeout         time.Duration
	CenterFrequency *float64
	SampleRate      *float64
	Shifted         bool
	OutputFile      string
	Format          ImageFormat
	MaxPower        *float64
	MinPower        *float64
	Verbose         bool
	NoAnnotations   bool

	// Output receives the per-bin report.
	Output io.Writer
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Endpoint: transport.LocalAddress(transport.DefaultPort),
		FFTSize:  defaultFFTSize,
		Reads:    defaultReads,
		Shifted:  true,
		Format:   ImagePNG,
		Output:   os.Stdout,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var host, imageFormat string
	var port int
	var minPower, maxPower, frequency, sampleRate float64
	fs.StringVar(&c.Endpoint, "endpoint", "", "ZeroMQ endpoint to pull from, overrides -host and -port")
	fs.StringVar(&host, "host", defaultHost, "Host of the spectrum publisher")
	fs.IntVar(&port, "port", transport.DefaultPort, "Port of the spectrum publisher")
	fs.IntVar(&c.FFTSize, "fft", defaultFFTSize, "FFT size the publisher was configured with")
	fs.IntVar(&c.Reads, "reads", defaultReads, "Number of batches to receive")
	fs.DurationVar(&c.Timeout, "timeout", 0, "Per-batch receive timeout, 0 waits forever")
	fs.Float64Var(&frequency, "freq", 0, "Center frequency in Hz, enables bin frequencies")
	fs.Float64Var(&sampleRate, "rate", 0, "Sample rate in Hz, enables bin frequencies")
	fs.BoolVar(&c.Shifted, "shifted", true, "Frames are fft-shifted (DC in the middle)")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output plot, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.Float64Var(&minPower, "min-power", 0, "Define a manual minimum power in dB (format nn.n)")
	fs.Float64Var(&maxPower, "max-power", 0, "Define a manual maximum power in dB (format nn.n)")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as power and frequency scales")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-power":
			c.MinPower = &minPower
		case "max-power":
			c.MaxPower = &maxPower
		case "freq":
			c.CenterFrequency = &frequency
		case "rate":
			c.SampleRate = &sampleRate
		}
	})

	if c.Endpoint == "" {
		c.Endpoint = "tcp://" + net.JoinHostPort(host, strconv.Itoa(port))
	}

	var err error
	if c.FFTSize <= 0 {
		err = fmt.Errorf("fft size must be positive, got %d", c.FFTSize)
	} else if c.Reads <= 0 {
		err = fmt.Errorf("reads must be positive, got %d", c.Reads)
	} else if c.Timeout < 0 {
		err = errors.New("timeout must not be negative")
	} else if port <= 0 || port > 65535 {
		err = fmt.Errorf("invalid port: %d", port)
	} else if (c.CenterFrequency == nil) != (c.SampleRate == nil) {
		err = errors.New("-freq and -rate must be given together")
	} else if c.SampleRate != nil && *c.SampleRate <= 0 {
		err = errors.New("sample rate must be positive")
	} else if c.CenterFrequency != nil && *c.CenterFrequency < 0 {
		err = errors.New("center frequency must not be negative")
	} else if c.MinPower != nil && c.MaxPower != nil && *c.MinPower >= *c.MaxPower {
		err = errors.New("min power must be below max power")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	if c.OutputFile != "" {
		c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	}
	return c, nil
}

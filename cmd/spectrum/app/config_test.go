package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
)

const sampleConfig = `
settings:
  logLevel: debug
receiver:
  type: uhd
  extraArgs: ",type=b200"
  frequency: 100.0e6
  sampleRate: 2.4e6
  gain: 20
  source:
    kind: rxsdr
    dialTimeout: 2s
pipeline:
  fftSize: 2048
  dcBlockerLength: 512
  fftShift: true
  queueDepth: 8
publish:
  port: 6000
journal:
  enabled: true
  path: data/test.sqlite
`

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	if config.Settings.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %q", config.Settings.LogLevel)
	}
	if config.Receiver.ReceiverType() != sdr.ReceiverUHD {
		t.Errorf("expected uhd receiver, got %s", config.Receiver.ReceiverType())
	}
	if s := config.Receiver.Settings(); s.Frequency != 100e6 || s.SampleRate != 2.4e6 || s.Gain != 20 {
		t.Errorf("unexpected receiver settings: %+v", s)
	}
	if config.Receiver.Source.Kind != SourceRxSDR || config.Receiver.Source.DialTimeout.Duration() != 2*time.Second {
		t.Errorf("unexpected source: %+v", config.Receiver.Source)
	}
	if config.Pipeline.FFTSize != 2048 || config.Pipeline.DCBlockerLength != 512 || config.Pipeline.QueueDepth != 8 {
		t.Errorf("unexpected pipeline: %+v", config.Pipeline)
	}

	// Defaults survive for keys missing from the file.
	if config.Publish.Port != 6000 || config.Publish.Bind != "tcp://*" || config.Publish.HighWaterMark != 100 {
		t.Errorf("unexpected publish config: %+v", config.Publish)
	}
	if config.Journal.Driver != JournalSqlite {
		t.Errorf("expected sqlite journal, got %q", config.Journal.Driver)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		c := DefaultConfig()
		c.Receiver.Frequency = 100e6
		c.Receiver.SampleRate = 2e6
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing frequency", func(c *Config) { c.Receiver.Frequency = 0 }, true},
		{"negative gain", func(c *Config) { c.Receiver.Gain = -1 }, true},
		{"unknown source", func(c *Config) { c.Receiver.Source.Kind = "usb" }, true},
		{"rtltcp without address", func(c *Config) { c.Receiver.Source.Address = "" }, true},
		{"fft size", func(c *Config) { c.Pipeline.FFTSize = 1000 }, true},
		{"port", func(c *Config) { c.Publish.Port = 70000 }, true},
		{"bind", func(c *Config) { c.Publish.Bind = "ipc://x" }, true},
		{"high water mark", func(c *Config) { c.Publish.HighWaterMark = 0 }, true},
		{"control without listen", func(c *Config) { c.Control.Enabled, c.Control.Listen = true, "" }, true},
		{"unknown journal", func(c *Config) { c.Journal.Enabled, c.Journal.Driver = true, "postgres" }, true},
		{"mysql without server", func(c *Config) { c.Journal.Enabled, c.Journal.Driver = true, JournalMySQL }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err != nil {
		t.Errorf("LoadConfig: %v", err)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	if _, err := ParseConfig([]byte("receiver:\n  source:\n    dialTimeout: soon\n")); err == nil {
		t.Error("expected error for an invalid duration")
	}
}

package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/spectrum-relay/internal/pipeline"
	"github.com/roman-kulish/spectrum-relay/internal/sdr"
	"github.com/roman-kulish/spectrum-relay/internal/storage"
	"github.com/roman-kulish/spectrum-relay/internal/transport"
)

const (
	SourceRTLTCP SourceKind = "rtltcp"
	SourceRxSDR  SourceKind = "rxsdr"

	JournalSqlite JournalDriver = "sqlite"
	JournalMySQL  JournalDriver = "mysql"

	defaultLogLevel     = "info"
	defaultRTLTCPAddr   = "127.0.0.1:1234"
	defaultDialTimeout  = 5 * time.Second
	defaultControlAddr  = "127.0.0.1:8080"
	defaultJournalPath  = "data/journal.sqlite"
	defaultReceiverType = "rtl"
)

type SourceKind string

type JournalDriver string

type TimeDuration time.Duration

func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.TimeDuration: failed to parse: %s", err)
	}

	*d = TimeDuration(duration)
	return nil
}

func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d TimeDuration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the main application configuration
type Config struct {
	Settings Settings        `yaml:"settings" json:"settings"`
	Receiver ReceiverConfig  `yaml:"receiver" json:"receiver"`
	Pipeline pipeline.Config `yaml:"pipeline" json:"pipeline"`
	Publish  PublishConfig   `yaml:"publish" json:"publish"`
	Control  ControlConfig   `yaml:"control" json:"control"`
	Journal  JournalConfig   `yaml:"journal" json:"-"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel" json:"logLevel"`
}

// ReceiverConfig selects and tunes the radio.
type ReceiverConfig struct {
	Type       string       `yaml:"type" json:"type"`
	ExtraArgs  string       `yaml:"extraArgs" json:"extraArgs"`
	Frequency  float64      `yaml:"frequency" json:"frequency"`
	SampleRate float64      `yaml:"sampleRate" json:"sampleRate"`
	Gain       float64      `yaml:"gain" json:"gain"`
	Source     SourceConfig `yaml:"source" json:"source"`
}

// SourceConfig selects how the radio is reached.
type SourceConfig struct {
	Kind        SourceKind   `yaml:"kind" json:"kind"`
	Address     string       `yaml:"address" json:"address"`
	DialTimeout TimeDuration `yaml:"dialTimeout" json:"dialTimeout"`
}

// PublishConfig is the outbound PUSH endpoint.
type PublishConfig struct {
	Port          int    `yaml:"port" json:"port"`
	Bind          string `yaml:"bind" json:"bind"`
	HighWaterMark int    `yaml:"highWaterMark" json:"highWaterMark"`
}

// ControlConfig is the HTTP control API.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

// JournalConfig is the session journal.
type JournalConfig struct {
	Enabled bool                `yaml:"enabled"`
	Driver  JournalDriver       `yaml:"driver"`
	Path    string              `yaml:"path"`
	MySQL   storage.MySQLConfig `yaml:"mysql"`
}

// DefaultConfig returns the configuration used for keys missing from the
// file.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{LogLevel: defaultLogLevel},
		Receiver: ReceiverConfig{
			Type: defaultReceiverType,
			Source: SourceConfig{
				Kind:        SourceRTLTCP,
				Address:     defaultRTLTCPAddr,
				DialTimeout: TimeDuration(defaultDialTimeout),
			},
		},
		Pipeline: pipeline.DefaultConfig(),
		Publish: PublishConfig{
			Port:          transport.DefaultPort,
			Bind:          transport.DefaultBind,
			HighWaterMark: transport.DefaultHighWaterMark,
		},
		Control: ControlConfig{Listen: defaultControlAddr},
		Journal: JournalConfig{Driver: JournalSqlite, Path: defaultJournalPath},
	}
}

// LoadConfig reads and validates the YAML configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration over the defaults and validates
// it.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if err := c.Receiver.Settings().Validate(); err != nil {
		return fmt.Errorf("app.Config: receiver: %w", err)
	}

	switch c.Receiver.Source.Kind {
	case SourceRTLTCP:
		if c.Receiver.Source.Address == "" {
			return fmt.Errorf("app.Config: rtltcp source needs an address")
		}
	case SourceRxSDR:
	default:
		return fmt.Errorf("app.Config: unknown source kind '%s'", c.Receiver.Source.Kind)
	}

	if c.Receiver.Source.DialTimeout < 0 {
		return fmt.Errorf("app.Config: dial timeout must not be negative: %s", c.Receiver.Source.DialTimeout.Duration())
	}

	if err := c.Pipeline.Validate(); err != nil {
		return err
	}

	if c.Publish.Port <= 0 || c.Publish.Port > 65535 {
		return fmt.Errorf("app.Config: invalid publish port: %d", c.Publish.Port)
	}
	if !strings.HasPrefix(c.Publish.Bind, "tcp://") {
		return fmt.Errorf("app.Config: publish bind must be a tcp:// address: %q", c.Publish.Bind)
	}
	if c.Publish.HighWaterMark <= 0 {
		return fmt.Errorf("app.Config: high water mark must be positive: %d", c.Publish.HighWaterMark)
	}

	if c.Control.Enabled && c.Control.Listen == "" {
		return fmt.Errorf("app.Config: control API needs a listen address")
	}

	if c.Journal.Enabled {
		switch c.Journal.Driver {
		case JournalSqlite:
			if c.Journal.Path == "" {
				return fmt.Errorf("app.Config: sqlite journal needs a path")
			}
		case JournalMySQL:
			if c.Journal.MySQL.Server == "" || c.Journal.MySQL.DBName == "" {
				return fmt.Errorf("app.Config: mysql journal needs a server and a database name")
			}
		default:
			return fmt.Errorf("app.Config: unknown journal driver '%s'", c.Journal.Driver)
		}
	}

	return nil
}

// ReceiverType resolves the configured receiver tag.
func (c *ReceiverConfig) ReceiverType() sdr.ReceiverType {
	return sdr.ParseReceiverType(c.Type)
}

// Settings returns the initial receiver settings.
func (c *ReceiverConfig) Settings() sdr.Settings {
	return sdr.Settings{
		Frequency:  c.Frequency,
		SampleRate: c.SampleRate,
		Gain:       c.Gain,
	}
}

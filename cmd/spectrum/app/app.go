package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roman-kulish/spectrum-relay/internal/pipeline"
	"github.com/roman-kulish/spectrum-relay/internal/sdr"
	"github.com/roman-kulish/spectrum-relay/internal/sdr/rtltcp"
	"github.com/roman-kulish/spectrum-relay/internal/sdr/rxsdr"
	"github.com/roman-kulish/spectrum-relay/internal/server"
	"github.com/roman-kulish/spectrum-relay/internal/spectrum"
	"github.com/roman-kulish/spectrum-relay/internal/storage"
	"github.com/roman-kulish/spectrum-relay/internal/transport"
)

// Run builds the receiver, the flowgraph and the control API from config
// and runs them until ctx is done.
func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	var options []func(*Orchestrator)

	journal, err := createJournal(&config.Journal)
	if err != nil {
		return fmt.Errorf("failed to create journal: %w", err)
	}
	if journal != nil {
		defer func() {
			err = errors.Join(err, journal.Close())
		}()

		logger.Info("journal enabled", slog.String("driver", journal.Dialect()))
		options = append(options, WithJournal(journal))
	}

	profile := sdr.NewProfile(config.Receiver.ReceiverType(), config.Receiver.ExtraArgs)

	drv, err := createDriver(ctx, &config.Receiver.Source, profile, logger)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	o := NewOrchestrator(config, profile, logger, options...)

	return o.Run(ctx, drv)
}

func createDriver(ctx context.Context, config *SourceConfig, profile sdr.Profile, logger *slog.Logger) (sdr.Driver, error) {
	switch config.Kind {
	case SourceRTLTCP:
		if profile.Type != sdr.ReceiverRTL {
			logger.Warn("rtl_tcp serves RTL dongles only; receiver type is ignored",
				slog.String("receiver", profile.Type.String()))
		}

		options := []func(*rtltcp.Client){rtltcp.WithLogger(logger)}
		if config.DialTimeout > 0 {
			options = append(options, rtltcp.WithDialTimeout(config.DialTimeout.Duration()))
		}
		return rtltcp.Dial(ctx, config.Address, options...)

	case SourceRxSDR:
		return rxsdr.New(rxsdr.SoapyArgs(profile.Args), rxsdr.WithLogger(logger))

	default:
		return nil, fmt.Errorf("unknown source kind '%s'", config.Kind)
	}
}

// createJournal returns nil when the journal is disabled.
func createJournal(config *JournalConfig) (*storage.SQLStore, error) {
	if !config.Enabled {
		return nil, nil
	}

	switch config.Driver {
	case JournalMySQL:
		return storage.NewMySQLStore(config.MySQL)

	default:
		dir := filepath.Dir(config.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory '%s': %w", dir, err)
		}
		return storage.NewSqliteStore(config.Path), nil
	}
}

func createPublisher(ctx context.Context, config *PublishConfig, fftSize int, logger *slog.Logger) (*transport.Pusher, error) {
	return transport.ListenPush(ctx, transport.BindAddress(config.Bind, config.Port),
		transport.WithPushLogger(logger),
		transport.WithHighWaterMark(config.HighWaterMark),
		transport.WithFrameBytes(spectrum.FrameBytes(fftSize)))
}

func createServer(ctrl *sdr.Controller, p *pipeline.Pipeline, logger *slog.Logger) *server.Server {
	return server.New(ctrl, server.Stream{
		FFTSize:     p.FFTSize(),
		DataAddress: p.DataAddress(),
	}, server.WithLogger(logger))
}

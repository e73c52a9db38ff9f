package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roman-kulish/spectrum-relay/internal/pipeline"
	"github.com/roman-kulish/spectrum-relay/internal/sdr"
	"github.com/roman-kulish/spectrum-relay/internal/storage"
	"github.com/roman-kulish/spectrum-relay/internal/transport"
)

// WithJournal records the run and its control changes in j.
func WithJournal(j storage.Journal) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.journal = j
	}
}

// Orchestrator owns one pipeline run: the receiver controller, the
// flowgraph, the publisher and the control API, plus the journal session
// recording them.
type Orchestrator struct {
	config  *Config
	profile sdr.Profile
	runID   string

	journal storage.Journal
	logger  *slog.Logger
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(config *Config, profile sdr.Profile, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	runID := uuid.NewString()

	o := Orchestrator{
		config:  config,
		profile: profile,
		runID:   runID,
		logger:  logger.With(slog.String("run", runID)),
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// RunID returns the unique identifier of this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run configures drv and streams spectra until ctx is done. drv is closed
// on return.
func (o *Orchestrator) Run(ctx context.Context, drv sdr.Driver) (err error) {
	var (
		sessionID int64
		options   = []func(*sdr.Controller){sdr.WithControllerLogger(o.logger)}
	)

	if o.journal != nil {
		if sessionID, err = o.journal.CreateSession(ctx, o.runID, o.profile.Type.String(), drv.Name(), o.config); err != nil {
			_ = drv.Close()
			return fmt.Errorf("creating session: %w", err)
		}
		defer o.endSession(sessionID)

		options = append(options, sdr.WithObserver(storage.Recorder(o.journal, sessionID, o.logger)))
	}

	ctrl, err := sdr.NewController(drv, o.profile, o.config.Receiver.Settings(), options...)
	if err != nil {
		_ = drv.Close()
		return fmt.Errorf("configuring receiver: %w", err)
	}
	defer func() {
		if cErr := ctrl.Close(); cErr != nil {
			o.logger.Warn("failed to close receiver", slog.String("error", cErr.Error()))
		}
	}()

	pusher, err := createPublisher(ctx, &o.config.Publish, o.config.Pipeline.FFTSize, o.logger)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer func() {
		if cErr := pusher.Close(); cErr != nil {
			o.logger.Warn("failed to close publisher", slog.String("error", cErr.Error()))
		}
	}()

	p, err := pipeline.New(ctrl, pusher, o.config.Pipeline,
		pipeline.WithLogger(o.logger),
		pipeline.WithDataAddress(transport.LocalAddress(o.config.Publish.Port)))
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.Run(gctx)
	})

	if o.config.Control.Enabled {
		srv := createServer(ctrl, p, o.logger)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, o.config.Control.Listen)
		})
	}

	return g.Wait()
}

func (o *Orchestrator) endSession(sessionID int64) {
	// The run context is already done here.
	ctx := context.Background()
	if err := o.journal.EndSession(ctx, sessionID); err != nil {
		o.logger.Error("failed to end session", slog.String("error", err.Error()), slog.Int64("session", sessionID))
	}
}

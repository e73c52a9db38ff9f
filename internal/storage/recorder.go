package storage

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
)

const recordTimeout = 5 * time.Second

// Recorder returns an sdr.Observer journaling every accepted control change
// of the session. Failures are logged and never reach the control surface.
func Recorder(j Journal, sessionID int64, logger *slog.Logger) sdr.Observer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(c sdr.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := j.RecordChange(ctx, sessionID, c); err != nil {
			logger.Error("failed to journal control change",
				slog.String("error", err.Error()),
				slog.String("parameter", c.Parameter),
				slog.Uint64("generation", c.Generation))
		}
	}
}

package storage

import (
	"context"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
)

// Journal records receiver sessions and the control changes applied during
// them. Spectra are never stored.
type Journal interface {
	// CreateSession opens a session for one pipeline run and returns its ID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - runID: Unique identifier of the pipeline run
	//   - receiverType: Receiver type tag (e.g., "rtl", "uhd")
	//   - driver: Name of the driver serving the receiver
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, runID, receiverType, driver string, config any) (sessionID int64, err error)

	// EndSession stamps the session stop time.
	EndSession(ctx context.Context, sessionID int64) error

	// Session retrieves a session by its ID. It returns ErrNotFound when
	// there is no such session.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// RecordChange stores an accepted control change.
	RecordChange(ctx context.Context, sessionID int64, c sdr.Change) error

	// Changes returns the control changes of a session ordered by generation.
	Changes(ctx context.Context, sessionID int64) ([]*ControlChange, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}

package storage

import (
	"database/sql"
	"time"
)

// Session is one pipeline run.
type Session struct {
	ID           int64
	RunID        string
	ReceiverType string
	Driver       string
	StartedAt    time.Time
	StoppedAt    sql.NullTime
	Config       sql.NullString
}

// ControlChange is one accepted receiver setting change.
type ControlChange struct {
	ID         int64
	SessionID  int64
	Generation uint64
	Parameter  string
	Value      float64
	ChangedAt  time.Time
}

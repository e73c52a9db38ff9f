package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

// toNullString encodes an optional session configuration.
func toNullString(config any) (sql.NullString, error) {
	switch v := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: v, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(v), Valid: true}, nil
	default:
		p, err := json.Marshal(v)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
		}
		return sql.NullString{String: string(p), Valid: true}, nil
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.RunID, &s.ReceiverType, &s.Driver, &s.StartedAt, &s.StoppedAt, &s.Config); err != nil {
		return nil, err
	}
	s.StartedAt = s.StartedAt.UTC()
	if s.StoppedAt.Valid {
		s.StoppedAt.Time = s.StoppedAt.Time.UTC()
	}
	return &s, nil
}

func scanChange(row scanner) (*ControlChange, error) {
	var (
		c   ControlChange
		gen int64
	)
	if err := row.Scan(&c.ID, &c.SessionID, &gen, &c.Parameter, &c.Value, &c.ChangedAt); err != nil {
		return nil, err
	}
	c.Generation = uint64(gen)
	c.ChangedAt = c.ChangedAt.UTC()
	return &c, nil
}

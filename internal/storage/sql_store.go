package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roman-kulish/spectrum-relay/internal/sdr"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQLStore is a Journal backed by a database/sql driver. The write
// connection is opened, and the schema applied, on first use.
type SQLStore struct {
	dialect string
	schema  string

	openWrite func() (*sql.DB, error)
	openRead  func() (*sql.DB, error) // nil shares the write connection

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error

	now func() time.Time
}

var _ Journal = (*SQLStore)(nil)

// Dialect returns the database flavour, "sqlite3" or "mysql".
func (s *SQLStore) Dialect() string {
	return s.dialect
}

func (s *SQLStore) getWriteDB(ctx context.Context) (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := s.openWrite()
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		for _, stmt := range statements(s.schema) {
			if _, err = db.ExecContext(ctx, stmt); err != nil {
				_ = db.Close()
				s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
				return
			}
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SQLStore) getReadDB(ctx context.Context) (*sql.DB, error) {
	// The schema must exist before a read-only connection can see it.
	wdb, err := s.getWriteDB(ctx)
	if err != nil {
		return nil, err
	}
	if s.openRead == nil {
		return wdb, nil
	}

	s.readDBOnce.Do(func() {
		db, err := s.openRead()
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SQLStore) CreateSession(ctx context.Context, runID, receiverType, driver string, config any) (sessionID int64, err error) {
	configData, err := toNullString(config)
	if err != nil {
		return 0, err
	}

	db, err := s.getWriteDB(ctx)
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, runID, receiverType, driver, s.now().UTC(), configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SQLStore) EndSession(ctx context.Context, sessionID int64) error {
	db, err := s.getWriteDB(ctx)
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	result, err := db.ExecContext(ctx, updateSessionStopSQL, s.now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}

	return nil
}

func (s *SQLStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB(ctx)
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	session, err = scanSession(db.QueryRowContext(ctx, selectSessionSQL, id))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	return session, nil
}

func (s *SQLStore) Sessions(ctx context.Context) (sessions []*Session, err error) {
	db, err := s.getReadDB(ctx)
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess *Session
		if sess, err = scanSession(rows); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating sessions: %w", err)
	}
	return
}

func (s *SQLStore) RecordChange(ctx context.Context, sessionID int64, c sdr.Change) (err error) {
	db, err := s.getWriteDB(ctx)
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	changedAt := c.Time
	if changedAt.IsZero() {
		changedAt = s.now()
	}

	if _, err = tx.ExecContext(ctx, insertChangeSQL, sessionID, int64(c.Generation), c.Parameter, c.Value, changedAt.UTC()); err != nil {
		return fmt.Errorf("inserting control change: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return
}

func (s *SQLStore) Changes(ctx context.Context, sessionID int64) (changes []*ControlChange, err error) {
	db, err := s.getReadDB(ctx)
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectChangesSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying control changes: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var c *ControlChange
		if c, err = scanChange(rows); err != nil {
			err = fmt.Errorf("scanning control change: %w", err)
			return
		}
		changes = append(changes, c)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating control changes: %w", err)
	}
	return
}

// Close closes the database connections
func (s *SQLStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if s.writeDB != nil {
			errs = append(errs, s.writeDB.Close())
			s.writeDB = nil
		}

		if s.readDB != nil {
			errs = append(errs, s.readDB.Close())
			s.readDB = nil
		}

		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}

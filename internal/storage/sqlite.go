package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// NewSqliteStore creates a journal in the Sqlite database at dbPath. The
// file is created on first write.
func NewSqliteStore(dbPath string) *SQLStore {
	return &SQLStore{
		dialect: "sqlite3",
		schema:  sqliteSchemaSQL,
		openWrite: func() (*sql.DB, error) {
			db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
			if err != nil {
				return nil, err
			}
			db.SetMaxOpenConns(1) // single writer
			return db, nil
		},
		openRead: func() (*sql.DB, error) {
			return sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", dbPath, "mode=ro"))
		},
		now: time.Now,
	}
}

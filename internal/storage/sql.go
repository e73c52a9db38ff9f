package storage

import (
	_ "embed"
	"strings"
)

var (
	//go:embed schema_sqlite.sql
	sqliteSchemaSQL string

	//go:embed schema_mysql.sql
	mysqlSchemaSQL string
)

const (
	insertSessionSQL = `
INSERT INTO sessions (run_id,
                      receiver_type,
                      driver,
                      started_at,
                      config)
VALUES (?, ?, ?, ?, ?)`

	updateSessionStopSQL = `
UPDATE sessions
SET stopped_at = ?
WHERE id = ?`

	selectSessionSQL = `
SELECT id,
       run_id,
       receiver_type,
       driver,
       started_at,
       stopped_at,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       run_id,
       receiver_type,
       driver,
       started_at,
       stopped_at,
       config
FROM sessions
ORDER BY started_at, id`

	insertChangeSQL = `
INSERT INTO control_changes (session_id,
                             generation,
                             parameter,
                             value,
                             changed_at)
VALUES (?, ?, ?, ?, ?)`

	selectChangesSQL = `
SELECT id,
       session_id,
       generation,
       parameter,
       value,
       changed_at
FROM control_changes
WHERE session_id = ?
ORDER BY generation, id`
)

// statements splits a schema script into single statements.
func statements(script string) []string {
	var stmts []string
	for _, s := range strings.Split(script, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

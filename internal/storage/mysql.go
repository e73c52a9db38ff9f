package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLConfig locates a MySQL journal database.
type MySQLConfig struct {
	Server       string `yaml:"server"`       // TCP endpoint, host:port
	User         string `yaml:"user"`         // DB user
	PasswordFile string `yaml:"passwordFile"` // file holding the user password
	DBName       string `yaml:"dbName"`
}

// DSN builds the driver data source name, reading the password file.
func (c MySQLConfig) DSN() (string, error) {
	var pass string
	if c.PasswordFile != "" {
		p, err := os.ReadFile(c.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("reading MySQL password file %q: %w", c.PasswordFile, err)
		}
		pass = strings.TrimSpace(string(p))
	}

	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = c.Server
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	return cfg.FormatDSN(), nil
}

// NewMySQLStore creates a journal in a MySQL database. The connection is
// opened on first use.
func NewMySQLStore(c MySQLConfig) (*SQLStore, error) {
	dsn, err := c.DSN()
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		dialect: "mysql",
		schema:  mysqlSchemaSQL,
		openWrite: func() (*sql.DB, error) {
			db, err := sql.Open("mysql", dsn)
			if err != nil {
				return nil, err
			}
			db.SetConnMaxLifetime(3 * time.Minute)
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(10)
			return db, nil
		},
		now: time.Now,
	}, nil
}

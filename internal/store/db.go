package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Config selects the database, Url takes precedence over File.
type Config struct {
	// File is a local sqlite database path.
	File string `json:"file"`
	// Url is a remote libsql database (libsql://, http:// or https://).
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func isRemote(dsn string) bool {
	lowered := strings.ToLower(dsn)
	for _, scheme := range []string{"libsql://", "http://", "https://"} {
		if strings.HasPrefix(lowered, scheme) {
			return true
		}
	}
	return false
}

// OpenDB opens the configured database and applies the schema.
func (c Config) OpenDB() (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch {
	case c.Url != "":
		db, err = openRemote(c.Url, c.AuthToken)
	case isRemote(c.File):
		db, err = openRemote(c.File, c.AuthToken)
	case c.File != "":
		db, err = openFile(c.File)
	default:
		return nil, wrapOpenDB(fmt.Errorf("neither a file nor a url was specified"))
	}
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	err = applySchema(db)
	if err != nil {
		db.Close()
		return nil, wrapOpenDB(err)
	}
	return db, nil
}

// applySchema runs the schema one statement at a time, remote libsql
// connections do not accept multiple statements per call.
func applySchema(db *sql.DB) error {
	for _, statement := range strings.Split(Schema, ";") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		_, err := db.Exec(statement)
		if err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func openRemote(dsn, authToken string) (*sql.DB, error) {
	if authToken != "" {
		values := url.Values{}
		values.Add("authToken", authToken)
		dsn = dsn + "?" + values.Encode()
	}
	return sql.Open("libsql", dsn)
}

func openFile(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// sqlite only allows a single writer, see
	// https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

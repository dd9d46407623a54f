// Package sqlite implements the SQLite engine adapter on modernc.org/sqlite
// through database/sql. The database file is always opened read-only; every
// call opens a fresh handle and closes it before returning.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/dbplane/dbplane/internal/engine"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct {
	log *engine.DatabaseLogger
}

// NewAdapter creates a SQLite adapter.
func NewAdapter(log *engine.DatabaseLogger) *Adapter {
	return &Adapter{log: log}
}

// Engine returns the canonical engine identifier.
func (a *Adapter) Engine() dbcapabilities.Engine {
	return dbcapabilities.SQLite
}

// Capabilities returns the capability metadata for SQLite.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.SQLite)
}

// dsn builds a read-only file DSN.
func dsn(config adapter.ConnectionConfig) string {
	return "file:" + config.FilePath + "?mode=ro"
}

// checkEngine rejects descriptors built for another adapter before the file
// is opened.
func (a *Adapter) checkEngine(config adapter.ConnectionConfig, operation string) error {
	if config.Engine != dbcapabilities.SQLite {
		return adapter.NewInvalidInput(dbcapabilities.SQLite, operation,
			fmt.Sprintf("Expected SQLite engine, got '%s'", config.Engine))
	}
	return nil
}

func (a *Adapter) logCtx(config adapter.ConnectionConfig, operation string) engine.LogContext {
	return engine.LogContext{
		Engine:    dbcapabilities.SQLite,
		File:      config.FilePath,
		Operation: operation,
		TraceID:   engine.NewTraceID(),
	}
}

// connect opens one read-only handle for one call.
func (a *Adapter) connect(ctx context.Context, config adapter.ConnectionConfig, lctx engine.LogContext) (*sql.DB, error) {
	a.log.LogConnectionAttempt(lctx)
	db, err := sql.Open("sqlite", dsn(config))
	if err != nil {
		a.log.LogConnectionFailure(lctx, err)
		return nil, adapter.NewConnectionError(dbcapabilities.SQLite, fmt.Errorf("error opening database file: %v", err))
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		a.log.LogConnectionFailure(lctx, err)
		return nil, adapter.NewConnectionError(dbcapabilities.SQLite, fmt.Errorf("error opening database file: %v", err))
	}
	return db, nil
}

// ValidateConnection opens the file, reads the library version, and closes
// it again. SQLite has no user concept.
func (a *Adapter) ValidateConnection(ctx context.Context, config adapter.ConnectionConfig) (*adapter.ConnectionInfo, error) {
	if err := a.checkEngine(config, "validate_connection"); err != nil {
		return nil, err
	}
	lctx := a.logCtx(config, "validate_connection")
	db, err := a.connect(ctx, config, lctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var version string
	if err := db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.SQLite, "validate_connection",
			fmt.Errorf("error fetching library version: %v", err))
	}

	return &adapter.ConnectionInfo{
		DatabaseVersion:   version,
		ServerInfo:        "SQLite " + version,
		ConnectedDatabase: filepath.Base(config.FilePath),
		User:              "N/A",
	}, nil
}

// quoteIdent renders an identifier for interpolation into PRAGMA calls,
// which do not take bound parameters.
func quoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}

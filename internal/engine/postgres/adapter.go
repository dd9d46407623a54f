// Package postgres implements the PostgreSQL engine adapter on pgx. Every
// call dials a fresh connection and closes it before returning.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dbplane/dbplane/internal/engine"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Adapter implements adapter.Adapter for PostgreSQL.
type Adapter struct {
	log *engine.DatabaseLogger
}

// NewAdapter creates a PostgreSQL adapter.
func NewAdapter(log *engine.DatabaseLogger) *Adapter {
	return &Adapter{log: log}
}

// Engine returns the canonical engine identifier.
func (a *Adapter) Engine() dbcapabilities.Engine {
	return dbcapabilities.PostgreSQL
}

// Capabilities returns the capability metadata for PostgreSQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.PostgreSQL)
}

// connString builds the pgx connection URL. Credentials are URL-escaped so
// special characters survive; the string itself never appears in errors.
func connString(config adapter.ConnectionConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=prefer",
		url.QueryEscape(config.User),
		url.QueryEscape(config.Password),
		config.Host,
		config.Port,
		url.PathEscape(config.Database))
}

// checkEngine rejects descriptors built for another adapter before anything
// is dialed.
func (a *Adapter) checkEngine(config adapter.ConnectionConfig, operation string) error {
	if config.Engine != dbcapabilities.PostgreSQL {
		return adapter.NewInvalidInput(dbcapabilities.PostgreSQL, operation,
			fmt.Sprintf("Expected PostgreSQL engine, got '%s'", config.Engine))
	}
	return nil
}

func (a *Adapter) logCtx(config adapter.ConnectionConfig, operation string) engine.LogContext {
	return engine.LogContext{
		Engine:    dbcapabilities.PostgreSQL,
		Host:      config.Host,
		Port:      config.Port,
		Database:  config.Database,
		Operation: operation,
		TraceID:   engine.NewTraceID(),
	}
}

// connect dials one connection for one call.
func (a *Adapter) connect(ctx context.Context, config adapter.ConnectionConfig, lctx engine.LogContext) (*pgx.Conn, error) {
	a.log.LogConnectionAttempt(lctx)
	conn, err := pgx.Connect(ctx, connString(config))
	if err != nil {
		a.log.LogConnectionFailure(lctx, err)
		return nil, adapter.NewConnectionError(dbcapabilities.PostgreSQL, fmt.Errorf("error connecting to database: %v", err))
	}
	return conn, nil
}

// ValidateConnection opens a connection, reads the server identity, and
// closes it again.
func (a *Adapter) ValidateConnection(ctx context.Context, config adapter.ConnectionConfig) (*adapter.ConnectionInfo, error) {
	if err := a.checkEngine(config, "validate_connection"); err != nil {
		return nil, err
	}
	lctx := a.logCtx(config, "validate_connection")
	conn, err := a.connect(ctx, config, lctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	var versionStr, database, user string
	err = conn.QueryRow(ctx, "SELECT version(), current_database(), current_user").
		Scan(&versionStr, &database, &user)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.PostgreSQL, "validate_connection",
			fmt.Errorf("error fetching server identity: %v", err))
	}

	return &adapter.ConnectionInfo{
		DatabaseVersion:   versionNumber(versionStr),
		ServerInfo:        versionStr,
		ConnectedDatabase: database,
		User:              user,
	}, nil
}

// versionNumber extracts the numeric version from a version() banner like
// "PostgreSQL 16.2 on x86_64-pc-linux-gnu".
func versionNumber(banner string) string {
	fields := strings.Fields(banner)
	if len(fields) >= 2 {
		return fields[1]
	}
	return banner
}

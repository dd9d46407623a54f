// Package mysql implements the MySQL/MariaDB engine adapter on
// go-sql-driver/mysql through database/sql. Every call dials a fresh
// connection and closes it before returning.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/dbplane/dbplane/internal/engine"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Adapter implements adapter.Adapter for MySQL and MariaDB.
type Adapter struct {
	log *engine.DatabaseLogger
}

// NewAdapter creates a MySQL adapter.
func NewAdapter(log *engine.DatabaseLogger) *Adapter {
	return &Adapter{log: log}
}

// Engine returns the canonical engine identifier.
func (a *Adapter) Engine() dbcapabilities.Engine {
	return dbcapabilities.MySQL
}

// Capabilities returns the capability metadata for MySQL.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MySQL)
}

// dsn builds the driver DSN. FormatDSN handles credential escaping; the
// string never appears in errors.
func dsn(config adapter.ConnectionConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = config.User
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	cfg.DBName = config.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// checkEngine rejects descriptors built for another adapter before anything
// is dialed.
func (a *Adapter) checkEngine(config adapter.ConnectionConfig, operation string) error {
	if config.Engine != dbcapabilities.MySQL {
		return adapter.NewInvalidInput(dbcapabilities.MySQL, operation,
			fmt.Sprintf("Expected MySQL engine, got '%s'", config.Engine))
	}
	return nil
}

func (a *Adapter) logCtx(config adapter.ConnectionConfig, operation string) engine.LogContext {
	return engine.LogContext{
		Engine:    dbcapabilities.MySQL,
		Host:      config.Host,
		Port:      config.Port,
		Database:  config.Database,
		Operation: operation,
		TraceID:   engine.NewTraceID(),
	}
}

// connect opens and pings one connection for one call.
func (a *Adapter) connect(ctx context.Context, config adapter.ConnectionConfig, lctx engine.LogContext) (*sql.DB, error) {
	a.log.LogConnectionAttempt(lctx)
	db, err := sql.Open("mysql", dsn(config))
	if err != nil {
		a.log.LogConnectionFailure(lctx, err)
		return nil, adapter.NewConnectionError(dbcapabilities.MySQL, fmt.Errorf("error opening connection: %v", err))
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		a.log.LogConnectionFailure(lctx, err)
		return nil, adapter.NewConnectionError(dbcapabilities.MySQL, fmt.Errorf("error connecting to database: %v", err))
	}
	return db, nil
}

// ValidateConnection opens a connection, reads the server identity, and
// closes it again.
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

	var version, database, user string
	err = db.QueryRowContext(ctx, "SELECT VERSION(), IFNULL(DATABASE(), ''), CURRENT_USER()").
		Scan(&version, &database, &user)
	if err != nil {
		return nil, adapter.NewQueryError(dbcapabilities.MySQL, "validate_connection",
			fmt.Errorf("error fetching server identity: %v", err))
	}

	number, serverInfo := parseVersion(version)
	return &adapter.ConnectionInfo{
		DatabaseVersion:   number,
		ServerInfo:        serverInfo,
		ConnectedDatabase: database,
		User:              user,
	}, nil
}

// parseVersion splits a VERSION() string into the bare number and a vendor
// banner. MariaDB reports versions like "10.11.6-MariaDB-1:10.11.6+maria".
func parseVersion(version string) (string, string) {
	if strings.Contains(strings.ToUpper(version), "MARIADB") {
		number := strings.SplitN(version, "-", 2)[0]
		return number, "MariaDB " + number
	}
	number := strings.SplitN(version, "-", 2)[0]
	return number, "MySQL " + number
}

// effectiveSchema resolves the schema to introspect: the request filter if
// set, otherwise the connected database.
func effectiveSchema(ctx context.Context, db *sql.DB, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	var schema sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&schema); err != nil {
		return "", adapter.NewQueryError(dbcapabilities.MySQL, "introspect",
			fmt.Errorf("error resolving current schema: %v", err))
	}
	if !schema.Valid || schema.String == "" {
		return "", adapter.NewInvalidInput(dbcapabilities.MySQL, "introspect",
			"no schema selected; provide a schema or connect to a database")
	}
	return schema.String, nil
}

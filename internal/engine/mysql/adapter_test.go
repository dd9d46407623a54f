package mysql

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

func validTestConfig() adapter.ConnectionConfig {
	return adapter.ConnectionConfig{
		Engine:   dbcapabilities.MySQL,
		Host:     "localhost",
		Port:     3306,
		User:     "app",
		Database: "appdb",
	}
}

func TestParseVersion(t *testing.T) {
	number, info := parseVersion("8.0.36")
	assert.Equal(t, "8.0.36", number)
	assert.Equal(t, "MySQL 8.0.36", info)

	number, info = parseVersion("10.11.6-MariaDB-1:10.11.6+maria~ubu2204")
	assert.Equal(t, "10.11.6", number)
	assert.Equal(t, "MariaDB 10.11.6", info)
}

func TestDSN(t *testing.T) {
	cfg := validTestConfig()
	cfg.Password = "s3cret"
	s := dsn(cfg)
	assert.Contains(t, s, "tcp(localhost:3306)")
	assert.Contains(t, s, "/appdb")
	assert.Contains(t, s, "parseTime=true")
}

func TestNormalizeValue(t *testing.T) {
	t.Run("temporal formats by declared type", func(t *testing.T) {
		ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		assert.Equal(t, "2026-03-14", normalizeValue("DATE", ts))
		assert.Equal(t, "2026-03-14T09:26:53", normalizeValue("DATETIME", ts))
		assert.Equal(t, "2026-03-14T09:26:53", normalizeValue("TIMESTAMP", ts))
	})

	t.Run("nan and inf collapse to null", func(t *testing.T) {
		assert.Nil(t, normalizeValue("DOUBLE", math.NaN()))
		assert.Nil(t, normalizeValue("FLOAT", float32(math.Inf(-1))))
		assert.Equal(t, 2.5, normalizeValue("DOUBLE", 2.5))
	})

	t.Run("decimal is exact", func(t *testing.T) {
		assert.Equal(t, "12.34", normalizeValue("DECIMAL", []byte("12.3400")))
	})

	t.Run("json passes through", func(t *testing.T) {
		got := normalizeValue("JSON", []byte(`{"k": "v"}`))
		assert.Equal(t, map[string]interface{}{"k": "v"}, got)
	})

	t.Run("text bytes pass as text binary as base64", func(t *testing.T) {
		assert.Equal(t, "hello", normalizeValue("VARCHAR", []byte("hello")))
		assert.Equal(t, "aGVsbG8=", normalizeValue("BLOB", []byte("hello")))
		assert.Equal(t, "/v8=", normalizeValue("VARCHAR", []byte{0xfe, 0xff}))
	})

	t.Run("null stays null", func(t *testing.T) {
		assert.Nil(t, normalizeValue("VARCHAR", nil))
	})
}

func TestAdapterIdentity(t *testing.T) {
	a := NewAdapter(nil)
	assert.Equal(t, dbcapabilities.MySQL, a.Engine())
	assert.Equal(t, "MySQL", a.Capabilities().Name)
}

func TestRejectsForeignEngineConfig(t *testing.T) {
	// no server is listening; INVALID_INPUT proves nothing was dialed
	a := NewAdapter(nil)
	cfg := validTestConfig()
	cfg.Engine = dbcapabilities.PostgreSQL

	_, err := a.ValidateConnection(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, adapter.CodeInvalidInput, adapter.CodeOf(err))
	assert.Contains(t, err.Error(), "Expected MySQL engine")

	_, err = a.Introspect(context.Background(), cfg, adapter.IntrospectRequest{Op: adapter.ListTables})
	require.Error(t, err)
	assert.Equal(t, adapter.CodeInvalidInput, adapter.CodeOf(err))

	_, err = a.Execute(context.Background(), cfg, "SELECT 1", adapter.DefaultCapabilities())
	require.Error(t, err)
	assert.Equal(t, adapter.CodeInvalidInput, adapter.CodeOf(err))
}

func TestExecuteRejectsNonReadsBeforeDialing(t *testing.T) {
	a := NewAdapter(nil)
	for _, sql := range []string{
		"UPDATE users SET seen = 1",
		"LOCK TABLES users WRITE",
		"REPLACE INTO users VALUES (1)",
	} {
		_, err := a.Execute(context.Background(), validTestConfig(), sql, adapter.DefaultCapabilities())
		require.Error(t, err, sql)
		assert.Equal(t, adapter.CodeCapabilityViolation, adapter.CodeOf(err), sql)
	}
}

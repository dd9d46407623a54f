package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionConfigValidate(t *testing.T) {
	t.Run("postgres requires host user database", func(t *testing.T) {
		cfg := ConnectionConfig{Engine: dbcapabilities.PostgreSQL}
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Equal(t, CodeInvalidInput, CodeOf(err))
		assert.Contains(t, err.Error(), "host")
	})

	t.Run("missing fields report invalid input", func(t *testing.T) {
		for _, cfg := range []ConnectionConfig{
			{Engine: dbcapabilities.PostgreSQL, Host: "localhost"},
			{Engine: dbcapabilities.MySQL, Host: "localhost", User: "app"},
			{Engine: dbcapabilities.SQLite},
		} {
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, CodeInvalidInput, CodeOf(err))
		}
	})

	t.Run("port defaults from capability", func(t *testing.T) {
		cfg := ConnectionConfig{
			Engine:   dbcapabilities.PostgreSQL,
			Host:     "localhost",
			User:     "app",
			Database: "appdb",
		}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 5432, cfg.Port)

		cfg = ConnectionConfig{
			Engine:   dbcapabilities.MySQL,
			Host:     "localhost",
			User:     "app",
			Database: "appdb",
		}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, 3306, cfg.Port)
	})

	t.Run("sqlite requires file path and rejects network fields", func(t *testing.T) {
		cfg := ConnectionConfig{Engine: dbcapabilities.SQLite}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file")

		cfg = ConnectionConfig{Engine: dbcapabilities.SQLite, FilePath: "app.db", Host: "localhost"}
		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "file-based")

		cfg = ConnectionConfig{Engine: dbcapabilities.SQLite, FilePath: "app.db"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("server engines reject file path", func(t *testing.T) {
		cfg := ConnectionConfig{
			Engine:   dbcapabilities.MySQL,
			Host:     "localhost",
			User:     "app",
			Database: "appdb",
			FilePath: "app.db",
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("unknown engine is invalid input", func(t *testing.T) {
		cfg := ConnectionConfig{Engine: "mongodb"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Equal(t, CodeInvalidInput, CodeOf(err))
	})
}

func TestCapabilitiesNormalize(t *testing.T) {
	caps := Capabilities{}.Normalize()
	assert.Equal(t, DefaultMaxRows, caps.MaxRows)
	assert.Equal(t, DefaultTimeout, caps.Timeout)

	caps = Capabilities{MaxRows: -5, Timeout: -time.Second}.Normalize()
	assert.Equal(t, DefaultMaxRows, caps.MaxRows)
	assert.Equal(t, DefaultTimeout, caps.Timeout)

	caps = Capabilities{MaxRows: 10, Timeout: time.Second}.Normalize()
	assert.Equal(t, 10, caps.MaxRows)
	assert.Equal(t, time.Second, caps.Timeout)
}

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStoreAt(
		filepath.Join(dir, "local", "config.json"),
		filepath.Join(dir, "global", "connections.json"),
		nil,
	)
}

func pgProfile(host string) Profile {
	return Profile{
		Engine:      dbcapabilities.PostgreSQL,
		Host:        host,
		Port:        5432,
		User:        "app",
		Database:    "appdb",
		PasswordEnv: "DBPLANE_TEST_PASSWORD",
	}
}

func TestProfileResolve(t *testing.T) {
	t.Run("password comes from the environment", func(t *testing.T) {
		t.Setenv("DBPLANE_TEST_PASSWORD", "s3cret")
		cfg, err := pgProfile("localhost").Resolve()
		require.NoError(t, err)
		assert.Equal(t, "s3cret", cfg.Password)
	})

	t.Run("unset variable is a configuration error", func(t *testing.T) {
		p := pgProfile("localhost")
		p.PasswordEnv = "DBPLANE_TEST_PASSWORD_UNSET"
		_, err := p.Resolve()
		require.Error(t, err)
		assert.Equal(t, adapter.CodeConfigError, adapter.CodeOf(err))
		assert.Contains(t, err.Error(), "DBPLANE_TEST_PASSWORD_UNSET")
	})

	t.Run("no password env means empty password", func(t *testing.T) {
		p := Profile{Engine: dbcapabilities.SQLite, FilePath: "app.db"}
		cfg, err := p.Resolve()
		require.NoError(t, err)
		assert.Empty(t, cfg.Password)
	})
}

func TestSaveAndLookup(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save("dev", pgProfile("dev.internal"), false, false))
	require.NoError(t, s.Save("prod", pgProfile("prod.internal"), true, false))

	dev, err := s.Lookup("dev")
	require.NoError(t, err)
	assert.Equal(t, "dev.internal", dev.Host)

	prod, err := s.Lookup("prod")
	require.NoError(t, err)
	assert.Equal(t, "prod.internal", prod.Host)

	_, err = s.Lookup("ghost")
	require.Error(t, err)
	assert.Equal(t, adapter.CodeConfigError, adapter.CodeOf(err))
}

func TestCurrentSelection(t *testing.T) {
	t.Run("first saved profile becomes current", func(t *testing.T) {
		s := testStore(t)
		require.NoError(t, s.Save("dev", pgProfile("dev.internal"), false, false))
		name, profile, err := s.LoadCurrent()
		require.NoError(t, err)
		assert.Equal(t, "dev", name)
		assert.Equal(t, "dev.internal", profile.Host)
	})

	t.Run("set-current switches", func(t *testing.T) {
		s := testStore(t)
		require.NoError(t, s.Save("a", pgProfile("a.internal"), false, false))
		require.NoError(t, s.Save("b", pgProfile("b.internal"), false, true))
		name, _, err := s.LoadCurrent()
		require.NoError(t, err)
		assert.Equal(t, "b", name)
	})

	t.Run("local registry shadows global for implicit current", func(t *testing.T) {
		s := testStore(t)
		require.NoError(t, s.Save("global-only", pgProfile("g.internal"), true, true))
		require.NoError(t, s.Save("local-one", pgProfile("l.internal"), false, true))
		name, profile, err := s.LoadCurrent()
		require.NoError(t, err)
		assert.Equal(t, "local-one", name)
		assert.Equal(t, "l.internal", profile.Host)
	})

	t.Run("no registry at all is an error", func(t *testing.T) {
		s := testStore(t)
		_, _, err := s.LoadCurrent()
		require.Error(t, err)
		assert.Equal(t, adapter.CodeConfigError, adapter.CodeOf(err))
	})
}

func TestLoadMergedPrecedence(t *testing.T) {
	s := testStore(t)
	global := pgProfile("global.internal")
	local := pgProfile("local.internal")
	require.NoError(t, s.Save("shared", global, true, false))
	require.NoError(t, s.Save("shared", local, false, false))

	reg, err := s.LoadMerged()
	require.NoError(t, err)
	assert.Equal(t, "local.internal", reg.Connections["shared"].Host)
}

func TestListSkipsUnresolvable(t *testing.T) {
	t.Setenv("DBPLANE_TEST_PASSWORD", "s3cret")
	s := testStore(t)
	require.NoError(t, s.Save("good", pgProfile("good.internal"), false, false))
	bad := pgProfile("bad.internal")
	bad.PasswordEnv = "DBPLANE_TEST_PASSWORD_UNSET"
	require.NoError(t, s.Save("bad", bad, false, false))

	listed, current, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, "good", current)
	assert.Contains(t, listed, "good")
	assert.NotContains(t, listed, "bad")
}

package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter lets registry tests control adapter behavior per call.
type stubAdapter struct {
	engine   dbcapabilities.Engine
	validate func(context.Context, ConnectionConfig) (*ConnectionInfo, error)
	execute  func(context.Context, ConnectionConfig, string, Capabilities) (*QueryResult, error)
}

func (s *stubAdapter) Engine() dbcapabilities.Engine { return s.engine }

func (s *stubAdapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(s.engine)
}

func (s *stubAdapter) ValidateConnection(ctx context.Context, cfg ConnectionConfig) (*ConnectionInfo, error) {
	return s.validate(ctx, cfg)
}

func (s *stubAdapter) Introspect(ctx context.Context, cfg ConnectionConfig, req IntrospectRequest) (*IntrospectResult, error) {
	return nil, ErrInvalidInput
}

func (s *stubAdapter) Execute(ctx context.Context, cfg ConnectionConfig, sql string, caps Capabilities) (*QueryResult, error) {
	return s.execute(ctx, cfg, sql, caps)
}

func validConfig() ConnectionConfig {
	return ConnectionConfig{
		Engine:   dbcapabilities.PostgreSQL,
		Host:     "localhost",
		User:     "app",
		Database: "appdb",
	}
}

func TestRegistryDispatch(t *testing.T) {
	t.Run("unknown engine returns invalid input", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.GetByName("mongodb")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAdapterNotFound))
		assert.Equal(t, CodeInvalidInput, CodeOf(err))
	})

	t.Run("alias resolves to registered adapter", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubAdapter{engine: dbcapabilities.PostgreSQL})
		a, err := r.GetByName("postgresql")
		require.NoError(t, err)
		assert.Equal(t, dbcapabilities.PostgreSQL, a.Engine())
	})

	t.Run("invalid config is rejected before dispatch", func(t *testing.T) {
		r := NewRegistry()
		called := false
		r.Register(&stubAdapter{
			engine: dbcapabilities.PostgreSQL,
			validate: func(context.Context, ConnectionConfig) (*ConnectionInfo, error) {
				called = true
				return nil, nil
			},
		})
		_, err := r.ValidateConnection(context.Background(), ConnectionConfig{Engine: dbcapabilities.PostgreSQL})
		require.Error(t, err)
		assert.Equal(t, CodeInvalidInput, CodeOf(err))
		assert.False(t, called)
	})

	t.Run("adapter panic is recovered as engine error", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubAdapter{
			engine: dbcapabilities.PostgreSQL,
			execute: func(context.Context, ConnectionConfig, string, Capabilities) (*QueryResult, error) {
				panic("driver blew up")
			},
		})
		_, err := r.Execute(context.Background(), validConfig(), "SELECT 1", DefaultCapabilities())
		require.Error(t, err)
		assert.Equal(t, CodeEngineError, CodeOf(err))
		assert.Contains(t, err.Error(), "driver blew up")
	})

	t.Run("caps are normalized before the adapter sees them", func(t *testing.T) {
		r := NewRegistry()
		var got Capabilities
		r.Register(&stubAdapter{
			engine: dbcapabilities.PostgreSQL,
			execute: func(_ context.Context, _ ConnectionConfig, _ string, caps Capabilities) (*QueryResult, error) {
				got = caps
				return &QueryResult{}, nil
			},
		})
		_, err := r.Execute(context.Background(), validConfig(), "SELECT 1", Capabilities{})
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxRows, got.MaxRows)
		assert.Equal(t, DefaultTimeout, got.Timeout)
	})
}

package adapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
	"github.com/stretchr/testify/assert"
)

func TestDatabaseErrorMatching(t *testing.T) {
	t.Run("sentinel matches through code", func(t *testing.T) {
		err := NewConnectionError(dbcapabilities.PostgreSQL, errors.New("dial tcp: refused"))
		assert.True(t, errors.Is(err, ErrConnectionFailed))
		assert.False(t, errors.Is(err, ErrQueryFailed))
	})

	t.Run("cause chain is preserved", func(t *testing.T) {
		cause := errors.New("relation does not exist")
		err := NewQueryError(dbcapabilities.PostgreSQL, "execute", cause)
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, cause, errors.Unwrap(err))
	})

	t.Run("wrapped errors keep outer code", func(t *testing.T) {
		inner := NewInvalidInput(dbcapabilities.SQLite, "introspect", "SQLite does not support schemas")
		outer := WrapError(dbcapabilities.SQLite, "introspect", CodeEngineError, inner)
		assert.Equal(t, CodeInvalidInput, CodeOf(outer), "WrapError must not double-wrap")
	})
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{NewCapabilityViolation(dbcapabilities.MySQL, "rejected"), CodeCapabilityViolation},
		{NewConnectionError(dbcapabilities.MySQL, errors.New("refused")), CodeConnectionFailed},
		{NewQueryError(dbcapabilities.MySQL, "execute", errors.New("syntax")), CodeQueryFailed},
		{NewInvalidInput(dbcapabilities.SQLite, "introspect", "bad op"), CodeInvalidInput},
		{NewEngineError(dbcapabilities.PostgreSQL, "execute", errors.New("boom")), CodeEngineError},
		{NewConfigurationError(dbcapabilities.PostgreSQL, "host", "missing"), CodeConfigError},
		{fmt.Errorf("wrapped: %w", ErrInvalidInput), CodeInvalidInput},
		{errors.New("no taxonomy"), CodeEngineError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, CodeOf(tc.err), tc.err.Error())
	}
}

func TestErrorMessagesCarryNoSecrets(t *testing.T) {
	err := NewConnectionError(dbcapabilities.PostgreSQL, errors.New("authentication failed for user \"app\""))
	assert.NotContains(t, err.Error(), "password")
	assert.NotContains(t, err.Error(), "s3cret")
}

package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

func TestSuccessEnvelope(t *testing.T) {
	result := &adapter.QueryResult{RowsReturned: 2, ExecutionMS: 7}
	env := Success(dbcapabilities.PostgreSQL, "query", result, QueryMeta(result))

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, env))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.Equal(t, "postgres", decoded["engine"])
	assert.Equal(t, "query", decoded["command"])
	meta := decoded["meta"].(map[string]interface{})
	assert.Equal(t, float64(7), meta["execution_ms"])
	assert.Equal(t, float64(2), meta["rows_returned"])
}

func TestFailureEnvelope(t *testing.T) {
	err := adapter.NewCapabilityViolation(dbcapabilities.SQLite, "rejected")
	env := Failure(dbcapabilities.SQLite, "query", err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, env))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, false, decoded["ok"])
	body := decoded["error"].(map[string]interface{})
	assert.Equal(t, "CAPABILITY_VIOLATION", body["code"])
	assert.Contains(t, body["message"], "rejected")
}

func TestFailureEnvelopeUnknownError(t *testing.T) {
	env := Failure(dbcapabilities.MySQL, "introspect", errors.New("something odd"))
	assert.Equal(t, adapter.CodeEngineError, env.Error.Code)
}

func TestJSONSafety(t *testing.T) {
	// a result that went through value normalization must marshal cleanly
	result := &adapter.QueryResult{
		Columns: []string{"a", "b", "c"},
		Rows:    [][]interface{}{{nil, "text", 1.5}},
	}
	_, err := json.Marshal(Success(dbcapabilities.SQLite, "query", result, nil))
	assert.NoError(t, err)
}

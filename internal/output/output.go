// Package output renders the JSON envelopes written to stdout. Every
// invocation produces exactly one envelope: success with data and metadata,
// or failure with a stable error code.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Meta carries per-call measurements.
type Meta struct {
	ExecutionMS  int64 `json:"execution_ms"`
	RowsReturned *int  `json:"rows_returned,omitempty"`
}

// SuccessEnvelope is the stdout shape of a completed operation.
type SuccessEnvelope struct {
	OK      bool                  `json:"ok"`
	Engine  dbcapabilities.Engine `json:"engine"`
	Command string                `json:"command"`
	Data    interface{}           `json:"data"`
	Meta    *Meta                 `json:"meta,omitempty"`
}

// ErrorBody is the machine-readable error payload.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope is the stdout shape of a failed operation.
type ErrorEnvelope struct {
	OK      bool                  `json:"ok"`
	Engine  dbcapabilities.Engine `json:"engine,omitempty"`
	Command string                `json:"command"`
	Error   ErrorBody             `json:"error"`
}

// Success builds a success envelope.
func Success(engine dbcapabilities.Engine, command string, data interface{}, meta *Meta) SuccessEnvelope {
	return SuccessEnvelope{OK: true, Engine: engine, Command: command, Data: data, Meta: meta}
}

// Failure builds an error envelope from a taxonomy error. Errors outside
// the taxonomy report ENGINE_ERROR.
func Failure(engine dbcapabilities.Engine, command string, err error) ErrorEnvelope {
	return ErrorEnvelope{
		OK:      false,
		Engine:  engine,
		Command: command,
		Error: ErrorBody{
			Code:    adapter.CodeOf(err),
			Message: err.Error(),
		},
	}
}

// QueryMeta derives envelope metadata from a query result.
func QueryMeta(result *adapter.QueryResult) *Meta {
	rows := result.RowsReturned
	return &Meta{ExecutionMS: result.ExecutionMS, RowsReturned: &rows}
}

// Write renders one envelope as a single JSON document.
func Write(w io.Writer, envelope interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(envelope); err != nil {
		return fmt.Errorf("error encoding envelope: %v", err)
	}
	return nil
}

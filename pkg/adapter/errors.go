package adapter

import (
	"errors"
	"fmt"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Machine-readable error codes surfaced in the output envelope.
const (
	CodeCapabilityViolation = "CAPABILITY_VIOLATION"
	CodeConnectionFailed    = "CONNECTION_FAILED"
	CodeQueryFailed         = "QUERY_FAILED"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeEngineError         = "ENGINE_ERROR"
	CodeConfigError         = "CONFIG_ERROR"
)

// Standard adapter errors
var (
	// ErrCapabilityViolation is returned when a statement is rejected by the read-only policy
	ErrCapabilityViolation = errors.New("capability violation")

	// ErrConnectionFailed is returned when a connection attempt fails
	ErrConnectionFailed = errors.New("connection failed")

	// ErrQueryFailed is returned when statement execution fails
	ErrQueryFailed = errors.New("query execution failed")

	// ErrInvalidInput is returned when a request is malformed or unsupported
	ErrInvalidInput = errors.New("invalid input")

	// ErrEngine is returned for engine-specific failures with no better category
	ErrEngine = errors.New("engine error")

	// ErrConfiguration is returned when a connection descriptor or profile is invalid
	ErrConfiguration = errors.New("invalid configuration")

	// ErrAdapterNotFound is returned when no adapter is registered for an engine
	ErrAdapterNotFound = errors.New("adapter not found")
)

// sentinels maps error codes to their sentinel errors for errors.Is matching.
var sentinels = map[string]error{
	CodeCapabilityViolation: ErrCapabilityViolation,
	CodeConnectionFailed:    ErrConnectionFailed,
	CodeQueryFailed:         ErrQueryFailed,
	CodeInvalidInput:        ErrInvalidInput,
	CodeEngineError:         ErrEngine,
	CodeConfigError:         ErrConfiguration,
}

// DatabaseError wraps engine-specific failures with the operation that
// produced them and a stable error code. Messages never include passwords
// or assembled connection strings.
type DatabaseError struct {
	Engine    dbcapabilities.Engine
	Operation string
	Code      string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *DatabaseError) Error() string {
	if len(e.Context) > 0 {
		return fmt.Sprintf("[%s] %s: %v (context: %v)", e.Engine, e.Operation, e.Cause, e.Context)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Engine, e.Operation, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's code as well as the cause chain.
func (e *DatabaseError) Is(target error) bool {
	if s, ok := sentinels[e.Code]; ok && errors.Is(target, s) {
		return true
	}
	return errors.Is(e.Cause, target)
}

// WithContext adds context to a DatabaseError.
func (e *DatabaseError) WithContext(key string, value interface{}) *DatabaseError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewCapabilityViolation creates an error for a statement rejected by the
// read-only policy. The message carries the caller's original statement so
// it can be re-run outside dbplane.
func NewCapabilityViolation(engine dbcapabilities.Engine, message string) *DatabaseError {
	return &DatabaseError{
		Engine:    engine,
		Operation: "execute",
		Code:      CodeCapabilityViolation,
		Cause:     errors.New(message),
	}
}

// NewConnectionError creates a CONNECTION_FAILED error.
func NewConnectionError(engine dbcapabilities.Engine, cause error) *DatabaseError {
	return &DatabaseError{
		Engine:    engine,
		Operation: "connect",
		Code:      CodeConnectionFailed,
		Cause:     cause,
	}
}

// NewQueryError creates a QUERY_FAILED error for the named operation.
func NewQueryError(engine dbcapabilities.Engine, operation string, cause error) *DatabaseError {
	return &DatabaseError{
		Engine:    engine,
		Operation: operation,
		Code:      CodeQueryFailed,
		Cause:     cause,
	}
}

// NewInvalidInput creates an INVALID_INPUT error.
func NewInvalidInput(engine dbcapabilities.Engine, operation string, message string) *DatabaseError {
	return &DatabaseError{
		Engine:    engine,
		Operation: operation,
		Code:      CodeInvalidInput,
		Cause:     errors.New(message),
	}
}

// NewEngineError creates an ENGINE_ERROR for failures with no better category.
func NewEngineError(engine dbcapabilities.Engine, operation string, cause error) *DatabaseError {
	return &DatabaseError{
		Engine:    engine,
		Operation: operation,
		Code:      CodeEngineError,
		Cause:     cause,
	}
}

// NewConfigurationError creates a CONFIG_ERROR for an invalid descriptor field.
func NewConfigurationError(engine dbcapabilities.Engine, field string, reason string) *DatabaseError {
	cause := errors.New(reason)
	if field != "" {
		cause = fmt.Errorf("field '%s': %s", field, reason)
	}
	return &DatabaseError{
		Engine:    engine,
		Operation: "configure",
		Code:      CodeConfigError,
		Cause:     cause,
	}
}

// WrapError wraps an error with engine and operation context under the given
// code. If the error is already a DatabaseError, it is returned as-is.
func WrapError(engine dbcapabilities.Engine, operation string, code string, err error) error {
	if err == nil {
		return nil
	}

	// Don't double-wrap
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}

	return &DatabaseError{
		Engine:    engine,
		Operation: operation,
		Code:      code,
		Cause:     err,
	}
}

// CodeOf extracts the stable error code from an error chain. Errors outside
// the taxonomy report ENGINE_ERROR.
func CodeOf(err error) string {
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return dbErr.Code
	}
	for code, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeEngineError
}

// Package adapter defines the contract between dbplane's dispatch layer and
// the engine-specific implementations. Every adapter call is one-shot: the
// adapter opens a connection, performs the operation, and closes the
// connection before returning. No state is carried between calls.
package adapter

import (
	"context"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Adapter is implemented once per supported engine.
type Adapter interface {
	// Engine returns the canonical engine identifier
	Engine() dbcapabilities.Engine

	// Capabilities returns the capability metadata for this engine
	Capabilities() dbcapabilities.Capability

	// ValidateConnection opens a connection, reads the server identity, and
	// closes it again
	ValidateConnection(ctx context.Context, config ConnectionConfig) (*ConnectionInfo, error)

	// Introspect performs one catalog operation
	Introspect(ctx context.Context, config ConnectionConfig, req IntrospectRequest) (*IntrospectResult, error)

	// Execute runs one statement after it passes read-only classification.
	// The caps timeout bounds statement execution only, not dialing.
	Execute(ctx context.Context, config ConnectionConfig, sql string, caps Capabilities) (*QueryResult, error)
}

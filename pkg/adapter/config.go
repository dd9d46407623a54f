package adapter

import (
	"fmt"
	"time"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
)

// Default capability limits applied when the caller does not set them.
const (
	DefaultMaxRows = 1000
	DefaultTimeout = 30 * time.Second
)

// ConnectionConfig describes one target database for a single call. Server
// engines use the network fields; SQLite uses FilePath. The password is held
// only in memory and is never echoed in errors or logs.
type ConnectionConfig struct {
	Engine   dbcapabilities.Engine `json:"engine"`
	Host     string                `json:"host,omitempty"`
	Port     int                   `json:"port,omitempty"`
	User     string                `json:"user,omitempty"`
	Password string                `json:"-"`
	Database string                `json:"database,omitempty"`
	FilePath string                `json:"file,omitempty"`
}

// Validate checks that the descriptor carries every field its engine needs
// and defaults the port from the engine's capability entry. A malformed or
// incomplete descriptor is the caller's input, so failures report
// INVALID_INPUT.
func (c *ConnectionConfig) Validate() error {
	cap, ok := dbcapabilities.Get(c.Engine)
	if !ok {
		return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("unknown engine '%s'", c.Engine))
	}

	if cap.FileBased {
		if c.FilePath == "" {
			return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("%s requires a database file path", cap.Name))
		}
		if c.Host != "" || c.Port != 0 || c.User != "" {
			return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("%s is file-based and does not accept host, port, or user", cap.Name))
		}
		return nil
	}

	if c.Host == "" {
		return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("%s requires 'host'", cap.Name))
	}
	if c.User == "" {
		return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("%s requires 'user'", cap.Name))
	}
	if c.Database == "" {
		return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("%s requires 'database'", cap.Name))
	}
	if c.FilePath != "" {
		return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("%s does not accept a file path", cap.Name))
	}
	if c.Port == 0 {
		c.Port = cap.DefaultPort
	}
	if c.Port < 0 || c.Port > 65535 {
		return NewInvalidInput(c.Engine, "validate", fmt.Sprintf("port %d out of range", c.Port))
	}
	return nil
}

// Capabilities bounds a single execute call. The limits are the only
// negotiable surface; write and DDL access are never grantable.
type Capabilities struct {
	MaxRows int           `json:"max_rows"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultCapabilities returns the standard limits.
func DefaultCapabilities() Capabilities {
	return Capabilities{MaxRows: DefaultMaxRows, Timeout: DefaultTimeout}
}

// Normalize replaces non-positive limits with the defaults.
func (c Capabilities) Normalize() Capabilities {
	if c.MaxRows <= 0 {
		c.MaxRows = DefaultMaxRows
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

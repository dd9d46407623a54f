package mcp

import "encoding/json"

// JSON-RPC 2.0 error codes used by the server.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// protocolVersion is the MCP revision this server speaks.
const protocolVersion = "2024-11-05"

// Request is an incoming JSON-RPC 2.0 message.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outgoing JSON-RPC 2.0 message.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error body.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Tool describes one callable tool for tools/list.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

// ToolContent is one content block in a tool result.
type ToolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the result payload of tools/call.
type ToolResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// CallParams are the parameters of tools/call.
type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolArgs is the argument shape shared by all three tools. A connection is
// resolved either from a saved profile name (with optional field overrides)
// or from an explicit engine plus fields.
type ToolArgs struct {
	Name        string `json:"name,omitempty"`
	Engine      string `json:"engine,omitempty"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	User        string `json:"user,omitempty"`
	Database    string `json:"database,omitempty"`
	File        string `json:"file,omitempty"`
	PasswordEnv string `json:"password_env,omitempty"`

	// connect
	SaveAs     string `json:"save_as,omitempty"`
	Global     bool   `json:"global,omitempty"`
	SetCurrent bool   `json:"set_current,omitempty"`

	// introspect
	Op     string   `json:"op,omitempty"`
	Table  string   `json:"table,omitempty"`
	View   string   `json:"view,omitempty"`
	Schema string   `json:"schema,omitempty"`
	Fields []string `json:"fields,omitempty"`

	// query
	SQL            string `json:"sql,omitempty"`
	MaxRows        int    `json:"max_rows,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

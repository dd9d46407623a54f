// Package mcp serves dbplane's tools over line-delimited JSON-RPC 2.0 on
// stdio. One request per line in, one response per line out; logs go to
// stderr so the protocol stream stays clean.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dbplane/dbplane/internal/config"
	"github.com/dbplane/dbplane/internal/output"
	"github.com/dbplane/dbplane/pkg/adapter"
	"github.com/dbplane/dbplane/pkg/dbcapabilities"
	"github.com/dbplane/dbplane/pkg/logger"
)

// maxLineBytes bounds one request line.
const maxLineBytes = 8 << 20

// Server dispatches MCP requests to the adapter registry.
type Server struct {
	registry *adapter.Registry
	store    *config.Store
	log      *logger.Logger
	version  string

	in  io.Reader
	out io.Writer
}

// NewServer creates a server reading requests from in and writing responses
// to out.
func NewServer(registry *adapter.Registry, store *config.Store, log *logger.Logger, version string, in io.Reader, out io.Writer) *Server {
	return &Server{
		registry: registry,
		store:    store,
		log:      log,
		version:  version,
		in:       in,
		out:      out,
	}
}

// Serve processes requests until the input stream closes.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.respond(Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: codeParseError, Message: fmt.Sprintf("parse error: %v", err)},
			})
			continue
		}

		// Notifications carry no id and get no response
		if len(req.ID) == 0 {
			continue
		}

		s.respond(s.handle(ctx, req))
	}
	return scanner.Err()
}

func (s *Server) respond(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		if s.log != nil {
			s.log.Error("error encoding response: %v", err)
		}
		return
	}
	fmt.Fprintln(s.out, string(data))
}

func (s *Server) handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			resp = Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &RPCError{Code: codeInternalError, Message: fmt.Sprintf("internal error: %v", rec)},
			}
		}
	}()

	switch req.Method {
	case "initialize":
		return Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
			"serverInfo":      map[string]interface{}{"name": "dbplane", "version": s.version},
		}}
	case "tools/list":
		return Response{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": toolList()}}
	case "tools/call":
		return s.handleCall(ctx, req)
	default:
		return Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)},
		}
	}
}

func (s *Server) handleCall(ctx context.Context, req Request) Response {
	var params CallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: codeInvalidRequest, Message: fmt.Sprintf("invalid params: %v", err)},
		}
	}
	var args ToolArgs
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return Response{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   &RPCError{Code: codeInvalidRequest, Message: fmt.Sprintf("invalid arguments: %v", err)},
			}
		}
	}

	var envelope interface{}
	var failed bool
	switch params.Name {
	case "connect":
		envelope, failed = s.toolConnect(ctx, args)
	case "introspect":
		envelope, failed = s.toolIntrospect(ctx, args)
	case "query":
		envelope, failed = s.toolQuery(ctx, args)
	default:
		return Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: codeInvalidRequest, Message: fmt.Sprintf("unknown tool: %s", params.Name)},
		}
	}

	text, err := json.Marshal(envelope)
	if err != nil {
		return Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: codeInternalError, Message: fmt.Sprintf("error encoding result: %v", err)},
		}
	}
	return Response{JSONRPC: "2.0", ID: req.ID, Result: ToolResult{
		Content: []ToolContent{{Type: "text", Text: string(text)}},
		IsError: failed,
	}}
}

// resolveConnection builds a connection descriptor from tool arguments:
// either a saved profile name with field overrides, or an explicit engine
// plus its required fields.
func (s *Server) resolveConnection(args ToolArgs) (adapter.ConnectionConfig, error) {
	if args.Name == "" && args.Engine == "" {
		return adapter.ConnectionConfig{}, adapter.NewConfigurationError("", "",
			"Must provide either 'name' or 'engine'")
	}

	var cfg adapter.ConnectionConfig
	if args.Name != "" {
		profile, err := s.store.Lookup(args.Name)
		if err != nil {
			return adapter.ConnectionConfig{}, err
		}
		if args.PasswordEnv != "" {
			profile.PasswordEnv = args.PasswordEnv
		}
		cfg, err = profile.Resolve()
		if err != nil {
			return adapter.ConnectionConfig{}, err
		}
	} else {
		engine, ok := dbcapabilities.ParseEngine(args.Engine)
		if !ok {
			return adapter.ConnectionConfig{}, adapter.NewConfigurationError(dbcapabilities.Engine(args.Engine), "engine",
				fmt.Sprintf("unknown engine '%s'", args.Engine))
		}
		cfg.Engine = engine
		if args.PasswordEnv != "" {
			profile := config.Profile{Engine: engine, PasswordEnv: args.PasswordEnv}
			resolved, err := profile.Resolve()
			if err != nil {
				return adapter.ConnectionConfig{}, err
			}
			cfg.Password = resolved.Password
		}
	}

	// Field overrides apply on top of either source
	if args.Host != "" {
		cfg.Host = args.Host
	}
	if args.Port != 0 {
		cfg.Port = args.Port
	}
	if args.User != "" {
		cfg.User = args.User
	}
	if args.Database != "" {
		cfg.Database = args.Database
	}
	if args.File != "" {
		cfg.FilePath = args.File
	}

	if err := cfg.Validate(); err != nil {
		return adapter.ConnectionConfig{}, err
	}
	return cfg, nil
}

func (s *Server) toolConnect(ctx context.Context, args ToolArgs) (interface{}, bool) {
	cfg, err := s.resolveConnection(args)
	if err != nil {
		return output.Failure(cfg.Engine, "connect", err), true
	}

	info, err := s.registry.ValidateConnection(ctx, cfg)
	if err != nil {
		return output.Failure(cfg.Engine, "connect", err), true
	}

	if args.SaveAs != "" {
		profile := config.Profile{
			Engine:      cfg.Engine,
			Host:        cfg.Host,
			Port:        cfg.Port,
			User:        cfg.User,
			Database:    cfg.Database,
			FilePath:    cfg.FilePath,
			PasswordEnv: args.PasswordEnv,
		}
		if err := s.store.Save(args.SaveAs, profile, args.Global, args.SetCurrent); err != nil {
			return output.Failure(cfg.Engine, "connect", err), true
		}
	}

	return output.Success(cfg.Engine, "connect", info, nil), false
}

func (s *Server) toolIntrospect(ctx context.Context, args ToolArgs) (interface{}, bool) {
	cfg, err := s.resolveConnection(args)
	if err != nil {
		return output.Failure(cfg.Engine, "introspect", err), true
	}

	op, ok := adapter.ParseIntrospectOp(args.Op)
	if !ok {
		err := adapter.NewInvalidInput(cfg.Engine, "introspect", fmt.Sprintf("unknown introspect operation '%s'", args.Op))
		return output.Failure(cfg.Engine, "introspect", err), true
	}
	req := adapter.IntrospectRequest{
		Op:     op,
		Table:  args.Table,
		View:   args.View,
		Schema: args.Schema,
	}
	if len(args.Fields) > 0 {
		fields, err := ParseFields(args.Fields)
		if err != nil {
			return output.Failure(cfg.Engine, "introspect", err), true
		}
		req.Fields = &fields
	}

	start := time.Now()
	result, err := s.registry.Introspect(ctx, cfg, req)
	if err != nil {
		return output.Failure(cfg.Engine, "introspect", err), true
	}
	meta := &output.Meta{ExecutionMS: time.Since(start).Milliseconds()}
	return output.Success(cfg.Engine, "introspect", result, meta), false
}

func (s *Server) toolQuery(ctx context.Context, args ToolArgs) (interface{}, bool) {
	cfg, err := s.resolveConnection(args)
	if err != nil {
		return output.Failure(cfg.Engine, "query", err), true
	}

	caps := adapter.Capabilities{
		MaxRows: args.MaxRows,
		Timeout: time.Duration(args.TimeoutSeconds) * time.Second,
	}
	result, err := s.registry.Execute(ctx, cfg, args.SQL, caps)
	if err != nil {
		return output.Failure(cfg.Engine, "query", err), true
	}
	return output.Success(cfg.Engine, "query", result, output.QueryMeta(result)), false
}

// ParseFields maps field selector names onto a TableFields set.
func ParseFields(names []string) (adapter.TableFields, error) {
	var fields adapter.TableFields
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "columns":
			fields.Columns = true
		case "primary_key":
			fields.PrimaryKey = true
		case "foreign_keys":
			fields.ForeignKeys = true
		case "indexes":
			fields.Indexes = true
		default:
			return adapter.TableFields{}, adapter.NewInvalidInput("", "introspect",
				fmt.Sprintf("unknown field '%s'", name))
		}
	}
	return fields, nil
}

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/leofalp/comfymcp/providers/tool"
)

// maxLineBytes bounds one framed message; tool arguments are small but
// prompts can be long.
const maxLineBytes = 4 * 1024 * 1024

// Server serves a tool catalog over newline-delimited JSON-RPC.
type Server struct {
	name    string
	version string
	catalog *tool.Catalog
	logger  *slog.Logger
}

// NewServer creates a server advertising the given identity.
func NewServer(name, version string, catalog *tool.Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{name: name, version: version, catalog: catalog, logger: logger}
}

// Serve reads requests from r and writes responses to w until EOF or context
// cancellation. Malformed lines produce JSON-RPC error responses instead of
// terminating the session.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("unparseable message", "error", err)
			if err := encoder.Encode(response{JSONRPC: "2.0", ID: json.RawMessage("null"), Error: &rpcError{Code: codeParseError, Message: "parse error"}}); err != nil {
				return err
			}
			continue
		}

		resp := s.handle(ctx, &req)
		if resp == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// handle dispatches one request. It returns nil for notifications.
func (s *Server) handle(ctx context.Context, req *request) *response {
	if req.notification() {
		// The only notifications we expect are lifecycle signals; nothing to do.
		s.logger.Debug("notification received", "method", req.Method)
		return nil
	}

	resp := &response{JSONRPC: "2.0", ID: req.ID}

	switch req.Method {
	case "initialize":
		resp.Result = initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		}

	case "ping":
		resp.Result = struct{}{}

	case "tools/list":
		infos := s.catalog.Infos()
		descriptors := make([]toolDescriptor, 0, len(infos))
		for _, info := range infos {
			descriptors = append(descriptors, toolDescriptor{
				Name:        info.Name,
				Description: info.Description,
				InputSchema: info.Parameters,
			})
		}
		resp.Result = toolsListResult{Tools: descriptors}

	case "tools/call":
		resp.Result, resp.Error = s.callTool(ctx, req.Params)

	default:
		resp.Error = &rpcError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}

	return resp
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *rpcError) {
	var call toolsCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid tools/call params"}
	}

	t, ok := s.catalog.Get(call.Name)
	if !ok {
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("unknown tool %q", call.Name)}
	}

	arguments := string(call.Arguments)
	if arguments == "" {
		arguments = "{}"
	}

	s.logger.Info("tool call", "tool", call.Name)
	result, err := t.Call(ctx, arguments)
	if err != nil {
		s.logger.Error("tool call failed", "tool", call.Name, "error", err)
		return textResult(err.Error(), true), nil
	}
	return textResult(result, false), nil
}

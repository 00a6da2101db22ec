package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/pario-ai/quill/pkg/action"
	"github.com/pario-ai/quill/pkg/logging"
	"github.com/pario-ai/quill/pkg/models"
)

// ToolPrefix is prepended to action names to form tool names.
const ToolPrefix = "quill_"

// UsageSummarizer provides usage summaries without coupling to the ledger.
type UsageSummarizer interface {
	Summary(ctx context.Context, act models.Action) ([]models.UsageSummary, error)
}

// Server is a minimal MCP server that communicates over stdio using JSON-RPC 2.0.
// Every registered action is exposed as a tool named quill_<action>.
type Server struct {
	router  *action.Router
	usage   UsageSummarizer
	logger  *zap.Logger
	version string
}

// New creates a new MCP Server. usage may be nil.
func New(router *action.Router, usage UsageSummarizer, logger *zap.Logger, version string) *Server {
	return &Server{
		router:  router,
		usage:   usage,
		logger:  logging.OrNop(logger),
		version: version,
	}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// It blocks until r is closed or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, *rpcError(nil, CodeParseError, "parse error"))
			continue
		}

		resp := s.dispatch(ctx, &req)
		if resp == nil {
			// notification, no response
			continue
		}
		s.writeResponse(w, *resp)
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		return nil
	case "ping":
		return result(req.ID, struct{}{})
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return rpcError(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	return result(req.ID, InitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      ServerInfo{Name: serverName, Version: s.version},
	})
}

func (s *Server) handleToolsList(req *Request) *Response {
	return result(req.ID, ToolsListResult{Tools: s.tools()})
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcError(req.ID, CodeInvalidParams, "invalid params")
	}

	var out ToolCallResult
	switch {
	case params.Name == usageTool:
		out = s.callUsage(ctx, params.Arguments)
	case strings.HasPrefix(params.Name, ToolPrefix):
		out = s.callAction(ctx, models.Action(strings.TrimPrefix(params.Name, ToolPrefix)), params.Arguments)
	default:
		out = errorResult(fmt.Sprintf("unknown tool: %s", params.Name))
	}
	return result(req.ID, out)
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("mcp: marshal error", zap.Error(err))
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("mcp: write error", zap.Error(err))
	}
}

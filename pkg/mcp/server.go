// Package mcp serves the tone pipeline as Model Context Protocol tools over
// line-delimited JSON-RPC on stdio.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pario-ai/tonal/pkg/models"
)

// maxLine bounds a single JSON-RPC message.
const maxLine = 1 << 20

// Pipeline is the tone pipeline as seen by the tools.
type Pipeline interface {
	Adjust(ctx context.Context, req models.ToneRequest) (models.ToneResult, error)
	ClearCache(ctx context.Context) error
	CacheStats(ctx context.Context) (models.CacheStats, error)
}

// UsageSummarizer reports recorded provider usage.
type UsageSummarizer interface {
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
}

// Server is a minimal MCP server.
type Server struct {
	pipeline Pipeline
	usage    UsageSummarizer
	version  string
}

// New creates a Server. usage may be nil when tracking is disabled.
func New(p Pipeline, usage UsageSummarizer, version string) *Server {
	return &Server{pipeline: p, usage: usage, version: version}
}

// Run reads requests from r one per line and writes responses to w. It
// returns when r is exhausted or ctx is canceled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(w, rpcError(nil, CodeParseError, "parse error"))
			continue
		}
		if req.JSONRPC != jsonrpcVersion {
			s.write(w, rpcError(req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\""))
			continue
		}

		if resp := s.dispatch(ctx, &req); resp != nil && len(req.ID) > 0 {
			s.write(w, resp)
		}
	}
	return scanner.Err()
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return result(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "tonal", Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "notifications/initialized":
		return nil
	case "ping":
		return result(req.ID, map[string]any{})
	case "tools/list":
		return result(req.ID, ToolsListResult{Tools: allTools})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return rpcError(req.ID, CodeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method))
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return rpcError(req.ID, CodeInvalidParams, "invalid params")
	}

	handler, ok := toolHandlers[params.Name]
	if !ok {
		return result(req.ID, errorResult("unknown tool: "+params.Name))
	}

	log.Debug().Str("tool", params.Name).Msg("mcp tool call")
	return result(req.ID, handler(ctx, s, params.Arguments))
}

func (s *Server) write(w io.Writer, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("mcp: marshal response")
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("mcp: write response")
	}
}

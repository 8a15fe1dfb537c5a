package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/solivar/docintake/internal/pipeline"
	"github.com/solivar/docintake/internal/workflow"
)

// Server speaks line-delimited JSON-RPC over stdio and routes requests into
// the analysis pipeline and the review workflow.
type Server struct {
	pipeline *pipeline.Pipeline
	flow     *workflow.Service
}

// Request represents an incoming JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server over the given pipeline and workflow service.
func New(p *pipeline.Pipeline, flow *workflow.Service) *Server {
	return &Server{pipeline: p, flow: flow}
}

// Run reads requests from stdin, one JSON object per line, and writes
// responses to stdout.
func (s *Server) Run() error {
	return s.serve(os.Stdin, os.Stdout)
}

func (s *Server) serve(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Uploads arrive base64-encoded inline, so requests can be large.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("server: failed to parse request: %v", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				log.Printf("server: failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers.
func (s *Server) handleRequest(req *Request) *Response {
	switch req.Method {
	case "analyze":
		return s.handleAnalyze(req)
	case "workflow/list":
		return s.handleList(req)
	case "workflow/submit":
		return s.handleSubmit(req)
	case "workflow/decide":
		return s.handleDecide(req)
	case "workflow/delete":
		return s.handleDelete(req)
	case "workflow/download":
		return s.handleDownload(req)
	case "ping":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

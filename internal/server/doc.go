// Package server exposes the document intake system over a JSON-RPC 2.0
// control surface.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported methods:
//   - analyze: run the full submission pipeline on a set of uploads
//   - workflow/list: enumerate stored items in one review state
//   - workflow/submit: batch-move pending items to committee review
//   - workflow/decide: apply a committee verdict to a reviewed item
//   - workflow/delete: remove a stored item
//   - workflow/download: fetch a stored item's content
//   - ping: health check
//
// Every method takes an actor object ({id, email, role}); role gating
// happens in the workflow service, not here. Upload and download content
// travels base64-encoded inline, which is why the read buffer is generous.
//
// # Error Handling
//
// Failures are returned as JSON-RPC error responses:
//   - code -32602: malformed params, rejected submissions, invalid
//     states/decisions/identifiers
//   - code -32001: actor role not allowed
//   - code -32004: item not found
//   - code -32000: anything else (storage, OCR, generation service)
//
// # Usage
//
//	srv := server.New(pipe, flowService)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server

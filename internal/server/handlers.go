package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/solivar/docintake/internal/pipeline"
	"github.com/solivar/docintake/internal/workflow"
)

// actorParam identifies the caller on every method.
type actorParam struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (a actorParam) actor() workflow.Actor {
	return workflow.Actor{ID: a.ID, Email: a.Email, Role: workflow.Role(a.Role)}
}

type uploadParam struct {
	Field string `json:"field"`
	Name  string `json:"name"`
	Data  []byte `json:"data"` // base64 on the wire
}

type analyzeParams struct {
	Actor    actorParam        `json:"actor"`
	Uploads  []uploadParam     `json:"uploads"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// handleAnalyze runs the full submission pipeline. Submitters and
// administrators may analyze; the actor's ID is the owning identity for
// everything stored.
func (s *Server) handleAnalyze(req *Request) *Response {
	var params analyzeParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	actor := params.Actor.actor()
	if actor.Role != workflow.RoleSubmitter && actor.Role != workflow.RoleAdmin {
		return s.errorResponse(req.ID, -32001, "Role denied", string(actor.Role))
	}

	sub := pipeline.Submission{
		Owner:    actor.ID,
		Email:    actor.Email,
		Metadata: params.Metadata,
	}
	for _, u := range params.Uploads {
		sub.Uploads = append(sub.Uploads, pipeline.Upload{Field: u.Field, Name: u.Name, Data: u.Data})
	}

	result, err := s.pipeline.Process(context.Background(), sub)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			return s.errorResponse(req.ID, -32602, "Submission rejected", verr.Error())
		}
		return s.errorResponse(req.ID, -32000, "Analysis failed", err.Error())
	}

	return s.resultResponse(req.ID, result)
}

type listParams struct {
	Actor actorParam `json:"actor"`
	State string     `json:"state"`
	Owner string     `json:"owner,omitempty"`
}

func (s *Server) handleList(req *Request) *Response {
	var params listParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	state, err := workflow.ParseState(params.State)
	if err != nil {
		return s.workflowError(req.ID, err)
	}

	items, err := s.flow.List(params.Actor.actor(), state, params.Owner)
	if err != nil {
		return s.workflowError(req.ID, err)
	}
	if items == nil {
		items = []workflow.Item{}
	}
	return s.resultResponse(req.ID, map[string]interface{}{"items": items})
}

type submitParams struct {
	Actor actorParam `json:"actor"`
	IDs   []string   `json:"ids"`
}

func (s *Server) handleSubmit(req *Request) *Response {
	var params submitParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	moved, err := s.flow.SubmitToCommittee(params.Actor.actor(), params.IDs)
	if err != nil {
		return s.workflowError(req.ID, err)
	}
	return s.resultResponse(req.ID, map[string]interface{}{"moved": moved})
}

type decideParams struct {
	Actor    actorParam `json:"actor"`
	ItemID   string     `json:"id"`
	Decision string     `json:"decision"`
}

func (s *Server) handleDecide(req *Request) *Response {
	var params decideParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	err := s.flow.Decide(params.Actor.actor(), params.ItemID, workflow.Decision(params.Decision))
	if err != nil {
		return s.workflowError(req.ID, err)
	}
	return s.resultResponse(req.ID, map[string]interface{}{"decided": true})
}

type itemParams struct {
	Actor  actorParam `json:"actor"`
	ItemID string     `json:"id"`
	State  string     `json:"state"`
}

func (s *Server) handleDelete(req *Request) *Response {
	var params itemParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	state, err := workflow.ParseState(params.State)
	if err != nil {
		return s.workflowError(req.ID, err)
	}

	if err := s.flow.Delete(params.Actor.actor(), params.ItemID, state); err != nil {
		return s.workflowError(req.ID, err)
	}
	return s.resultResponse(req.ID, map[string]interface{}{"deleted": true})
}

func (s *Server) handleDownload(req *Request) *Response {
	var params itemParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	state, err := workflow.ParseState(params.State)
	if err != nil {
		return s.workflowError(req.ID, err)
	}

	rc, err := s.flow.Download(params.Actor.actor(), params.ItemID, state)
	if err != nil {
		return s.workflowError(req.ID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Download failed", err.Error())
	}

	return s.resultResponse(req.ID, map[string]interface{}{
		"id":      params.ItemID,
		"content": data, // base64 on the wire
	})
}

// workflowError maps workflow sentinels onto JSON-RPC error codes.
func (s *Server) workflowError(id interface{}, err error) *Response {
	code := -32000
	switch {
	case errors.Is(err, workflow.ErrRoleDenied):
		code = -32001
	case errors.Is(err, workflow.ErrInvalidDecision),
		errors.Is(err, workflow.ErrInvalidState),
		errors.Is(err, workflow.ErrBadItemID):
		code = -32602
	case errors.Is(err, workflow.ErrMissingItem):
		code = -32004
	}
	return s.errorResponse(id, code, "Workflow operation failed", err.Error())
}

func (s *Server) resultResponse(id interface{}, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

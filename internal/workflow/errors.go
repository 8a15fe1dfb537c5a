package workflow

import "errors"

// Sentinel errors for workflow operations. Handlers map these to client
// responses; anything else is an internal failure.
var (
	ErrRoleDenied      = errors.New("actor role not allowed for this operation")
	ErrInvalidDecision = errors.New("invalid decision value")
	ErrInvalidState    = errors.New("invalid workflow state")
	ErrMissingItem     = errors.New("workflow item not found")
	ErrBadItemID       = errors.New("malformed item identifier")
)

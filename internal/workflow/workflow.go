// Package workflow moves analyzed submissions through the review pipeline:
// pending, reviewed, validated. A directory tree is the source of truth and
// renames are the only mutation, so two concurrent movers of the same item
// cannot duplicate it: the second one finds the source gone and fails clean.
package workflow

import "fmt"

// State is a review stage. Each state is one directory level under the
// store root.
type State string

const (
	StatePending   State = "pending"
	StateReviewed  State = "reviewed"
	StateValidated State = "validated"
)

// States lists every stage in review order.
var States = []State{StatePending, StateReviewed, StateValidated}

// ParseState validates a state name from an external caller.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.known() {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidState)
	}
	return st, nil
}

func (s State) known() bool {
	return s == StatePending || s == StateReviewed || s == StateValidated
}

// Decision is a committee verdict on a reviewed item.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Role gates the workflow control surface.
type Role string

const (
	RoleSubmitter Role = "submitter"
	RoleAdmin     Role = "admin"
	RoleCommittee Role = "committee"
)

// Actor is whoever is invoking a workflow operation.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

// Item is one stored document in some review state. ID is
// "<owner>/<storedName>" and is stable across moves.
type Item struct {
	ID     string
	Owner  string
	Field  string
	Name   string
	State  State
	Size   int64
	SHA256 string
	Email  string
}

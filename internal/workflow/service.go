package workflow

import (
	"errors"
	"fmt"
	"io"
	"log"
)

// Service is the role-gated control surface over a Store. Every operation
// checks the actor before touching storage, and state transitions validate
// their inputs before any filesystem effect.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List enumerates items in one state. Submitters only ever see their own
// items regardless of the requested owner scope; administrators and
// committee members may scope to any owner or none.
func (s *Service) List(actor Actor, state State, owner string) ([]Item, error) {
	switch actor.Role {
	case RoleSubmitter:
		owner = actor.ID
	case RoleAdmin, RoleCommittee:
	default:
		return nil, fmt.Errorf("list: %w", ErrRoleDenied)
	}
	return s.store.ListByState(state, owner)
}

// SubmitToCommittee moves pending items to reviewed in a batch.
// Administrators only. Identifiers that are not currently pending are
// skipped, not failed; the return value is how many actually moved.
func (s *Service) SubmitToCommittee(actor Actor, ids []string) (int, error) {
	if actor.Role != RoleAdmin {
		return 0, fmt.Errorf("submit to committee: %w", ErrRoleDenied)
	}

	moved := 0
	for _, id := range ids {
		switch err := s.store.Move(id, StatePending, StateReviewed); {
		case err == nil:
			moved++
		case isSkippable(err):
			log.Printf("workflow: skipping %q: %v", id, err)
		default:
			return moved, fmt.Errorf("moving %q: %w", id, err)
		}
	}
	return moved, nil
}

// Decide applies a committee verdict to one reviewed item: approved moves
// it to validated, rejected returns it to pending. Any other decision value
// is rejected before any filesystem effect.
func (s *Service) Decide(actor Actor, id string, decision Decision) error {
	if actor.Role != RoleCommittee {
		return fmt.Errorf("decide: %w", ErrRoleDenied)
	}

	var to State
	switch decision {
	case DecisionApproved:
		to = StateValidated
	case DecisionRejected:
		to = StatePending
	default:
		return fmt.Errorf("%q: %w", decision, ErrInvalidDecision)
	}

	if err := s.store.Move(id, StateReviewed, to); err != nil {
		return fmt.Errorf("applying decision %q: %w", decision, err)
	}
	return nil
}

// Delete removes one item. Administrators may delete anywhere; submitters
// may only delete their own still-pending items.
func (s *Service) Delete(actor Actor, id string, state State) error {
	switch actor.Role {
	case RoleAdmin:
	case RoleSubmitter:
		if state != StatePending || !ownedBy(id, actor.ID) {
			return fmt.Errorf("delete: %w", ErrRoleDenied)
		}
	default:
		return fmt.Errorf("delete: %w", ErrRoleDenied)
	}
	return s.store.Delete(id, state)
}

// Download opens one item's content. Administrators and committee members
// may read anything; submitters only their own items.
func (s *Service) Download(actor Actor, id string, state State) (io.ReadCloser, error) {
	switch actor.Role {
	case RoleAdmin, RoleCommittee:
	case RoleSubmitter:
		if !ownedBy(id, actor.ID) {
			return nil, fmt.Errorf("download: %w", ErrRoleDenied)
		}
	default:
		return nil, fmt.Errorf("download: %w", ErrRoleDenied)
	}
	return s.store.Open(id, state)
}

func isSkippable(err error) bool {
	return errors.Is(err, ErrMissingItem) || errors.Is(err, ErrBadItemID)
}

func ownedBy(id, owner string) bool {
	o, _, err := splitID(id)
	return err == nil && o == owner
}

package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

const (
	OpCreateActivity    = "create_activity"
	OpUpdateActivity    = "update_activity"
	OpDeleteActivity    = "delete_activity"
	OpAddExercise       = "add_exercise"
	OpRemoveExercise    = "remove_exercise"
	OpAssignActivity    = "assign_activity"
	OpUnassignActivity  = "unassign_activity"
	OpMoveAssignment    = "move_assignment"
	OpRecordPerformance = "record_performance"
)

var opActions = map[string]string{
	OpCreateActivity:    "create activity",
	OpUpdateActivity:    "update activity",
	OpDeleteActivity:    "delete activity",
	OpAddExercise:       "add exercise to activity",
	OpRemoveExercise:    "remove exercise from activity",
	OpAssignActivity:    "assign activity",
	OpUnassignActivity:  "unassign activity",
	OpMoveAssignment:    "move activity",
	OpRecordPerformance: "save performance",
}

// MutationError is what a rolled back mutation settles with.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// UserMessage is the short text shown when the optimistic change is reverted.
func (e *MutationError) UserMessage() string {
	action, ok := opActions[e.Op]
	if !ok {
		action = "save changes"
	}

	var conflict *domain.ConflictError
	switch {
	case errors.As(e.Err, &conflict):
		if conflict.Reason != "" {
			return fmt.Sprintf("Could not %s: %s %s.", action, conflict.Resource, conflict.Reason)
		}
		return fmt.Sprintf("Could not %s: %s changed on the server.", action, conflict.Resource)
	case errors.Is(e.Err, domain.ErrConflict):
		return fmt.Sprintf("Could not %s: it conflicts with the server state.", action)
	case errors.Is(e.Err, domain.ErrValidationFailed):
		return fmt.Sprintf("Could not %s: the server rejected the data.", action)
	default:
		return fmt.Sprintf("Failed to %s. Please try again.", action)
	}
}

// Mutation tracks one guarded operation. It is done once the remote call
// settled, any rollback happened and the follow-up refetch was attempted.
type Mutation struct {
	op       string
	id       string
	resolved chan struct{} // closed after commit or rollback, before the refetch
	done     chan struct{}
	err      error
}

func newMutation(op, id string) *Mutation {
	return &Mutation{
		op:       op,
		id:       id,
		resolved: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func settledMutation(op, id string) *Mutation {
	m := newMutation(op, id)
	close(m.resolved)
	close(m.done)
	return m
}

func (m *Mutation) Op() string { return m.op }

// ID is the id of the entity the mutation targets. For creates it is the
// temporary id; see Coordinator.Resolve.
func (m *Mutation) ID() string { return m.id }

func (m *Mutation) Done() <-chan struct{} { return m.done }

// Err is the settle result; only meaningful after Done is closed.
func (m *Mutation) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

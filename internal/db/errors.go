package db

import (
	"fmt"

	"github.com/candorhq/candor/internal/types"
	"github.com/google/uuid"
)

// TransitionConflictError means an optimistic status transition found the
// record no longer in its expected pre-state. The caller must refetch and
// decide again, never blindly overwrite.
type TransitionConflictError struct {
	CommunicationID uuid.UUID
	Expected        types.CommunicationStatus
}

func (e *TransitionConflictError) Error() string {
	return fmt.Sprintf("communication %s is no longer %q", e.CommunicationID, e.Expected)
}

// NotFoundError means an entity does not exist within the caller's company.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusChange is the outcome of a status edit. Callers holding an
// optimistic copy keep it when Applied is true and roll back to Previous
// otherwise.
type StatusChange struct {
	Previous  Status
	Current   Status
	Applied   bool
	Condition Condition
	History   *HistoryEntry
}

// SetStatus moves c to target. Moving an early condition into a
// document-backed status requires an attached document; conditions already
// at or past collected are not re-gated. A move to the current status is a
// no-op.
func SetStatus(c Condition, target Status, actorID uuid.UUID, now time.Time) (StatusChange, error) {
	change := StatusChange{Previous: c.Status, Current: c.Status, Condition: c}

	if target == c.Status {
		return change, nil
	}

	if target.IsDocumentBacked() && c.Status.IsEarly() && !c.HasDocument() {
		return change, ErrDocumentRequired
	}

	updated := c
	updated.Status = target
	updated.UpdatedAt = now

	change.Current = target
	change.Applied = true
	change.Condition = updated

	if target.IsDocumentBacked() {
		change.History = &HistoryEntry{
			ID:          uuid.New(),
			ConditionID: c.ID,
			ActorID:     actorID,
			OldStatus:   c.Status,
			NewStatus:   target,
			ChangedAt:   now,
		}
	}
	return change, nil
}

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func docPtr(s string) *string { return &s }

func TestSetStatusRequiresDocumentFromEarlyStatus(t *testing.T) {
	condition := Condition{ID: uuid.New(), Status: StatusRequested}

	change, err := SetStatus(condition, StatusCollected, uuid.New(), now)
	if !errors.Is(err, ErrDocumentRequired) {
		t.Fatalf("expected ErrDocumentRequired, got %v", err)
	}
	if change.Applied || change.Current != StatusRequested || change.History != nil {
		t.Fatalf("expected no mutation, got %+v", change)
	}

	condition.DocumentID = docPtr("conditions/paystub.pdf")
	change, err = SetStatus(condition, StatusCollected, uuid.New(), now)
	if err != nil {
		t.Fatalf("expected collected with a document, got %v", err)
	}
	if !change.Applied || change.Condition.Status != StatusCollected {
		t.Fatalf("expected collected to be applied, got %+v", change)
	}
}

func TestSetStatusGatesEveryDocumentBackedTarget(t *testing.T) {
	for _, from := range []Status{StatusAdded, StatusRequested, StatusReRequested} {
		for _, to := range []Status{StatusCollected, StatusSentToLender, StatusCleared} {
			_, err := SetStatus(Condition{Status: from, DocumentID: docPtr("  ")}, to, uuid.New(), now)
			if !errors.Is(err, ErrDocumentRequired) {
				t.Fatalf("%s -> %s: expected ErrDocumentRequired, got %v", from, to, err)
			}
		}
	}
}

func TestSetStatusDoesNotRegateProgressedConditions(t *testing.T) {
	condition := Condition{ID: uuid.New(), Status: StatusCollected}

	change, err := SetStatus(condition, StatusSentToLender, uuid.New(), now)
	if err != nil {
		t.Fatalf("expected sent-to-lender without a document, got %v", err)
	}
	if change.Previous != StatusCollected || change.Current != StatusSentToLender {
		t.Fatalf("expected collected -> sent-to-lender, got %s -> %s", change.Previous, change.Current)
	}
}

func TestSetStatusAppendsHistoryForDocumentBackedStatuses(t *testing.T) {
	actor := uuid.New()
	condition := Condition{ID: uuid.New(), Status: StatusCollected}

	change, _ := SetStatus(condition, StatusCleared, actor, now)
	if change.History == nil {
		t.Fatalf("expected a history entry")
	}
	entry := change.History
	if entry.ConditionID != condition.ID || entry.ActorID != actor || entry.OldStatus != StatusCollected || entry.NewStatus != StatusCleared || !entry.ChangedAt.Equal(now) {
		t.Fatalf("unexpected history entry %+v", entry)
	}

	change, _ = SetStatus(Condition{Status: StatusAdded}, StatusRequested, actor, now)
	if change.History != nil {
		t.Fatalf("expected no history for early statuses")
	}
}

func TestSetStatusMovingBackwardReopensTheGate(t *testing.T) {
	condition := Condition{Status: StatusCleared}

	change, err := SetStatus(condition, StatusRequested, uuid.New(), now)
	if err != nil {
		t.Fatalf("expected backward move, got %v", err)
	}
	if _, err := SetStatus(change.Condition, StatusCollected, uuid.New(), now); !errors.Is(err, ErrDocumentRequired) {
		t.Fatalf("expected the gate to apply again, got %v", err)
	}
}

func TestSetStatusSameStatusIsNoop(t *testing.T) {
	change, err := SetStatus(Condition{Status: StatusAdded}, StatusAdded, uuid.New(), now)
	if err != nil || change.Applied {
		t.Fatalf("expected a no-op, got %+v, %v", change, err)
	}
}

func TestStatusPositions(t *testing.T) {
	for i, status := range Statuses() {
		if status.Position() != i+1 {
			t.Fatalf("expected %s at position %d, got %d", status, i+1, status.Position())
		}
	}
	if _, ok := ParseStatus("Sent-To-Lender"); !ok {
		t.Fatalf("expected case-insensitive parse")
	}
	if Status("archived").Position() != 0 {
		t.Fatalf("expected unknown status at position 0")
	}
}

package repository

import (
	"strings"
	"testing"

	"loan_pipeline_backend/internal/conditions/domain"

	"github.com/google/uuid"
)

func TestSaveQueryIsVersionGuarded(t *testing.T) {
	normalized := strings.ToLower(strings.Join(strings.Fields(saveConditionQuery), " "))
	requiredFragments := []string{
		"update loan_conditions set",
		"version = version + 1",
		"where id = $1 and version = $10",
		"returning id, lead_id",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(normalized, fragment) {
			t.Fatalf("expected query fragment %q, got %s", fragment, normalized)
		}
	}
}

func TestSaveArgsCarryReadVersion(t *testing.T) {
	c := domain.Condition{ID: uuid.New(), Status: domain.StatusCollected, Priority: domain.PriorityHigh, Version: 3}

	args := saveArgs(c)
	if len(args) != 10 {
		t.Fatalf("expected 10 args, got %d", len(args))
	}
	if args[0] != c.ID || args[9] != 3 {
		t.Fatalf("expected id first and read version last, got %v and %v", args[0], args[9])
	}
	if args[2] != "collected" {
		t.Fatalf("expected status as string, got %v", args[2])
	}
}

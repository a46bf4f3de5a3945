package email

import (
	"strings"
	"testing"
)

func TestRenderTaskDueTemplate(t *testing.T) {
	content, err := renderEmailTemplate("task_due.html", taskDueEmailData{
		baseEmailData: baseEmailData{Title: "Application follow-up due", Heading: "Application follow-up due"},
		BorrowerName:  "Dana Reyes",
		DueDate:       "Mar 14, 2026",
		LeadID:        "lead-1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, fragment := range []string{"Dana Reyes", "Mar 14, 2026", "lead-1", "<h1"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected rendered email to contain %q", fragment)
		}
	}
}

func TestRenderConditionStatusTemplateEscapesTitle(t *testing.T) {
	content, err := renderEmailTemplate("condition_status.html", conditionStatusEmailData{
		ConditionTitle: "<b>Pay stubs</b>",
		OldStatus:      "sent-to-lender",
		NewStatus:      "cleared",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(content, "<b>Pay stubs</b>") {
		t.Fatalf("expected condition title to be escaped")
	}
}

package domain

import "testing"

func sectionOf(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestNextSection(t *testing.T) {
	cases := []struct {
		name    string
		current *string
		sub     SubStatus
		want    string
	}{
		{"new from nothing", nil, SubStatusNew, "Incoming"},
		{"rfp from live", strPtr("Live"), SubStatusRFP, "Incoming"},
		{"closed is sticky for new", strPtr("Closed"), SubStatusNew, "Closed"},
		{"closed is sticky for ctc", strPtr("Closed"), SubStatusCTC, "Closed"},
		{"submitted promotes incoming", strPtr("Incoming"), SubStatusSubmitted, "Live"},
		{"awc keeps live", strPtr("Live"), SubStatusAWC, "Live"},
		{"ctc without section", nil, SubStatusCTC, "<nil>"},
	}

	for _, tc := range cases {
		got := sectionOf(NextSection(tc.current, tc.sub))
		if got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestParseSubStatusStoresSubmittedAsSUV(t *testing.T) {
	for _, input := range []string{"SUB", "sub", "SUV"} {
		sub, ok := ParseSubStatus(input)
		if !ok || sub != SubStatusSubmitted {
			t.Fatalf("expected %q to parse as SUV, got %q", input, sub)
		}
	}
	if SubStatusSubmitted.Label() != "SUB" {
		t.Fatalf("expected SUV to display as SUB")
	}
	if _, ok := ParseSubStatus("FUNDED"); ok {
		t.Fatalf("expected unknown sub-status to be rejected")
	}
}

func TestChangeSubStatus(t *testing.T) {
	lead := Lead{Stage: string(StageActive), ActiveSubStatus: strPtr("NEW"), Section: strPtr("Incoming")}

	m, err := ChangeSubStatus(lead, "SUB")
	if err != nil {
		t.Fatalf("expected sub-status change, got %v", err)
	}
	next := lead.Apply(m)
	if *next.ActiveSubStatus != "SUV" || *next.Section != "Live" {
		t.Fatalf("expected SUV/Live, got %s/%s", *next.ActiveSubStatus, *next.Section)
	}

	m, _ = ChangeSubStatus(next, "CTC")
	if m.Touches(FieldSection) {
		t.Fatalf("expected Live to stay without a section write")
	}

	if _, err := ChangeSubStatus(Lead{Stage: string(StageScreening)}, "NEW"); err != ErrNotActive {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestCloseActiveIsSticky(t *testing.T) {
	lead := Lead{Stage: string(StageActive), Section: strPtr("Live")}

	m, err := CloseActive(lead)
	if err != nil {
		t.Fatalf("expected close, got %v", err)
	}
	closed := lead.Apply(m)

	m, _ = ChangeSubStatus(closed, "NEW")
	if sectionOf(closed.Apply(m).Section) != "Closed" {
		t.Fatalf("expected Closed to survive a restart to NEW")
	}
}

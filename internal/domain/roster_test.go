package domain

import "testing"

func TestRosterKeepsInsertionOrderAndUniqueness(t *testing.T) {
	r := NewRoster()
	for _, id := range []string{"b@x.com", "a@x.com", "c@x.com"} {
		if !r.Add(id) {
			t.Fatalf("expected %s to be added", id)
		}
	}
	if r.Add("a@x.com") {
		t.Fatalf("expected duplicate add to be rejected")
	}
	if !r.Remove("a@x.com") {
		t.Fatalf("expected a@x.com to be removed")
	}
	if r.Remove("a@x.com") {
		t.Fatalf("expected second remove to report absence")
	}

	got := r.Members()
	want := []string{"b@x.com", "c@x.com"}
	if len(got) != len(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v got %v", want, got)
		}
	}
	if r.Len() != 2 || !r.Contains("c@x.com") || r.Contains("a@x.com") {
		t.Fatalf("unexpected roster state %v", got)
	}
}

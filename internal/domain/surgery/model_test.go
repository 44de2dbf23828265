package surgery

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusScheduled, StatusInProgress, true},
		{StatusScheduled, StatusPostponed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusPending, StatusScheduled, true},
		{StatusPending, StatusInProgress, false},
		{StatusPostponed, StatusScheduled, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusScheduled, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusScheduled, StatusScheduled, true}, // no-op patch
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityElective, PriorityUrgent, PriorityEmergent} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if Priority("stat").Valid() {
		t.Error("unknown priority accepted")
	}
}

func TestValidAnesthesiaType(t *testing.T) {
	if !ValidAnesthesiaType("general") || !ValidAnesthesiaType("none") {
		t.Error("known anesthesia types rejected")
	}
	if ValidAnesthesiaType("spinal") {
		t.Error("unknown anesthesia type accepted")
	}
}

func TestCaseActive(t *testing.T) {
	c := &Case{Status: StatusScheduled}
	if !c.Active() {
		t.Error("scheduled case should be active")
	}
	c.Status = StatusCancelled
	if c.Active() {
		t.Error("cancelled case should not be active")
	}
	c.Status = StatusCompleted
	if c.Active() {
		t.Error("completed case should not be active")
	}
}

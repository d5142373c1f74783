package sessionize

import (
	"reflect"
	"testing"
	"time"
)

func TestSessionize_InactivityGapScenario(t *testing.T) {
	// Events at minutes 0, 5, 40 with a 30 minute threshold: the 35 minute
	// gap crosses it, the 5 minute gap does not.
	raw := []RawEvent{
		rawAt(1, 0, "page_view"),
		rawAt(1, 5*time.Minute, "page_view"),
		rawAt(1, 40*time.Minute, "page_view"),
	}

	events, _, err := Sessionize(raw, Options{SessionLength: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	wantDiff := []float64{0, 5, 35}
	wantNew := []int{0, 0, 1}
	wantSession := []int{0, 0, 1}
	for i, e := range events {
		if e.TimeDiff != wantDiff[i] {
			t.Errorf("event %d: time diff %v, want %v", i, e.TimeDiff, wantDiff[i])
		}
		if e.NewSession != wantNew[i] {
			t.Errorf("event %d: new session %d, want %d", i, e.NewSession, wantNew[i])
		}
		if e.SessionNumber != wantSession[i] {
			t.Errorf("event %d: session number %d, want %d", i, e.SessionNumber, wantSession[i])
		}
	}
}

func TestSessionize_SingleEventCustomer(t *testing.T) {
	events, _, err := Sessionize([]RawEvent{rawAt(9, 0, "page_view")}, Options{SessionLength: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.TimeDiff != 0 || e.NewSession != 0 || e.SessionNumber != 0 {
		t.Errorf("single event: got diff=%v new=%d session=%d, want all zero", e.TimeDiff, e.NewSession, e.SessionNumber)
	}
}

func TestSessionize_GapEqualToThresholdStaysInSession(t *testing.T) {
	raw := []RawEvent{
		rawAt(1, 0, "page_view"),
		rawAt(1, 30*time.Minute, "page_view"),
	}

	events, _, err := Sessionize(raw, Options{SessionLength: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events[1].SessionNumber != 0 {
		t.Errorf("gap equal to threshold must not start a session, got session %d", events[1].SessionNumber)
	}
}

func TestSessionize_ZeroThreshold(t *testing.T) {
	// With a zero threshold every positive gap starts a session, but
	// simultaneous events stay together.
	id := int64(1)
	raw := []RawEvent{
		{CustomerID: &id, Timestamp: base, Type: "page_view"},
		{CustomerID: &id, Timestamp: base, Type: "add_to_cart"},
		{CustomerID: &id, Timestamp: base.Add(time.Second), Type: "page_view"},
		{CustomerID: &id, Timestamp: base.Add(2 * time.Second), Type: "page_view"},
	}

	events, _, err := Sessionize(raw, Options{SessionLength: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantSession := []int{0, 0, 1, 2}
	for i, e := range events {
		if e.SessionNumber != wantSession[i] {
			t.Errorf("event %d: session number %d, want %d", i, e.SessionNumber, wantSession[i])
		}
	}
}

func TestSessionize_SubMinuteGapsAreFractional(t *testing.T) {
	raw := []RawEvent{
		rawAt(1, 0, "page_view"),
		rawAt(1, 90*time.Second, "page_view"),
	}

	events, _, err := Sessionize(raw, Options{SessionLength: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events[1].TimeDiff != 1.5 {
		t.Errorf("expected fractional time diff 1.5, got %v", events[1].TimeDiff)
	}
	if events[1].NewSession != 1 {
		t.Errorf("1.5 minute gap must cross a 1 minute threshold")
	}
}

func TestSessionize_CustomersAreIndependent(t *testing.T) {
	raw := []RawEvent{
		rawAt(1, 0, "page_view"),
		rawAt(2, 1*time.Minute, "page_view"),
		rawAt(1, 60*time.Minute, "page_view"),
		rawAt(2, 2*time.Minute, "page_view"),
		{CustomerID: nil, Timestamp: base.Add(61 * time.Minute), Type: "page_view"},
	}

	events, stats, err := Sessionize(raw, Options{SessionLength: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.NullCustomerID != 1 {
		t.Errorf("expected 1 dropped record, got %d", stats.NullCustomerID)
	}

	sessions := map[int64][]int{}
	for _, e := range events {
		sessions[e.CustomerID] = append(sessions[e.CustomerID], e.SessionNumber)
	}
	if !reflect.DeepEqual(sessions[1], []int{0, 1}) {
		t.Errorf("customer 1 sessions: got %v, want [0 1]", sessions[1])
	}
	if !reflect.DeepEqual(sessions[2], []int{0, 0}) {
		t.Errorf("customer 2 sessions: got %v, want [0 0]", sessions[2])
	}
}

func TestSessionize_ConcurrentMatchesSequential(t *testing.T) {
	var raw []RawEvent
	for c := int64(1); c <= 20; c++ {
		for i := 0; i < 50; i++ {
			raw = append(raw, rawAt(c, time.Duration(i*int(c))*time.Minute, "page_view"))
		}
	}

	seq, _, err := Sessionize(raw, Options{SessionLength: 15})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, _, err := Sessionize(raw, Options{SessionLength: 15, Workers: 8})
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Fatal("concurrent segmentation diverged from sequential")
	}
}

func TestSegmentPartition_EmptyIsInvariantViolation(t *testing.T) {
	if err := segmentPartition(nil, 30); err != ErrEmptyPartition {
		t.Fatalf("expected ErrEmptyPartition, got %v", err)
	}
}

package funnel

import (
	"errors"
	"testing"
	"time"

	"shopfunnel/internal/sessionize"
)

var base = time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)

func event(customer int64, offset time.Duration, session int, typ string) sessionize.Event {
	return sessionize.Event{
		CustomerID:    customer,
		Timestamp:     base.Add(offset),
		SessionNumber: session,
		Type:          typ,
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		name       string
		population []float64
		want       float64
		wantErr    bool
	}{
		{"odd", []float64{1, 2, 3}, 2, false},
		{"even", []float64{1, 2, 3, 4}, 2.5, false},
		{"unsorted", []float64{3, 1, 2}, 2, false},
		{"empty", nil, 0, true},
	}
	for _, tc := range cases {
		got, err := median(tc.population)
		if tc.wantErr {
			if !errors.Is(err, ErrNoData) {
				t.Errorf("%s: expected ErrNoData, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: median %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAggregate_TwoCustomerFunnel(t *testing.T) {
	// Customer 1 places one order after two full browsing sessions (the
	// order opens session 2); customer 2's order is their very first event.
	// Gap population is [2, 0], median 1.0.
	events := []sessionize.Event{
		event(1, 0, 0, "page_view"),
		event(1, 5*time.Minute, 0, "page_view"),
		event(1, 60*time.Minute, 1, "page_view"),
		event(1, 70*time.Minute, 1, "add_to_cart"),
		event(1, 150*time.Minute, 2, sessionize.EventTypeOrder),
		event(2, 0, 0, sessionize.EventTypeOrder),
		event(2, time.Minute, 0, "page_view"),
	}

	snap, err := Aggregate(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.MedianVisitsBeforeOrder != 1.0 {
		t.Errorf("median visits before order: got %v, want 1.0", snap.MedianVisitsBeforeOrder)
	}
	// Pre-first-order sessions are customer 1's session 0 (5 minutes) and
	// session 1 (10 minutes); customer 2 has none.
	if snap.MedianSessionDurationMinutesBeforeOrder != 7.5 {
		t.Errorf("median session duration: got %v, want 7.5", snap.MedianSessionDurationMinutesBeforeOrder)
	}
}

func TestAggregate_GapsBetweenConsecutiveOrders(t *testing.T) {
	// One customer, two orders. Browsing after the first order still counts
	// toward order number 1, so its max session is 4: gaps are [4, 1],
	// median 2.5. A single pre-order session backs the duration metric.
	events := []sessionize.Event{
		event(1, 0, 0, "page_view"),
		event(1, 40*time.Minute, 1, "page_view"),
		event(1, 90*time.Minute, 2, sessionize.EventTypeOrder),
		event(1, 140*time.Minute, 3, "page_view"),
		event(1, 190*time.Minute, 4, "page_view"),
		event(1, 240*time.Minute, 5, sessionize.EventTypeOrder),
	}

	snap, err := Aggregate(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.MedianVisitsBeforeOrder != 2.5 {
		t.Errorf("median visits before order: got %v, want 2.5", snap.MedianVisitsBeforeOrder)
	}
}

func TestAggregate_SessionSpanningFirstOrder(t *testing.T) {
	// Browsing and the order share session 0: the duration window only
	// covers the rows before the order, not the order row itself.
	events := []sessionize.Event{
		event(1, 0, 0, "page_view"),
		event(1, 4*time.Minute, 0, "page_view"),
		event(1, 10*time.Minute, 0, sessionize.EventTypeOrder),
	}

	snap, err := Aggregate(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.MedianVisitsBeforeOrder != 0 {
		t.Errorf("order in the first session means a 0 gap, got %v", snap.MedianVisitsBeforeOrder)
	}
	if snap.MedianSessionDurationMinutesBeforeOrder != 4 {
		t.Errorf("duration must stop at the last pre-order event: got %v, want 4", snap.MedianSessionDurationMinutesBeforeOrder)
	}
}

func TestAggregate_NoEvents(t *testing.T) {
	if _, err := Aggregate(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty table: expected ErrNoData, got %v", err)
	}
}

func TestAggregate_NoOrders(t *testing.T) {
	events := []sessionize.Event{
		event(1, 0, 0, "page_view"),
		event(1, 5*time.Minute, 0, "page_view"),
		event(2, 0, 0, "add_to_cart"),
	}
	if _, err := Aggregate(events); !errors.Is(err, ErrNoData) {
		t.Fatalf("no orders: expected ErrNoData, got %v", err)
	}
}

func TestAggregate_UnorderedInput(t *testing.T) {
	// The aggregator sorts per customer itself; shuffled input must not
	// change the result.
	events := []sessionize.Event{
		event(1, 150*time.Minute, 2, sessionize.EventTypeOrder),
		event(1, 5*time.Minute, 0, "page_view"),
		event(1, 0, 0, "page_view"),
		event(1, 60*time.Minute, 1, "page_view"),
	}

	snap, err := Aggregate(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.MedianVisitsBeforeOrder != 2 {
		t.Errorf("median visits before order: got %v, want 2", snap.MedianVisitsBeforeOrder)
	}
}

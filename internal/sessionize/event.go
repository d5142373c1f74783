// Package sessionize partitions a raw batch of customer events and derives
// per-customer sessions from inactivity gaps. It is a pure in-memory batch
// transform: no I/O, no shared state between runs. Re-running over the same
// raw events with a different threshold is the supported way to re-sessionize.
package sessionize

import (
	"errors"
	"time"
)

// EventTypeOrder marks an order-completion event. Every other type is
// treated as a browsing event.
const EventTypeOrder = "placed_order"

// RawEvent is one record as delivered by the ingestion source. CustomerID is
// nullable; records without one are silently dropped before partitioning
// (counted in DropStats, never signalled as an error).
type RawEvent struct {
	CustomerID *int64
	Timestamp  time.Time
	Type       string

	// Attributes carries any extra payload fields from the source line so
	// callers can persist them without schema changes.
	Attributes map[string]any
}

// Event is a RawEvent annotated by the segmenter. Annotation is additive:
// the raw fields are copied through unchanged.
type Event struct {
	CustomerID int64
	Timestamp  time.Time

	// TimeDiff is the gap to the customer's previous event in minutes,
	// computed at microsecond resolution. 0 for the first event.
	TimeDiff float64

	// NewSession is 1 when this event crossed the inactivity threshold and
	// started a new session, else 0. Always 0 for the first event.
	NewSession int

	// SessionNumber counts boundaries crossed so far for this customer,
	// starting at 0 and incrementing by exactly 1 per boundary.
	SessionNumber int

	Type       string
	Attributes map[string]any
}

// DropStats reports records excluded during partitioning.
type DropStats struct {
	NullCustomerID int
}

// ErrEmptyPartition indicates a customer partition with zero events reached
// the segmenter. Partitions are built from surviving events, so this is an
// internal invariant violation, not a data condition.
var ErrEmptyPartition = errors.New("sessionize: empty customer partition")

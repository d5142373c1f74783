package sessionize

import (
	"sync"
	"time"
)

const microsPerMinute = float64(time.Minute / time.Microsecond)

// Options controls one sessionization run.
type Options struct {
	// SessionLength is the inactivity threshold in minutes. A gap strictly
	// greater than it starts a new session; a gap equal to it does not.
	SessionLength int

	// Workers fans segmentation out across customer partitions. Values
	// below 2 run sequentially. Partitions share no state, so the only
	// serialized step is the final merge.
	Workers int
}

// Sessionize partitions the raw batch by customer and annotates every event
// with TimeDiff, NewSession and SessionNumber. The result is ordered by
// customer id ascending, then timestamp ascending, and is byte-identical
// across runs over the same input.
func Sessionize(raw []RawEvent, opts Options) ([]Event, DropStats, error) {
	parts, stats := PartitionByCustomer(raw)

	if opts.Workers > 1 && len(parts) > 1 {
		if err := segmentConcurrent(parts, opts); err != nil {
			return nil, stats, err
		}
	} else {
		for i := range parts {
			if err := segmentPartition(parts[i].Events, opts.SessionLength); err != nil {
				return nil, stats, err
			}
		}
	}

	total := 0
	for i := range parts {
		total += len(parts[i].Events)
	}
	out := make([]Event, 0, total)
	for i := range parts {
		out = append(out, parts[i].Events...)
	}
	return out, stats, nil
}

// segmentPartition annotates one customer's chronologically ordered events
// in place. The first event never triggers a boundary; from the second event
// on, a boundary occurs exactly when the gap exceeds the threshold.
func segmentPartition(events []Event, sessionLength int) error {
	if len(events) == 0 {
		return ErrEmptyPartition
	}

	threshold := float64(sessionLength)
	session := 0

	events[0].TimeDiff = 0
	events[0].NewSession = 0
	events[0].SessionNumber = 0

	for i := 1; i < len(events); i++ {
		gapUs := events[i].Timestamp.Sub(events[i-1].Timestamp).Microseconds()
		diff := float64(gapUs) / microsPerMinute

		events[i].TimeDiff = diff
		events[i].NewSession = 0
		if diff > threshold {
			events[i].NewSession = 1
			session++
		}
		events[i].SessionNumber = session
	}
	return nil
}

// segmentConcurrent runs segmentPartition across a bounded worker pool, one
// task per customer partition. Every worker writes only into its own
// partition's slice, so no locking is needed until the merge.
func segmentConcurrent(parts []Partition, opts Options) error {
	workers := opts.Workers
	if workers > len(parts) {
		workers = len(parts)
	}

	tasks := make(chan int)
	errs := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Keep draining after a failure so the producer never blocks;
			// only the first error is reported.
			for i := range tasks {
				if err := segmentPartition(parts[i].Events, opts.SessionLength); err != nil {
					select {
					case errs <- err:
					default:
					}
				}
			}
		}()
	}

	for i := range parts {
		tasks <- i
	}
	close(tasks)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

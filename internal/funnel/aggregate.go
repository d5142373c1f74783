// Package funnel computes order-relative browsing metrics over a fully
// sessionized event table. The aggregator is a pure function of its input:
// it holds no cache and is recomputed from current stored state on demand.
package funnel

import (
	"errors"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"shopfunnel/internal/sessionize"
)

// ErrNoData indicates an empty source population. It is distinct from a
// computed value of 0.0: zero means "zero sessions/minutes", ErrNoData means
// "insufficient data to say".
var ErrNoData = errors.New("funnel: no data to aggregate")

// Snapshot is the immutable metrics result returned to the API layer.
type Snapshot struct {
	MedianVisitsBeforeOrder                 float64 `json:"median_visits_before_order"`
	MedianSessionDurationMinutesBeforeOrder float64 `json:"median_session_duration_minutes_before_order"`
}

// Aggregate computes the funnel snapshot from a segmented event table.
//
// Per customer it assigns every event an order number (running count of
// placed orders, inclusive, 0 before the first), then derives two
// populations across all customers:
//
//   - one session-count gap per order: the max session number seen under
//     that order number minus the previous order's, with 0 as the baseline
//     for the first order;
//   - one duration per (customer, session) restricted to events before the
//     customer's first order, as last minus first timestamp in minutes.
//
// Both metrics are medians of their populations. If either population is
// empty the whole call fails with ErrNoData; there are no partial snapshots.
func Aggregate(events []sessionize.Event) (*Snapshot, error) {
	byCustomer := make(map[int64][]sessionize.Event)
	for _, e := range events {
		byCustomer[e.CustomerID] = append(byCustomer[e.CustomerID], e)
	}

	var gaps []float64
	var durations []float64

	for _, list := range byCustomer {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.Before(list[j].Timestamp)
		})

		type window struct{ first, last time.Time }
		preOrderSessions := make(map[int]*window)
		maxSession := make(map[int]int)

		orderNumber := 0
		for _, e := range list {
			if e.Type == sessionize.EventTypeOrder {
				orderNumber++
			}

			if cur, ok := maxSession[orderNumber]; !ok || e.SessionNumber > cur {
				maxSession[orderNumber] = e.SessionNumber
			}

			if orderNumber == 0 {
				w, ok := preOrderSessions[e.SessionNumber]
				if !ok {
					preOrderSessions[e.SessionNumber] = &window{first: e.Timestamp, last: e.Timestamp}
				} else {
					w.last = e.Timestamp
				}
			}
		}

		for k := 1; k <= orderNumber; k++ {
			prev := 0
			if k > 1 {
				prev = maxSession[k-1]
			}
			gaps = append(gaps, float64(maxSession[k]-prev))
		}

		for _, w := range preOrderSessions {
			us := w.last.Sub(w.first).Microseconds()
			durations = append(durations, float64(us)/float64(time.Minute/time.Microsecond))
		}
	}

	visits, err := median(gaps)
	if err != nil {
		return nil, err
	}
	duration, err := median(durations)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		MedianVisitsBeforeOrder:                 visits,
		MedianSessionDurationMinutesBeforeOrder: duration,
	}, nil
}

// median returns the standard median (mean of the two middle values for even
// cardinality) and ErrNoData for an empty population.
func median(population []float64) (float64, error) {
	m, err := stats.Median(stats.Float64Data(population))
	if err != nil {
		return 0, ErrNoData
	}
	return m, nil
}

package sessionize

import "sort"

// Partition is one customer's events, ordered by timestamp ascending with
// ties kept in original arrival order.
type Partition struct {
	CustomerID int64
	Events     []Event
}

// PartitionByCustomer filters out records without a customer id, groups the
// rest by customer and orders each group chronologically. Output is
// deterministic for a fixed input: partitions come back in ascending
// customer id order and equal timestamps keep their arrival order.
func PartitionByCustomer(raw []RawEvent) ([]Partition, DropStats) {
	var stats DropStats

	groups := make(map[int64][]Event)
	for _, r := range raw {
		if r.CustomerID == nil {
			stats.NullCustomerID++
			continue
		}
		groups[*r.CustomerID] = append(groups[*r.CustomerID], Event{
			CustomerID: *r.CustomerID,
			Timestamp:  r.Timestamp,
			Type:       r.Type,
			Attributes: r.Attributes,
		})
	}

	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]Partition, 0, len(ids))
	for _, id := range ids {
		events := groups[id]
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Timestamp.Before(events[j].Timestamp)
		})
		parts = append(parts, Partition{CustomerID: id, Events: events})
	}

	return parts, stats
}

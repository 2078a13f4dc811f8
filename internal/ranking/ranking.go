// Package ranking aggregates records per actor and produces the stable
// top-N views used by the report's "paling boros" sections.
package ranking

import (
	"sort"

	"github.com/byru-rnd/kasbon-analytics/internal/dataset"
)

// TopN is how many actors each ranking view keeps.
const TopN = 10

// keySep joins identity key parts. Unit separator: cannot occur in the
// source columns.
const keySep = "\x1f"

// ActorAggregate is one ranked entity: all records sharing an identity key.
// The key has a fixed shape (display name, user ID, company) with an empty
// string standing in for an absent company, so ranking has one code path
// whether or not the optional columns were present.
type ActorAggregate struct {
	Key         string
	DisplayName string
	UserID      string
	CompanyName string
	TxCount     int
	TotalAmount float64
}

// Aggregate groups records by actor identity, preserving first-encounter
// order. The input is expected to be the segment's date-sorted record
// slice, which makes the group order deterministic.
func Aggregate(records []dataset.Record) []ActorAggregate {
	var actors []ActorAggregate
	position := make(map[string]int)

	for _, rec := range records {
		key := rec.EmployeeName + keySep + rec.UserID + keySep + rec.CompanyName
		i, ok := position[key]
		if !ok {
			i = len(actors)
			position[key] = i
			actors = append(actors, ActorAggregate{
				Key:         key,
				DisplayName: rec.EmployeeName,
				UserID:      rec.UserID,
				CompanyName: rec.CompanyName,
			})
		}
		actors[i].TxCount++
		actors[i].TotalAmount += rec.Amount
	}

	return actors
}

// TopByAmount returns up to TopN actors sorted descending by total amount.
// Ties keep first-encounter order: the sort is stable and no secondary key
// is applied.
func TopByAmount(actors []ActorAggregate) []ActorAggregate {
	return top(actors, func(a, b ActorAggregate) bool {
		return a.TotalAmount > b.TotalAmount
	})
}

// TopByCount returns up to TopN actors sorted descending by transaction
// count, with the same tie rule as TopByAmount.
func TopByCount(actors []ActorAggregate) []ActorAggregate {
	return top(actors, func(a, b ActorAggregate) bool {
		return a.TxCount > b.TxCount
	})
}

func top(actors []ActorAggregate, less func(a, b ActorAggregate) bool) []ActorAggregate {
	sorted := make([]ActorAggregate, len(actors))
	copy(sorted, actors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	if len(sorted) > TopN {
		sorted = sorted[:TopN]
	}
	return sorted
}

// SegmentRanking pairs a segment with its two ranking views.
type SegmentRanking struct {
	Name     string
	ByAmount []ActorAggregate
	ByCount  []ActorAggregate
}

// Rank builds both ranking views for one segment's records.
func Rank(name string, records []dataset.Record) SegmentRanking {
	actors := Aggregate(records)
	return SegmentRanking{
		Name:     name,
		ByAmount: TopByAmount(actors),
		ByCount:  TopByCount(actors),
	}
}

// Package inspection implements the inspection aggregation and
// classification engine: grouping by vehicle, latest-record selection,
// defect classification, remark/photo extraction and fleet statistics.
//
// Every function here is pure. Inputs are treated as immutable snapshots
// and results are rebuilt from scratch whenever the inputs change.
package inspection

import "github.com/WessleyAI/wessley-inspect/engine/domain"

// Index groups inspections by normalized vehicle id.
type Index struct {
	// Grouped holds each vehicle's inspections in input order.
	Grouped map[string][]*domain.Inspection
	// Latest holds the inspection with the greatest date per vehicle.
	Latest map[string]*domain.Inspection
	// Keys lists normalized ids in first-seen order.
	Keys []string
	// Count is the number of inspections that were grouped.
	Count int
}

// Aggregate builds an Index in one pass over inspections, in input order.
//
// Records whose id normalizes to "" are dropped. Dates that cannot be parsed
// count as epoch zero and never displace a stored record, so an undated
// record wins only when it is the first seen. Otherwise the stored latest
// record is replaced only by a strictly greater timestamp, so exact ties
// keep the first record seen.
// Returned pointers refer into inspections, which must not be mutated.
func Aggregate(inspections []domain.Inspection, loc domain.Locale) *Index {
	idx := &Index{
		Grouped: make(map[string][]*domain.Inspection),
		Latest:  make(map[string]*domain.Inspection),
	}
	stamps := make(map[string]int64)

	for i := range inspections {
		in := &inspections[i]
		key := in.Key()
		if key == "" {
			continue
		}
		if _, seen := idx.Grouped[key]; !seen {
			idx.Keys = append(idx.Keys, key)
		}
		idx.Grouped[key] = append(idx.Grouped[key], in)
		idx.Count++

		t, valid := loc.Parse(in.Date)
		var ts int64
		if valid {
			ts = t.UnixMilli()
		}
		if _, ok := idx.Latest[key]; !ok || (valid && ts > stamps[key]) {
			idx.Latest[key] = in
			stamps[key] = ts
		}
	}
	return idx
}

// LatestFor returns the latest inspection for a raw vehicle id, or nil.
func (idx *Index) LatestFor(id string) *domain.Inspection {
	if idx == nil {
		return nil
	}
	return idx.Latest[domain.Normalize(id)]
}

// History returns every inspection for a raw vehicle id in input order.
func (idx *Index) History(id string) []*domain.Inspection {
	if idx == nil {
		return nil
	}
	return idx.Grouped[domain.Normalize(id)]
}

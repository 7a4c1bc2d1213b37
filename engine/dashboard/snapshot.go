package dashboard

import (
	"time"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/export"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
	"github.com/WessleyAI/wessley-inspect/engine/source"
)

// Snapshot is one committed dataset with everything derived from it. It is
// built once per successful refresh and never modified afterwards.
type Snapshot struct {
	Version     uint64
	Params      source.Params
	Vehicles    []domain.Vehicle
	Inspections []domain.Inspection
	Index       *inspection.Index
	// ByKey maps normalized vehicle ids to vehicles; later duplicates win.
	ByKey     map[string]domain.Vehicle
	Stats     inspection.Stats
	FetchedAt time.Time
	Took      time.Duration
}

type dataset struct {
	params      source.Params
	vehicles    []domain.Vehicle
	inspections []domain.Inspection
	started     time.Time
}

func buildSnapshot(ds dataset, loc domain.Locale, now time.Time) *Snapshot {
	idx := inspection.Aggregate(ds.inspections, loc)
	byKey := make(map[string]domain.Vehicle, len(ds.vehicles))
	for _, v := range ds.vehicles {
		byKey[v.Key()] = v
	}
	return &Snapshot{
		Params:      ds.params,
		Vehicles:    ds.vehicles,
		Inspections: ds.inspections,
		Index:       idx,
		ByKey:       byKey,
		Stats:       inspection.ComputeStats(ds.vehicles, idx),
		FetchedAt:   now,
		Took:        now.Sub(ds.started),
	}
}

// ExportSource captures the snapshot for a background export.
func (s *Snapshot) ExportSource(loc domain.Locale) export.Source {
	return export.Source{
		Vehicles:    s.Vehicles,
		Inspections: s.Inspections,
		Locale:      loc,
		Version:     s.Version,
	}
}

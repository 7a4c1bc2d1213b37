package dashboard

import (
	"fmt"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
	"github.com/WessleyAI/wessley-inspect/engine/query"
)

// HistoryEntry is one past inspection of a vehicle.
type HistoryEntry struct {
	Date      string             `json:"date"`
	RawDate   string             `json:"rawDate"`
	Inspector string             `json:"inspector"`
	Remark    string             `json:"remark"`
	Images    []string           `json:"images"`
	Status    domain.Status      `json:"status"`
	MapURL    string             `json:"mapUrl,omitempty"`
	Record    *domain.Inspection `json:"record"`
}

// Detail is the full view of one vehicle.
type Detail struct {
	Vehicle   domain.Vehicle    `json:"vehicle"`
	Row       query.Row         `json:"row"`
	Checklist []inspection.Item `json:"checklist"`
	History   []HistoryEntry    `json:"history"`
}

// History returns every inspection of the vehicle with the given id in
// input order. Ids unknown to both record sets are ErrNotFound.
func (d *Dashboard) History(id string) ([]HistoryEntry, error) {
	return d.HistoryAt(d.snap.Load(), id)
}

// HistoryAt is History over s instead of the committed snapshot.
func (d *Dashboard) HistoryAt(s *Snapshot, id string) ([]HistoryEntry, error) {
	s, err := checked(s)
	if err != nil {
		return nil, err
	}
	key := domain.Normalize(id)
	records := s.Index.History(key)
	if _, ok := s.ByKey[key]; !ok && len(records) == 0 {
		return nil, fmt.Errorf("vehicle %q: %w", id, domain.ErrNotFound)
	}
	return d.history(records), nil
}

func (d *Dashboard) history(records []*domain.Inspection) []HistoryEntry {
	loc := d.opts.Locale
	out := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		e := HistoryEntry{
			Date:      inspection.Placeholder,
			RawDate:   r.Date,
			Inspector: r.InspectorOr(inspection.Placeholder),
			Remark:    inspection.RemarkSummary(r),
			Images:    inspection.ImageURLs(r),
			Status:    inspection.RecordStatus(r),
			Record:    r,
		}
		if t, ok := loc.Parse(r.Date); ok {
			e.Date = loc.DateTime(t)
		}
		if u, ok := inspection.MapURL(r, d.opts.MapsHost); ok {
			e.MapURL = u
		}
		out = append(out, e)
	}
	return out
}

// Detail returns the listing row, the checklist of the latest inspection
// and the history of one vehicle.
func (d *Dashboard) Detail(id string) (Detail, error) {
	return d.DetailAt(d.snap.Load(), id)
}

// DetailAt is Detail over s instead of the committed snapshot.
func (d *Dashboard) DetailAt(s *Snapshot, id string) (Detail, error) {
	s, err := checked(s)
	if err != nil {
		return Detail{}, err
	}
	key := domain.Normalize(id)
	v, ok := s.ByKey[key]
	if !ok {
		return Detail{}, fmt.Errorf("vehicle %q: %w", id, domain.ErrNotFound)
	}
	checklist := inspection.Checklist(s.Index.LatestFor(key))
	if checklist == nil {
		checklist = []inspection.Item{}
	}
	return Detail{
		Vehicle:   v,
		Row:       query.BuildRow(v, d.input(s)),
		Checklist: checklist,
		History:   d.history(s.Index.History(key)),
	}, nil
}

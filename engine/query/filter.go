package query

import (
	"strings"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
	"github.com/WessleyAI/wessley-inspect/pkg/fn"
)

// Filter keeps the vehicles matching status and search, in input order.
//
// Search is a case-insensitive substring match against the vehicle id,
// owner name, owner code, latest inspector and the latest inspection date
// as a short locale date. Vehicles without an inspection never match on
// inspector or date.
func Filter(vehicles []domain.Vehicle, idx *inspection.Index, status domain.StatusFilter, search string, loc domain.Locale) []domain.Vehicle {
	term := domain.Normalize(search)
	return fn.Filter(vehicles, func(v domain.Vehicle) bool {
		latest := idx.LatestFor(string(v.ID))
		return MatchStatus(latest, status) && (term == "" || matchSearch(v, latest, term, loc))
	})
}

// MatchStatus reports whether a vehicle with the given latest inspection
// passes the status filter. Unknown filters match everything.
func MatchStatus(latest *domain.Inspection, status domain.StatusFilter) bool {
	switch status {
	case domain.FilterNotChecked:
		return latest == nil
	case domain.FilterDefect:
		return latest != nil && inspection.IsDefect(latest)
	case domain.FilterNormal:
		return latest != nil && !inspection.IsDefect(latest)
	default:
		return true
	}
}

func matchSearch(v domain.Vehicle, latest *domain.Inspection, term string, loc domain.Locale) bool {
	var inspector, date string
	if latest != nil {
		inspector = latest.InspectorOr("")
		date = loc.FormatShort(latest.Date)
	}
	for _, s := range []string{string(v.ID), string(v.OwnerName), string(v.Owner), inspector, date} {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

package inspection

import "github.com/WessleyAI/wessley-inspect/engine/domain"

// Stats are fleet-wide inspection counts.
type Stats struct {
	Total      int `json:"total"`
	NotChecked int `json:"notChecked"`
	Checked    int `json:"checked"`
	Defect     int `json:"defect"`
	Normal     int `json:"normal"`
}

// ComputeStats counts vehicles by the status of their latest inspection.
func ComputeStats(vehicles []domain.Vehicle, idx *Index) Stats {
	s := Stats{Total: len(vehicles)}
	for _, v := range vehicles {
		latest := idx.LatestFor(string(v.ID))
		if latest == nil {
			s.NotChecked++
			continue
		}
		if IsDefect(latest) {
			s.Defect++
		}
	}
	s.Checked = s.Total - s.NotChecked
	s.Normal = s.Checked - s.Defect
	return s
}

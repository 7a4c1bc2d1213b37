package inspection

import (
	"strings"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

// IsDefect reports whether any checklist answer on in is non-compliant.
//
// Only string values are judged: after trimming and lower-casing, "pass",
// "n/a" and "" are compliant and anything else is a defect. Numbers,
// booleans, null and nested values never are. A nil inspection is not a
// defect; whether a vehicle was inspected at all is decided by StatusOf.
func IsDefect(in *domain.Inspection) bool {
	if in == nil {
		return false
	}
	for _, f := range in.Fields {
		if domain.IsMetaKey(f.Key) {
			continue
		}
		s, ok := f.Value.(string)
		if !ok {
			continue
		}
		if !compliant(s) {
			return true
		}
	}
	return false
}

func compliant(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "n/a", "":
		return true
	}
	return false
}

// StatusOf derives a vehicle's status from its latest inspection.
func StatusOf(latest *domain.Inspection) domain.Status {
	switch {
	case latest == nil:
		return domain.StatusNotInspected
	case IsDefect(latest):
		return domain.StatusDefect
	default:
		return domain.StatusNormal
	}
}

// RecordStatus classifies a single inspection record as Defect or Normal.
func RecordStatus(in *domain.Inspection) domain.Status {
	if IsDefect(in) {
		return domain.StatusDefect
	}
	return domain.StatusNormal
}

package inspection

import (
	"encoding/json"
	"testing"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

// decode builds inspections from JSON so tests exercise real key order.
func decode(t *testing.T, raw string) []domain.Inspection {
	t.Helper()
	var out []domain.Inspection
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode inspections: %v", err)
	}
	return out
}

func one(t *testing.T, raw string) *domain.Inspection {
	t.Helper()
	list := decode(t, "["+raw+"]")
	return &list[0]
}

package inspection

import (
	"strings"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

// Item is one checklist answer with its remark and photo satellites.
type Item struct {
	FieldKey  string `json:"field"`
	Value     any    `json:"value"`
	RemarkKey string `json:"remarkKey,omitempty"`
	PhotoKey  string `json:"photoKey,omitempty"`
	Remark    string `json:"remark,omitempty"`
	Photo     string `json:"photo,omitempty"`
	Compliant bool   `json:"compliant"`
}

// Checklist builds the explicit checklist of an inspection.
//
// A key K+"R" or K+"P" is a satellite of K only when K is itself a
// checklist item on the same record; otherwise it is an item of its own.
// Items keep field order.
func Checklist(in *domain.Inspection) []Item {
	if in == nil {
		return nil
	}
	keys := make(map[string]bool, len(in.Fields))
	for _, f := range in.Fields {
		if !domain.IsMetaKey(f.Key) {
			keys[f.Key] = true
		}
	}
	memo := make(map[string]string)
	var baseOf func(key string) string
	baseOf = func(key string) string {
		if b, ok := memo[key]; ok {
			return b
		}
		b := ""
		if len(key) > 1 && (strings.HasSuffix(key, remarkSuffix) || strings.HasSuffix(key, photoSuffix)) {
			cand := key[:len(key)-1]
			if keys[cand] && baseOf(cand) == "" {
				b = cand
			}
		}
		memo[key] = b
		return b
	}

	var items []Item
	pos := make(map[string]int)
	for _, f := range in.Fields {
		if domain.IsMetaKey(f.Key) || baseOf(f.Key) != "" {
			continue
		}
		compliantValue := true
		if s, ok := f.Value.(string); ok {
			compliantValue = compliant(s)
		}
		pos[f.Key] = len(items)
		items = append(items, Item{FieldKey: f.Key, Value: f.Value, Compliant: compliantValue})
	}
	for _, f := range in.Fields {
		base := baseOf(f.Key)
		if base == "" || domain.IsMetaKey(f.Key) {
			continue
		}
		it := &items[pos[base]]
		if strings.HasSuffix(f.Key, remarkSuffix) {
			it.RemarkKey = f.Key
			if truthy(f.Value) {
				it.Remark = Stringify(f.Value)
			}
			continue
		}
		it.PhotoKey = f.Key
		if s, ok := f.Value.(string); ok && strings.HasPrefix(s, "http") {
			it.Photo = s
		}
	}
	return items
}

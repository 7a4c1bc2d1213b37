// Package domain defines the vehicle and inspection records shared by the
// inspection engine, together with identifier normalization, status values,
// date handling and the error taxonomy used at package boundaries.
package domain

import (
	"encoding/json"
	"strings"
)

// Normalize canonicalizes a free-text identifier for joining and grouping.
// The empty string stands in for a missing identifier.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// metaKeys are inspection keys that never count as checklist items.
var metaKeys = map[string]bool{
	"id":         true,
	"date":       true,
	"inspector":  true,
	"mileage":    true,
	"remark":     true,
	"lat":        true,
	"lng":        true,
	"_id":        true,
	"type":       true,
	"db":         true,
	"collection": true,
}

// IsMetaKey reports whether key is a reserved inspection key (case-insensitive).
func IsMetaKey(key string) bool {
	return metaKeys[strings.ToLower(key)]
}

// FlexString decodes a JSON string, number or boolean into its text form.
// Null, objects and arrays decode to the empty string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	*s = FlexString(flexText(b))
	return nil
}

// String returns the underlying text.
func (s FlexString) String() string { return string(s) }

func flexText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return ""
		}
		return v
	case 't', 'f':
		return string(b)
	case 'n', '{', '[':
		return ""
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return ""
		}
		return n.String()
	}
}

// Vehicle is one registered vehicle. ID is the join key to inspections;
// uniqueness is assumed, not enforced.
type Vehicle struct {
	ObjectID  FlexString `json:"_id,omitempty"`
	ID        FlexString `json:"id"`
	Owner     FlexString `json:"owner"`
	OwnerName FlexString `json:"ownerName"`
	Site      FlexString `json:"site"`
	Type      FlexString `json:"type"`
}

// Key returns the vehicle's normalized identifier.
func (v Vehicle) Key() string { return Normalize(string(v.ID)) }

// Status is the derived inspection state of a vehicle.
type Status string

const (
	StatusNotInspected Status = "Not-Inspected"
	StatusNormal       Status = "Normal"
	StatusDefect       Status = "Defect"
)

// StatusFilter selects vehicles by status in listings.
type StatusFilter string

const (
	FilterAll        StatusFilter = "all"
	FilterDefect     StatusFilter = "defect"
	FilterNormal     StatusFilter = "normal"
	FilterNotChecked StatusFilter = "notChecked"
)

// StatusFilters lists the accepted filters in display order.
var StatusFilters = []StatusFilter{FilterAll, FilterNotChecked, FilterDefect, FilterNormal}

// ParseStatusFilter parses a filter name case-insensitively. The empty
// string means FilterAll.
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range StatusFilters {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", NewValidationError("status", s, ErrInvalidParam)
}

// Package export flattens the full inspection dataset into a spreadsheet.
//
// Build produces one row per inspection record regardless of any listing
// filter. WriteXLSX serializes the table and Jobs runs exports in the
// background from an immutable snapshot.
package export

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
)

// SheetName is the worksheet holding the export.
const SheetName = "Inspection Details"

// DynamicWidth is the width of every checklist column.
const DynamicWidth = 15

// Column is one spreadsheet column.
type Column struct {
	Key    string
	Header string
	Width  float64
}

// FixedColumns lead every export, in order.
var FixedColumns = []Column{
	{Key: "id", Header: "ID", Width: 15},
	{Key: "owner", Header: "Owner", Width: 20},
	{Key: "date", Header: "Inspection Date", Width: 25},
	{Key: "inspector", Header: "Inspector", Width: 25},
	{Key: "mileage", Header: "Mileage", Width: 25},
	{Key: "remark", Header: "Remark", Width: 40},
	{Key: "status", Header: "Status", Width: 12},
}

// Table is the flattened export: header columns plus one row of cell
// values per inspection. Cells are string, float64 or bool.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Build flattens every inspection into a row.
//
// Owner is the owner code of the vehicle with the same normalized id
// (later duplicates win), or "-". Inspector, mileage and remark default to
// "-". The date is empty when absent and left as the raw text when it
// cannot be parsed. Checklist columns are the union of non-meta keys in
// first-seen order; a row lacking a key, or holding null, gets "".
func Build(vehicles []domain.Vehicle, inspections []domain.Inspection, loc domain.Locale) Table {
	owners := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		owners[v.Key()] = string(v.Owner)
	}

	var dynamic []string
	seen := make(map[string]bool)
	for i := range inspections {
		for _, f := range inspections[i].Fields {
			if domain.IsMetaKey(f.Key) || seen[f.Key] {
				continue
			}
			seen[f.Key] = true
			dynamic = append(dynamic, f.Key)
		}
	}

	t := Table{Columns: make([]Column, 0, len(FixedColumns)+len(dynamic))}
	t.Columns = append(t.Columns, FixedColumns...)
	for _, k := range dynamic {
		t.Columns = append(t.Columns, Column{Key: k, Header: k, Width: DynamicWidth})
	}

	t.Rows = make([][]any, 0, len(inspections))
	for i := range inspections {
		in := &inspections[i]
		owner, ok := owners[in.Key()]
		if !ok {
			owner = inspection.Placeholder
		}
		row := make([]any, 0, len(t.Columns))
		row = append(row,
			in.ID,
			owner,
			dateCell(in.Date, loc),
			in.InspectorOr(inspection.Placeholder),
			cellOr(in.Mileage, inspection.Placeholder),
			cellOr(in.Remark, inspection.Placeholder),
			string(inspection.RecordStatus(in)),
		)
		for _, k := range dynamic {
			v, _ := in.Field(k)
			row = append(row, cellOr(v, ""))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FileName names an export produced at t.
func FileName(t time.Time) string {
	return "VehicleInspectionAll_" + strconv.FormatInt(t.UnixMilli(), 10) + ".xlsx"
}

func dateCell(s string, loc domain.Locale) string {
	if s == "" {
		return ""
	}
	t, ok := loc.Parse(s)
	if !ok {
		return s
	}
	return loc.DateTime(t)
}

func cellOr(v any, fallback string) any {
	switch t := v.(type) {
	case nil:
		return fallback
	case string:
		return t
	case bool:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case float64:
		return t
	default:
		return inspection.Stringify(t)
	}
}

package query

import (
	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
)

// NotAvailable stands in for missing values in listing rows.
const NotAvailable = "N/A"

// Row is the listing view of one vehicle.
type Row struct {
	ID           string        `json:"id"`
	Owner        string        `json:"owner"`
	OwnerName    string        `json:"ownerName"`
	Site         string        `json:"site"`
	Type         string        `json:"type"`
	Status       domain.Status `json:"status"`
	LatestDate   string        `json:"latestDate"`
	Inspector    string        `json:"inspector"`
	Mileage      string        `json:"mileage"`
	Remark       string        `json:"remark"`
	Images       []string      `json:"images"`
	MapURL       string        `json:"mapUrl,omitempty"`
	HistoryCount int           `json:"historyCount"`
}

// Input is the dataset a query runs against.
type Input struct {
	Vehicles []domain.Vehicle
	Index    *inspection.Index
	Locale   domain.Locale
	MapsHost string
}

// BuildRow projects a vehicle and its latest inspection into a Row.
func BuildRow(v domain.Vehicle, in Input) Row {
	latest := in.Index.LatestFor(string(v.ID))
	r := Row{
		ID:           string(v.ID),
		Owner:        string(v.Owner),
		OwnerName:    string(v.OwnerName),
		Site:         string(v.Site),
		Type:         string(v.Type),
		Status:       inspection.StatusOf(latest),
		LatestDate:   NotAvailable,
		Inspector:    latest.InspectorOr(NotAvailable),
		Mileage:      NotAvailable,
		Remark:       inspection.RemarkSummary(latest),
		Images:       inspection.ImageURLs(latest),
		HistoryCount: len(in.Index.History(string(v.ID))),
	}
	if latest == nil {
		return r
	}
	if t, ok := in.Locale.Parse(latest.Date); ok {
		r.LatestDate = in.Locale.LongDateTime(t)
	}
	if latest.Mileage != nil {
		if s := inspection.Stringify(latest.Mileage); s != "" {
			r.Mileage = s + " km"
		}
	}
	if u, ok := inspection.MapURL(latest, in.MapsHost); ok {
		r.MapURL = u
	}
	return r
}

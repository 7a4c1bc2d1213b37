// Package source fetches vehicle and inspection record sets from the
// upstream data endpoint.
package source

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

// Option is one selectable value with a display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Report areas.
var Areas = []Option{
	{"ieco", "IECO"},
	{"srb", "SRB"},
	{"lbm", "LBM"},
	{"rmx", "RMX"},
	{"iagg", "IAGG"},
	{"office", "OFFICE"},
	{"th", "TH-Other"},
}

// Inspection frequencies, spelled as the upstream collections are named.
var Frequencies = []Option{
	{"daily", "Daily"},
	{"monthly", "Monthly"},
	{"quaterly", "Quarterly"},
	{"annualy", "Annual"},
}

// DayRanges are the accepted inspection look-back windows in days.
var DayRanges = []int{7, 15, 30, 60, 120, 180}

// Params selects one upstream dataset.
type Params struct {
	Area        string `json:"area" yaml:"area"`
	Frequency   string `json:"frequency" yaml:"frequency"`
	VehicleType string `json:"type" yaml:"type"`
	Days        int    `json:"days" yaml:"days"`
}

// DefaultParams is the dataset loaded when nothing else is asked for.
var DefaultParams = Params{Area: "ieco", Frequency: "daily", VehicleType: "car", Days: 7}

func (p Params) String() string {
	return fmt.Sprintf("%s/%s/%s/%dd", p.Area, p.Frequency, p.VehicleType, p.Days)
}

// Normalized lower-cases the area and frequency codes and trims the type.
func (p Params) Normalized() Params {
	p.Area = strings.ToLower(strings.TrimSpace(p.Area))
	p.Frequency = strings.ToLower(strings.TrimSpace(p.Frequency))
	p.VehicleType = strings.TrimSpace(p.VehicleType)
	return p
}

// Merge fills the zero fields of p from base.
func (p Params) Merge(base Params) Params {
	if p.Area == "" {
		p.Area = base.Area
	}
	if p.Frequency == "" {
		p.Frequency = base.Frequency
	}
	if p.VehicleType == "" {
		p.VehicleType = base.VehicleType
	}
	if p.Days == 0 {
		p.Days = base.Days
	}
	return p
}

// Validate checks every field against its catalog.
func (p Params) Validate() error {
	if !hasOption(Areas, p.Area) {
		return domain.NewValidationError("area", p.Area, domain.ErrInvalidParam)
	}
	if !hasOption(Frequencies, p.Frequency) {
		return domain.NewValidationError("frequency", p.Frequency, domain.ErrInvalidParam)
	}
	if p.VehicleType == "" || strings.ContainsAny(p.VehicleType, "&?#/") {
		return domain.NewValidationError("type", p.VehicleType, domain.ErrInvalidParam)
	}
	if !slices.Contains(DayRanges, p.Days) {
		return domain.NewValidationError("days", strconv.Itoa(p.Days), domain.ErrInvalidParam)
	}
	return nil
}

// ParseParams overlays raw request values on base and validates the result.
// Empty values keep the base value.
func ParseParams(area, frequency, vehicleType, days string, base Params) (Params, error) {
	p := Params{Area: area, Frequency: frequency, VehicleType: vehicleType}
	if days = strings.TrimSpace(days); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil {
			return Params{}, domain.NewValidationError("days", days, domain.ErrInvalidParam)
		}
		p.Days = n
	}
	p = p.Normalized().Merge(base)
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// VehicleCollection names the upstream vehicle collection.
func (p Params) VehicleCollection() string { return p.Area + "_" + p.Frequency }

// InspectionCollection names the upstream inspection collection.
func (p Params) InspectionCollection() string { return p.Area + "_" + p.VehicleType }

func hasOption(opts []Option, v string) bool {
	return slices.ContainsFunc(opts, func(o Option) bool { return o.Value == v })
}

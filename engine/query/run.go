package query

import (
	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/pkg/fn"
)

// Result is one listing page.
type Result struct {
	Rows       []Row               `json:"rows"`
	Status     domain.StatusFilter `json:"status"`
	Search     string              `json:"search"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
	Total      int                 `json:"total"`
}

// Run filters the vehicles, slices the requested page and builds its rows.
func Run(in Input, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	p = p.Normalized()

	filtered := Filter(in.Vehicles, in.Index, p.Status, p.Search, in.Locale)
	page := Paginate(filtered, p.Page, p.PageSize)
	return Result{
		Rows:       fn.Map(page.Items, func(v domain.Vehicle) Row { return BuildRow(v, in) }),
		Status:     p.Status,
		Search:     p.Search,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Total:      page.Total,
	}, nil
}

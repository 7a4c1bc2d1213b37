// Package query implements search, status filtering and pagination over
// the vehicle list, and projects the visible page into listing rows.
package query

import (
	"strconv"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

// DefaultPageSize is the listing page size when none is given.
const DefaultPageSize = 25

// PageSizes are the page sizes offered to clients.
var PageSizes = []int{25, 50, 75, 100}

// MaxPageSize bounds client-supplied page sizes.
const MaxPageSize = 500

// Params selects one page of the listing.
//
// PrevPageSize is the page size the client was viewing Page at. When it
// differs from PageSize the request lands on page 1 instead of a page
// number counted in the old size.
type Params struct {
	Status       domain.StatusFilter `json:"status"`
	Search       string              `json:"search"`
	Page         int                 `json:"page"`
	PageSize     int                 `json:"pageSize"`
	PrevPageSize int                 `json:"prevPageSize,omitempty"`
}

// Normalized returns p with defaults applied: the canonical status
// spelling ("all" when empty), page 1 and DefaultPageSize for values below 1.
// A page size change against PrevPageSize resets the page, after which
// PrevPageSize is cleared.
func (p Params) Normalized() Params {
	if f, err := domain.ParseStatusFilter(string(p.Status)); err == nil {
		p.Status = f
	}
	from := p.PrevPageSize
	if from < 1 {
		from = p.PageSize
	}
	if from < 1 {
		from = DefaultPageSize
	}
	c := Cursor{PageSize: from}.WithPage(p.Page).WithPageSize(p.PageSize)
	p.Page, p.PageSize, p.PrevPageSize = c.Page, c.PageSize, 0
	return p
}

// Validate checks the status filter and the page size bound.
func (p Params) Validate() error {
	if p.Status != "" {
		if _, err := domain.ParseStatusFilter(string(p.Status)); err != nil {
			return err
		}
	}
	if p.PageSize > MaxPageSize {
		return domain.NewValidationError("page_size", strconv.Itoa(p.PageSize), domain.ErrInvalidParam)
	}
	if p.PrevPageSize > MaxPageSize {
		return domain.NewValidationError("prev_page_size", strconv.Itoa(p.PrevPageSize), domain.ErrInvalidParam)
	}
	return nil
}

// ParseParams builds Params from raw request values. Empty values take
// defaults; non-numeric page values are rejected. prevPageSize is optional.
func ParseParams(status, search, page, pageSize, prevPageSize string) (Params, error) {
	f, err := domain.ParseStatusFilter(status)
	if err != nil {
		return Params{}, err
	}
	p := Params{Status: f, Search: search}
	if p.Page, err = atoiOr(page, 1, "page"); err != nil {
		return Params{}, err
	}
	if p.PageSize, err = atoiOr(pageSize, DefaultPageSize, "page_size"); err != nil {
		return Params{}, err
	}
	if p.PrevPageSize, err = atoiOr(prevPageSize, 0, "prev_page_size"); err != nil {
		return Params{}, err
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p.Normalized(), nil
}

func atoiOr(s string, fallback int, field string) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.NewValidationError(field, s, domain.ErrInvalidParam)
	}
	return n, nil
}

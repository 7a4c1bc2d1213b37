package query

// Page is one contiguous slice of a filtered list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// Paginate returns items[(page-1)*size : page*size], clamped to the list.
// A page past the end is empty; page and size below 1 take 1 and
// DefaultPageSize.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	n := len(items)
	p := Page[T]{
		Page:       page,
		PageSize:   size,
		Total:      n,
		TotalPages: (n + size - 1) / size,
		Items:      []T{},
	}
	start := (page - 1) * size
	if start >= n {
		return p
	}
	end := start + size
	if end > n {
		end = n
	}
	p.Items = items[start:end]
	return p
}

// Cursor is a position in a paginated listing.
type Cursor struct {
	Page     int
	PageSize int
}

// WithPage moves to page n (at least 1).
func (c Cursor) WithPage(n int) Cursor {
	if n < 1 {
		n = 1
	}
	c.Page = n
	return c
}

// WithPageSize changes the page size. Any change of size returns to page 1
// so the cursor never points past the new last page.
func (c Cursor) WithPageSize(n int) Cursor {
	if n < 1 {
		n = DefaultPageSize
	}
	if n != c.PageSize {
		c.Page = 1
	}
	c.PageSize = n
	return c
}

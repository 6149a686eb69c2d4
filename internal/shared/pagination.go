package shared

// DefaultPerPage is used when a caller supplies no usable page size.
const DefaultPerPage = 10

// Pagination contains metadata for paginated listings. Page is 1-based.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	if total < 0 {
		total = 0
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: TotalPages(total, perPage)}
}

// TotalPages returns ceil(total/perPage). An empty listing has zero pages.
func TotalPages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// DisplayPages is the number of pages a view can navigate. It is never
// below one so an empty listing still renders page 1.
func (p Pagination) DisplayPages() int {
	if p.TotalPages < 1 {
		return 1
	}
	return p.TotalPages
}

// Clamp returns page restricted to [1, DisplayPages()].
func (p Pagination) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if last := p.DisplayPages(); page > last {
		return last
	}
	return page
}

// AfterDelete returns the pagination that results from removing one item
// on the current page. When the current page no longer exists it steps back
// to the new last page; an emptied listing resolves to page 1.
func (p Pagination) AfterDelete() Pagination {
	newTotal := p.Total - 1
	if newTotal < 0 {
		newTotal = 0
	}
	next := NewPagination(p.Page, p.PerPage, newTotal)
	if next.TotalPages > 0 && next.Page > next.TotalPages {
		next.Page = next.TotalPages
	}
	if next.TotalPages == 0 {
		next.Page = 1
	}
	return next
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// PrevPage returns the previous page number, never below 1.
func (p Pagination) PrevPage() int {
	return p.Clamp(p.Page - 1)
}

// NextPage returns the next page number, never beyond the last page.
func (p Pagination) NextPage() int {
	return p.Clamp(p.Page + 1)
}

// FirstItem is the 1-based index of the first row on the page, or 0 when empty.
func (p Pagination) FirstItem() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Page-1)*p.PerPage + 1
}

// LastItem is the 1-based index of the last row on the page.
func (p Pagination) LastItem() int {
	last := p.Page * p.PerPage
	if last > p.Total {
		return p.Total
	}
	return last
}

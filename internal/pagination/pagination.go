// Package pagination turns a slice into a single page window for table views.
package pagination

// DefaultPageSize is used when a caller passes a page size below 1.
const DefaultPageSize = 10

// Page is one window over a list.
type Page[T any] struct {
	Items          []T
	CurrentPage    int // 1-based, clamped into [1, TotalPages]
	TotalPages     int // at least 1, even for an empty list
	StartIndex     int // 1-based position of the first item on the page, 0 when empty
	EndIndex       int // 1-based position of the last item on the page, 0 when empty
	TotalItems     int
	PageSize       int
	ShowPagination bool
}

// Paginate returns the page of items selected by pageSize and currentPage.
// The input slice is never modified and the returned Items do not alias it.
func Paginate[T any](items []T, pageSize, currentPage int) Page[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if currentPage < 1 {
		currentPage = 1
	}
	if currentPage > totalPages {
		currentPage = totalPages
	}

	start := (currentPage - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	page := Page[T]{
		Items:          make([]T, end-start),
		CurrentPage:    currentPage,
		TotalPages:     totalPages,
		TotalItems:     total,
		PageSize:       pageSize,
		ShowPagination: totalPages > 1,
	}
	copy(page.Items, items[start:end])

	if end > start {
		page.StartIndex = start + 1
		page.EndIndex = end
	}
	return page
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool { return p.CurrentPage > 1 }

// HasNext reports whether a next page exists.
func (p Page[T]) HasNext() bool { return p.CurrentPage < p.TotalPages }

// PageNumbers returns at most window page numbers centred on the current page.
func (p Page[T]) PageNumbers(window int) []int {
	if window < 1 || window > p.TotalPages {
		window = p.TotalPages
	}
	first := p.CurrentPage - window/2
	if first < 1 {
		first = 1
	}
	last := first + window - 1
	if last > p.TotalPages {
		last = p.TotalPages
		first = last - window + 1
	}
	nums := make([]int, 0, window)
	for n := first; n <= last; n++ {
		nums = append(nums, n)
	}
	return nums
}

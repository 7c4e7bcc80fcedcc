package panel

const windowSize = 5

type Page[T any] struct {
	Items      []T
	Number     int
	PageSize   int
	Total      int
	TotalPages int
	// Start and End bound the slice shown, End exclusive.
	Start  int
	End    int
	Window []int
}

func (p Page[T]) HasPrev() bool { return p.Number > 1 }

func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// Paginate shows items [(page-1)*size, min(page*size, N)). The page is
// clamped to [1, ceil(N/size)] so the last page is only empty when N is 0.
func Paginate[T any](items []T, page int, size int) Page[T] {
	if size <= 0 {
		size = 10
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}

	return Page[T]{
		Items:      items[start:end],
		Number:     page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
		Start:      start,
		End:        end,
		Window:     pageWindow(page, pages),
	}
}

func pageWindow(page int, pages int) []int {
	start := page - windowSize/2
	if start < 1 {
		start = 1
	}
	end := start + windowSize - 1
	if end > pages {
		end = pages
	}
	start = end - windowSize + 1
	if start < 1 {
		start = 1
	}

	out := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		out = append(out, p)
	}
	return out
}

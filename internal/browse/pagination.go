package browse

// DefaultWindow is the number of numbered page buttons shown at once
const DefaultWindow = 5

// PageButton is one numbered pagination button.
type PageButton struct {
	Page    int
	Current bool
}

// Pagination describes the pagination bar under a result page.
type Pagination struct {
	Current int
	Last    int

	Pages []PageButton

	ShowFirst     bool
	FirstEllipsis bool
	ShowLast      bool
	LastEllipsis  bool

	HasPrev  bool
	PrevPage int
	HasNext  bool
	NextPage int
}

// Paginate computes a sliding window of page buttons centred on current and
// clamped to [1, last]. When the window does not reach page 1 or the last
// page, those are added with an ellipsis if there is a gap.
func Paginate(current, last int, hasNext bool, window int) Pagination {
	if window <= 0 {
		window = DefaultWindow
	}
	if last < 1 {
		last = 1
	}
	if current < 1 {
		current = 1
	}
	if current > last {
		last = current
	}

	start := max(1, current-window/2)
	end := min(last, start+window-1)
	if end-start+1 < window {
		start = max(1, end-window+1)
	}

	p := Pagination{
		Current: current,
		Last:    last,
		Pages:   make([]PageButton, 0, end-start+1),
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PageButton{Page: i, Current: i == current})
	}

	if start > 1 {
		p.ShowFirst = true
		p.FirstEllipsis = start > 2
	}
	if end < last {
		p.ShowLast = true
		p.LastEllipsis = end < last-1
	}

	if current > 1 {
		p.HasPrev = true
		p.PrevPage = current - 1
	}
	if hasNext || current < last {
		p.HasNext = true
		p.NextPage = current + 1
	}
	return p
}

// Visible reports whether the bar has anything to show.
func (p Pagination) Visible() bool {
	return p.Last > 1 || p.HasNext || p.HasPrev
}

// Package pagination computes page counts and first/previous/next/last
// navigation for a fixed-size attendee listing.
//
// Pages are 1-based. A listing with no results has zero pages and every
// navigation action is disabled.
package pagination

// PageSize is the fixed number of attendees per page.
const PageSize = 10

// Action is a navigation control.
type Action int

const (
	First Action = iota
	Previous
	Next
	Last
)

// String returns the action name used on the wire and in logs.
func (a Action) String() string {
	switch a {
	case First:
		return "first"
	case Previous:
		return "previous"
	case Next:
		return "next"
	case Last:
		return "last"
	default:
		return "unknown"
	}
}

// ParseAction maps a wire name back to an Action.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "first":
		return First, true
	case "previous":
		return Previous, true
	case "next":
		return Next, true
	case "last":
		return Last, true
	}
	return 0, false
}

// PageCount returns ceil(total / PageSize), or 0 when total is not positive.
func PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// Model is an immutable view of the pagination state for one listing.
type Model struct {
	total int
	page  int
	pages int
}

// New returns the model for total results while showing page.
func New(total, page int) Model {
	if total < 0 {
		total = 0
	}
	return Model{total: total, page: page, pages: PageCount(total)}
}

func (m Model) Total() int     { return m.total }
func (m Model) Page() int      { return m.page }
func (m Model) PageCount() int { return m.pages }

// LastValidPage is the highest page a listing may sit on: max(1, PageCount).
func (m Model) LastValidPage() int {
	if m.pages < 1 {
		return 1
	}
	return m.pages
}

// Clamp bounds page to [1, LastValidPage].
func (m Model) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if last := m.LastValidPage(); page > last {
		return last
	}
	return page
}

// All four controls are false whenever there are no pages, whatever page
// the URL asked for.
func (m Model) CanGoFirst() bool    { return m.pages > 0 && m.page > 1 }
func (m Model) CanGoPrevious() bool { return m.pages > 0 && m.page > 1 }
func (m Model) CanGoNext() bool { return m.pages > 0 && m.page < m.pages }
func (m Model) CanGoLast() bool { return m.pages > 0 && m.page < m.pages }

// ToFirstPage returns the target of the "first" control.
func (m Model) ToFirstPage() int {
	target, _ := m.Target(First)
	return target
}

// ToPreviousPage returns the target of the "previous" control.
func (m Model) ToPreviousPage() int {
	target, _ := m.Target(Previous)
	return target
}

// ToNextPage returns the target of the "next" control.
func (m Model) ToNextPage() int {
	target, _ := m.Target(Next)
	return target
}

// ToLastPage returns the target of the "last" control.
func (m Model) ToLastPage() int {
	target, _ := m.Target(Last)
	return target
}

// Target returns the clamped page an action leads to. ok is false when
// the action is disabled, in which case the current page is returned.
func (m Model) Target(a Action) (page int, ok bool) {
	switch a {
	case First:
		if !m.CanGoFirst() {
			return m.page, false
		}
		return 1, true
	case Previous:
		if !m.CanGoPrevious() {
			return m.page, false
		}
		return m.Clamp(m.page - 1), true
	case Next:
		if !m.CanGoNext() {
			return m.page, false
		}
		return m.Clamp(m.page + 1), true
	case Last:
		if !m.CanGoLast() {
			return m.page, false
		}
		return m.pages, true
	}
	return m.page, false
}

// Bounds returns the 1-based inclusive range of result positions shown on
// the current page, or (0, 0) when the page holds nothing.
func (m Model) Bounds() (start, end int) {
	if m.total == 0 || m.page < 1 || m.page > m.pages {
		return 0, 0
	}
	start = (m.page-1)*PageSize + 1
	end = start + PageSize - 1
	if end > m.total {
		end = m.total
	}
	return start, end
}

// Offset is the 0-based page index sent to the listing endpoint.
func Offset(page int) int {
	if page < 1 {
		return 0
	}
	return page - 1
}

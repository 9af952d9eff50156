package listview

// Direction is the sort direction chosen by the user. The zero value means
// no explicit direction.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionAsc  Direction = "asc"
	DirectionDesc Direction = "desc"
)

// Sort is the state of the sort control.
type Sort struct {
	Active    string    `json:"active"`
	Direction Direction `json:"direction"`
}

// Descending resolves the direction, falling back to def when unset.
func (s Sort) Descending(def bool) bool {
	switch s.Direction {
	case DirectionAsc:
		return false
	case DirectionDesc:
		return true
	default:
		return def
	}
}

// Paginator is the state of the paginator control. Length is the total row
// count reported by the last applied fetch.
type Paginator struct {
	PageIndex int `json:"page_index"`
	PageSize  int `json:"page_size"`
	Length    int `json:"length"`
}

// Size returns the page size, or def when the paginator has none.
func (p Paginator) Size(def int) int {
	if p.PageSize <= 0 {
		return def
	}
	return p.PageSize
}

// PageCount is the number of pages needed to show Length rows.
func (p Paginator) PageCount(def int) int {
	size := p.Size(def)
	if p.Length <= 0 || size <= 0 {
		return 0
	}
	return (p.Length + size - 1) / size
}

// DataSource holds the rows on screen and the free-text filter.
type DataSource[T any] struct {
	Data   []T
	Filter string
}

// ParseDirection accepts "", "asc" and "desc".
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(s); d {
	case DirectionNone, DirectionAsc, DirectionDesc:
		return d, true
	}
	return DirectionNone, false
}

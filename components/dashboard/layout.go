package dashboard

import "sort"

// Rect is a widget rectangle measured in grid cells: (X, Y) is the top-left
// column/row and (W, H) the span.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Overlaps reports whether r and other share at least one cell.
func (r Rect) Overlaps(other Rect) bool {
	return r.X < other.X+other.W && other.X < r.X+r.W &&
		r.Y < other.Y+other.H && other.Y < r.Y+r.H
}

// Within reports whether r is a valid rectangle on a grid of the given width.
func (r Rect) Within(columns int) bool {
	return r.X >= 0 && r.Y >= 0 && r.W >= 1 && r.H >= 1 && r.X+r.W <= columns
}

// Bottom returns the first row below the rectangle.
func (r Rect) Bottom() int {
	return r.Y + r.H
}

// Size is the default span given to new charts.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// DefaultSize mirrors the half-width, four-row blocks used by the layout templates.
var DefaultSize = Size{W: 6, H: 4}

// FindPlacement returns the first free rectangle of size w×h scanning rows top
// to bottom and columns left to right. Existing rectangles are trusted to be
// non-overlapping; cells outside the grid are ignored. When nothing fits inside
// the scanned rows the widget is stacked at the left edge below all content.
func FindPlacement(existing []Rect, columns, w, h int) Rect {
	columns, w, h = clampSpan(columns, w, h)

	bottom := 0
	for _, r := range existing {
		if b := r.Bottom(); b > bottom {
			bottom = b
		}
	}
	if len(existing) == 0 || bottom == 0 {
		return Rect{X: 0, Y: 0, W: w, H: h}
	}

	rows := bottom + h
	occupied := make([][]bool, rows)
	for y := range occupied {
		occupied[y] = make([]bool, columns)
	}
	for _, r := range existing {
		for y := max(r.Y, 0); y < r.Y+r.H && y < rows; y++ {
			for x := max(r.X, 0); x < r.X+r.W && x < columns; x++ {
				occupied[y][x] = true
			}
		}
	}

	for y := 0; y+h <= rows; y++ {
		for x := 0; x <= columns-w; x++ {
			if regionFree(occupied, x, y, w, h) {
				return Rect{X: x, Y: y, W: w, H: h}
			}
		}
	}
	return Rect{X: 0, Y: bottom, W: w, H: h}
}

func regionFree(occupied [][]bool, x, y, w, h int) bool {
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			if occupied[row][col] {
				return false
			}
		}
	}
	return true
}

func clampSpan(columns, w, h int) (int, int, int) {
	if columns < 1 {
		columns = 1
	}
	if w < 1 {
		w = 1
	}
	if w > columns {
		w = columns
	}
	if h < 1 {
		h = 1
	}
	return columns, w, h
}

// NormalizeRect repairs rectangles read from older or hand-edited records:
// negative or missing coordinates become 0, empty spans take the default size
// and the rectangle is pulled back inside the grid.
func NormalizeRect(r Rect, columns int, fallback Size) Rect {
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.W < 1 {
		r.W = fallback.W
	}
	if r.H < 1 {
		r.H = fallback.H
	}
	columns, r.W, r.H = clampSpan(columns, r.W, r.H)
	if r.X+r.W > columns {
		r.X = columns - r.W
	}
	return r
}

// ChartRects extracts the grid rectangles of charts, skipping the one with skipID.
func ChartRects(charts []Chart, skipID string) []Rect {
	rects := make([]Rect, 0, len(charts))
	for _, c := range charts {
		if skipID != "" && c.ID == skipID {
			continue
		}
		rects = append(rects, c.Rect())
	}
	return rects
}

// SortRowMajor orders charts top-to-bottom, then left-to-right, then by
// creation time so rendering and export follow the visual order.
func SortRowMajor(charts []Chart) []Chart {
	ordered := append([]Chart(nil), charts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return ordered
}

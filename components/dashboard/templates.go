package dashboard

// LayoutTemplate is a predefined arrangement of chart slots.
type LayoutTemplate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Columns     int    `json:"columns"`
	RowHeight   int    `json:"rowHeight"`
	Slots       []Rect `json:"slots"`
}

var layoutTemplates = []LayoutTemplate{
	{
		ID:          "single-column",
		Name:        "Single Column",
		Description: "One main metric per row",
		Columns:     12,
		RowHeight:   100,
		Slots: []Rect{
			{X: 0, Y: 0, W: 12, H: 4},
			{X: 0, Y: 4, W: 12, H: 4},
			{X: 0, Y: 8, W: 12, H: 4},
			{X: 0, Y: 12, W: 12, H: 4},
		},
	},
	{
		ID:          "two-column",
		Name:        "Two Column",
		Description: "Two charts side by side",
		Columns:     12,
		RowHeight:   100,
		Slots: []Rect{
			{X: 0, Y: 0, W: 6, H: 4},
			{X: 6, Y: 0, W: 6, H: 4},
			{X: 0, Y: 4, W: 6, H: 4},
			{X: 6, Y: 4, W: 6, H: 4},
		},
	},
	{
		ID:          "three-column",
		Name:        "Three Column",
		Description: "Three charts per row above a wide pair",
		Columns:     12,
		RowHeight:   100,
		Slots: []Rect{
			{X: 0, Y: 0, W: 4, H: 4},
			{X: 4, Y: 0, W: 4, H: 4},
			{X: 8, Y: 0, W: 4, H: 4},
			{X: 0, Y: 4, W: 6, H: 4},
			{X: 6, Y: 4, W: 6, H: 4},
		},
	},
	{
		ID:          "hero-layout",
		Name:        "Hero Layout",
		Description: "Prominent main chart with supporting metrics below",
		Columns:     12,
		RowHeight:   100,
		Slots: []Rect{
			{X: 0, Y: 0, W: 12, H: 6},
			{X: 0, Y: 6, W: 4, H: 4},
			{X: 4, Y: 6, W: 4, H: 4},
			{X: 8, Y: 6, W: 4, H: 4},
		},
	},
	{
		ID:          "grid-layout",
		Name:        "Grid Layout",
		Description: "Equal-sized chart blocks",
		Columns:     12,
		RowHeight:   100,
		Slots: []Rect{
			{X: 0, Y: 0, W: 6, H: 4},
			{X: 6, Y: 0, W: 6, H: 4},
			{X: 0, Y: 4, W: 6, H: 4},
			{X: 6, Y: 4, W: 6, H: 4},
			{X: 0, Y: 8, W: 6, H: 4},
			{X: 6, Y: 8, W: 6, H: 4},
		},
	},
}

// Templates returns copies of the built-in layout templates.
func Templates() []LayoutTemplate {
	out := make([]LayoutTemplate, len(layoutTemplates))
	for i, tpl := range layoutTemplates {
		out[i] = tpl.clone()
	}
	return out
}

// TemplateByID looks up a built-in layout template.
func TemplateByID(id string) (LayoutTemplate, bool) {
	for _, tpl := range layoutTemplates {
		if tpl.ID == id {
			return tpl.clone(), true
		}
	}
	return LayoutTemplate{}, false
}

// Arrange assigns charts, in order, to the template slots. Charts beyond the
// last slot keep their size and are placed with FindPlacement below the slots.
func (t LayoutTemplate) Arrange(charts []Chart, fallback Size) []Chart {
	out := make([]Chart, len(charts))
	placed := make([]Rect, 0, len(charts))
	for i, c := range charts {
		var rect Rect
		if i < len(t.Slots) {
			rect = t.Slots[i]
		} else {
			size := NormalizeRect(c.Rect(), t.Columns, fallback)
			rect = FindPlacement(placed, t.Columns, size.W, size.H)
		}
		placed = append(placed, rect)
		out[i] = c.WithRect(rect)
	}
	return out
}

func (t LayoutTemplate) clone() LayoutTemplate {
	t.Slots = append([]Rect(nil), t.Slots...)
	return t
}

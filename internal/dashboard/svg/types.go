// Package svg renders the small server-side charts shown on the dashboard.
package svg

// Series is one named row of values.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// Opts customises both renderers.
type Opts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	ShowDots    bool
}

// Defaults for the dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

var palette = []string{"#2563eb", "#16a34a", "#f97316", "#dc2626", "#7c3aed", "#0891b2"}

func colorAt(s Series, i int) string {
	if s.Color != "" {
		return s.Color
	}
	return palette[i%len(palette)]
}

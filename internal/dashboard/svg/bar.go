package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Bars renders a grouped bar chart with one bar per series in each label group.
func Bars(width, height int, series []Series, labels []string, opts Opts) (template.HTML, error) {
	if err := validate(series, labels); err != nil {
		return "", err
	}
	f, err := newFrame(width, height, series, opts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	f.open(&b, opts, "bar")

	groupWidth := f.chartW / float64(len(labels))
	barWidth := groupWidth * 0.8 / float64(len(series))
	zeroY := f.y(0)
	for i, label := range labels {
		baseX := f.padding + float64(i)*groupWidth + groupWidth*0.1
		for j, s := range series {
			top, h := zeroY, 0.0
			if v := s.Values[i]; v >= 0 {
				top = f.y(v)
				h = zeroY - top
			} else {
				h = f.y(v) - zeroY
			}
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s %s"></rect>`,
				baseX+float64(j)*barWidth, top, barWidth, h, colorAt(s, j),
				template.HTMLEscapeString(s.Label), template.HTMLEscapeString(label))
		}
		f.label(&b, baseX+groupWidth*0.4, label)
	}
	f.legend(&b, series)
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

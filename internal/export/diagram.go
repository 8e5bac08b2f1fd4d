package export

import (
	"fmt"
	"html/template"
	"strings"
)

const (
	diagramWidth  = 1000
	diagramHeight = 600
	entityWidth   = 130
	fieldHeight   = 13
)

// ERDiagram renders the entity relationship diagram as a standalone SVG document.
func ERDiagram(d Diagram) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="100%%" height="%d" viewBox="0 0 %d %d" role="img" aria-labelledby="er-title" font-family="Helvetica, Arial, sans-serif" font-size="11">`,
		diagramHeight, diagramWidth, diagramHeight)
	fmt.Fprintf(&b, `<title id="er-title">%s</title>`, esc(d.Title+" - "+d.Subtitle))
	b.WriteString(`<defs><marker id="arrowhead" markerWidth="8" markerHeight="6" refX="7" refY="3" orient="auto"><polygon points="0 0, 8 3, 0 6" fill="#666"/></marker></defs>`)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="#ffffff"/>`, diagramWidth, diagramHeight)

	for _, e := range d.Entities {
		writeEntity(&b, d, e)
	}
	for _, l := range d.Links {
		anchor := l.Anchor
		if anchor == "" {
			anchor = "middle"
		}
		fmt.Fprintf(&b, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#666" stroke-width="1.5" marker-end="url(#arrowhead)"><title>%s</title></line>`,
			l.X1, l.Y1, l.X2, l.Y2, esc(l.From+" to "+l.To))
		fmt.Fprintf(&b, `<text x="%g" y="%g" text-anchor="%s">%s</text>`, l.LX, l.LY, anchor, esc(l.Label))
	}
	writeLegend(&b, d)
	b.WriteString(`</svg>`)
	return b.String()
}

func writeEntity(b *strings.Builder, d Diagram, e DiagramEntity) {
	g := d.group(e.Group)
	fill, stroke := g.Fill, g.Stroke
	if e.Fill != "" {
		fill = e.Fill
	}
	if e.Stroke != "" {
		stroke = e.Stroke
	}
	height := 48 + fieldHeight*float64(len(e.Fields))
	fmt.Fprintf(b, `<g class="entity" data-entity="%s">`, esc(e.Name))
	fmt.Fprintf(b, `<rect x="%g" y="%g" width="%d" height="%g" fill="%s" stroke="%s" stroke-width="2" rx="5"/>`,
		e.X, e.Y, entityWidth, height, esc(fill), esc(stroke))
	fmt.Fprintf(b, `<text x="%g" y="%g" text-anchor="middle" font-weight="bold">%s</text>`, e.X+entityWidth/2, e.Y+20, esc(e.Name))
	fmt.Fprintf(b, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="1"/>`, e.X, e.Y+30, e.X+entityWidth, e.Y+30, esc(stroke))
	for i, field := range e.Fields {
		fmt.Fprintf(b, `<text x="%g" y="%g">• %s</text>`, e.X+5, e.Y+45+float64(i*fieldHeight), esc(field))
	}
	b.WriteString(`</g>`)
}

func writeLegend(b *strings.Builder, d Diagram) {
	const x, y, width = 820.0, 50.0, 150.0
	rows := len(d.Groups) + 1 + len(d.Cardinalities)
	height := 40 + float64(rows)*20
	b.WriteString(`<g class="legend">`)
	fmt.Fprintf(b, `<rect x="%g" y="%g" width="%g" height="%g" fill="#f5f5f5" stroke="#666" stroke-width="1" rx="5"/>`, x, y, width, height)
	fmt.Fprintf(b, `<text x="%g" y="%g" text-anchor="middle" font-weight="bold">LEGEND</text>`, x+width/2, y+20)
	fmt.Fprintf(b, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#666" stroke-width="1"/>`, x+10, y+30, x+width-10, y+30)
	row := y + 40
	for _, g := range d.Groups {
		fmt.Fprintf(b, `<rect x="%g" y="%g" width="12" height="12" fill="%s" stroke="%s"/>`, x+10, row, esc(g.Fill), esc(g.Stroke))
		fmt.Fprintf(b, `<text x="%g" y="%g">%s</text>`, x+30, row+10, esc(g.Label))
		row += 20
	}
	fmt.Fprintf(b, `<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#666" stroke-width="1.5" marker-end="url(#arrowhead)"/>`, x+10, row+5, x+30, row+5)
	fmt.Fprintf(b, `<text x="%g" y="%g">Relationship</text>`, x+40, row+10)
	row += 20
	for _, c := range d.Cardinalities {
		fmt.Fprintf(b, `<text x="%g" y="%g">%s</text>`, x+15, row+10, esc(c))
		row += 15
	}
	b.WriteString(`</g>`)
}

func esc(s string) string {
	return template.HTMLEscapeString(s)
}

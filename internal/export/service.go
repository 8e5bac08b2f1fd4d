package export

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scmdesk/scmdesk/report"
)

// Source reads every row of one exported table.
type Source interface {
	ReadTable(ctx context.Context, t DataTable) ([][]any, error)
}

// Renderer turns HTML into PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, page report.Page) ([]byte, error)
}

// Service produces the export artefacts.
type Service struct {
	source   Source
	renderer Renderer
	now      func() time.Time
}

// NewService wires the table source and PDF renderer. renderer may be nil when PDF export is off.
func NewService(source Source, renderer Renderer) *Service {
	return &Service{source: source, renderer: renderer, now: time.Now}
}

// Workbook reads all tables concurrently and returns the finished xlsx bytes. Any failure
// aborts the whole export.
func (s *Service) Workbook(ctx context.Context) ([]byte, error) {
	sch, err := LoadSchema()
	if err != nil {
		return nil, err
	}
	var (
		mu   sync.Mutex
		rows = make(map[string][][]any, len(DataTables))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, t := range DataTables {
		g.Go(func() error {
			data, err := s.source.ReadTable(gctx, t)
			if err != nil {
				return fmt.Errorf("export: read %s: %w", t.Sheet, err)
			}
			mu.Lock()
			rows[t.Sheet] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return BuildWorkbook(sch, rows)
}

// DiagramSVG returns the ER diagram.
func (s *Service) DiagramSVG() (string, error) {
	sch, err := LoadSchema()
	if err != nil {
		return "", err
	}
	return ERDiagram(sch.Diagram), nil
}

var pageTemplate = template.Must(template.New("er").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:Helvetica,Arial,sans-serif;margin:0;color:#1f2933}
header{text-align:center;margin-bottom:16px}
h1{font-size:20px;margin:0 0 4px}
h2{font-size:15px;margin:0 0 4px;color:#52606d}
p{font-size:11px;color:#7b8794;margin:0}
svg{border:1px solid #cbd2d9;border-radius:6px}
</style></head>
<body>
<header><h1>{{.Title}}</h1><h2>{{.Subtitle}}</h2><p>Generated {{.Generated}}</p></header>
{{.Diagram}}
</body></html>`))

// DiagramPDF renders the ER diagram page to PDF on A3 landscape paper.
func (s *Service) DiagramPDF(ctx context.Context) ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("export: pdf renderer not configured")
	}
	sch, err := LoadSchema()
	if err != nil {
		return nil, err
	}
	var html strings.Builder
	err = pageTemplate.Execute(&html, map[string]any{
		"Title":     sch.Diagram.Title,
		"Subtitle":  sch.Diagram.Subtitle,
		"Generated": s.now().UTC().Format("2006-01-02 15:04 MST"),
		"Diagram":   template.HTML(ERDiagram(sch.Diagram)),
	})
	if err != nil {
		return nil, fmt.Errorf("export: diagram page: %w", err)
	}
	return s.renderer.RenderHTML(ctx, html.String(), report.A3Landscape)
}

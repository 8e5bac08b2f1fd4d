package svg

import (
	"strings"
	"testing"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []Series{
		{Label: "Received", Values: []float64{500, 600}},
		{Label: "Issued", Values: []float64{300, -20}},
	}, []string{"2024-01", "2024-02"}, Opts{Title: "Movements", Description: "Monthly stock movements"})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") || !strings.HasSuffix(output, "</svg>") {
		t.Fatalf("expected svg output, got %s", output)
	}
	if got := strings.Count(output, "<rect"); got != 6 {
		t.Fatalf("expected 4 bars and 2 legend swatches, got %d rects", got)
	}
	if !strings.Contains(output, "Received") || !strings.Contains(output, "Issued") {
		t.Fatalf("expected legend labels")
	}
}

func TestLineProducesSVG(t *testing.T) {
	html, err := Line(400, 200, []Series{{Label: "Net", Values: []float64{100, 200, 150}}}, []string{"Jan", "Feb", "Mar"}, Opts{
		Title:    "Net stock",
		ShowDots: true,
	})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.Contains(output, "<path d=\"M") {
		t.Fatalf("expected path element in svg")
	}
	if strings.Count(output, "<circle") != 3 {
		t.Fatalf("expected one dot per point")
	}
	if !strings.Contains(output, `aria-labelledby="net-stock-line-title net-stock-line-desc"`) {
		t.Fatalf("expected accessibility attributes")
	}
}

func TestRenderersRejectMismatchedSeries(t *testing.T) {
	if _, err := Bars(0, 0, nil, []string{"a"}, Opts{}); err == nil {
		t.Fatalf("expected error for missing series")
	}
	if _, err := Line(0, 0, []Series{{Values: []float64{1}}}, []string{"a", "b"}, Opts{}); err == nil {
		t.Fatalf("expected error for length mismatch")
	}
	if _, err := Bars(40, 40, []Series{{Values: []float64{1}}}, []string{"a"}, Opts{Padding: 30}); err == nil {
		t.Fatalf("expected error for tiny viewport")
	}
}

func TestEscapesLabels(t *testing.T) {
	html, err := Bars(0, 0, []Series{{Label: "<x>", Values: []float64{1}}}, []string{"R&D"}, Opts{})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	if strings.Contains(string(html), "<x>") || !strings.Contains(string(html), "R&amp;D") {
		t.Fatalf("expected escaped labels")
	}
}

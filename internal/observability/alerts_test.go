package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"gopkg.in/yaml.v3"

	jobmetrics "github.com/scmdesk/scmdesk/internal/jobs"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertSpec struct {
	Groups []alertGroup `yaml:"groups"`
}

var metricName = regexp.MustCompile(`scm_[a-z_]+`)

func TestSupplyChainAlertRules(t *testing.T) {
	path := filepath.Join("..", "..", "deploy", "prometheus", "alerts", "scm.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read alert file: %v", err)
	}

	var spec alertSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		t.Fatalf("failed to unmarshal alert file: %v", err)
	}

	var group *alertGroup
	for i := range spec.Groups {
		if spec.Groups[i].Name == "supply-chain" {
			group = &spec.Groups[i]
			break
		}
	}
	if group == nil {
		t.Fatal("supply-chain alert group missing")
	}

	metrics := NewMetrics()
	metrics.ObserveMovement("IN", "GRR", 1)
	metrics.ObserveDrift(0)
	metrics.Middleware(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("probe").End(errors.New("probe"))
	jobs.SetBelowReorder(0)
	families, err := metrics.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	known := map[string]bool{}
	for _, f := range families {
		known[f.GetName()] = true
	}

	expected := map[string]string{
		"HighErrorRate":     "critical",
		"HighLatency":       "warning",
		"LedgerDrift":       "critical",
		"JobFailures":       "warning",
		"PartsBelowReorder": "info",
	}
	if len(group.Rules) != len(expected) {
		t.Fatalf("expected %d rules, got %d", len(expected), len(group.Rules))
	}
	for _, rule := range group.Rules {
		severity, ok := expected[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != severity {
			t.Fatalf("rule %s severity mismatch: %s", rule.Alert, rule.Labels["severity"])
		}
		if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Fatalf("rule %s must include summary and description annotations", rule.Alert)
		}
		if rule.For == "" {
			t.Fatalf("rule %s must define a hold duration", rule.Alert)
		}
		names := metricName.FindAllString(rule.Expr, -1)
		if len(names) == 0 {
			t.Fatalf("rule %s must reference an scm metric", rule.Alert)
		}
		for _, name := range names {
			base := regexp.MustCompile(`_(bucket|sum|count)$`).ReplaceAllString(name, "")
			if !known[name] && !known[base] {
				t.Fatalf("rule %s references unknown metric %s", rule.Alert, name)
			}
		}
	}
}

package report

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestRenderHTMLSendsPageOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forms/chromium/convert/html" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("unexpected parse error: %v", err)
		}
		for field, want := range map[string]string{
			"paperWidth":  "11.7in",
			"paperHeight": "16.54in",
			"landscape":   "true",
			"marginTop":   "0.4in",
		} {
			if got := r.FormValue(field); got != want {
				t.Errorf("%s = %q, want %q", field, got, want)
			}
		}
		file, _, err := r.FormFile("files")
		if err != nil {
			t.Errorf("missing html file: %v", err)
		} else {
			body, _ := io.ReadAll(file)
			if !strings.Contains(string(body), "<svg") {
				t.Errorf("html not forwarded: %s", body)
			}
		}
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second)
	data, err := client.RenderHTML(context.Background(), "<html><body><svg></svg></body></html>", A3Landscape)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if string(data) != "%PDF-1.7" {
		t.Fatalf("unexpected payload %q", string(data))
	}
}

func TestRenderHTMLReportsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).RenderHTML(context.Background(), "<html></html>", Page{})
	if err == nil || !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "chromium crashed") {
		t.Fatalf("expected upstream failure, got %v", err)
	}
}

func TestPingHandler(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	r := chi.NewRouter()
	NewHandler(NewClient(srv.URL, time.Second), slog.New(slog.NewTextHandler(io.Discard, nil))).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	healthy = false
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/listingops/curator/internal/models"
)

func TestObserveStage(t *testing.T) {
	c := New()
	c.ObserveStage("resolve", 2*time.Millisecond, nil)
	c.ObserveStage("build", time.Millisecond, errors.New("boom"))
	c.ObserveStage("build", time.Millisecond, nil)

	tests := []struct {
		stage    string
		status   string
		expected float64
	}{
		{stage: "resolve", status: "ok", expected: 1},
		{stage: "build", status: "ok", expected: 1},
		{stage: "build", status: "error", expected: 1},
		{stage: "resolve", status: "error", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.stage+"/"+tt.status, func(t *testing.T) {
			got := testutil.ToFloat64(c.stageRuns.WithLabelValues(tt.stage, tt.status))
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	if n := testutil.CollectAndCount(c.stageDuration); n != 2 {
		t.Errorf("Expected 2 duration series, got %d", n)
	}
}

func TestObserveResult(t *testing.T) {
	c := New()
	c.ObserveResult(&models.Result{
		ImageList:         []string{"A", "B", "C"},
		DeduplicationInfo: models.DedupInfo{RemovedURLs: []string{"A?x", "B/"}},
		SpecFilter:        &models.SpecFilterLog{Removed: []models.RemovedImage{{URL: "S"}}},
	})
	c.ObserveResult(nil)

	if got := testutil.ToFloat64(c.removed.WithLabelValues(ReasonDuplicate)); got != 2 {
		t.Errorf("Expected 2 duplicate removals, got %v", got)
	}
	if got := testutil.ToFloat64(c.removed.WithLabelValues(ReasonSpecFilter)); got != 1 {
		t.Errorf("Expected 1 spec filter removal, got %v", got)
	}
	if n := testutil.CollectAndCount(c.finalCount); n != 1 {
		t.Errorf("Expected final count histogram, got %d series", n)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObserveStage("resolve", time.Millisecond, nil)
	c.ObserveResult(&models.Result{})
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.ObserveStage("build", time.Millisecond, nil)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("Failed to write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read textfile: %v", err)
	}
	if !strings.Contains(string(data), "curator_stage_runs_total") {
		t.Errorf("Expected stage counter in textfile, got:\n%s", data)
	}
}

func TestHandler(t *testing.T) {
	c := New()
	c.ObserveStage("resolve", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `curator_stage_runs_total{stage="resolve",status="ok"} 1`) {
		t.Errorf("Expected stage counter in output, got:\n%s", rec.Body.String())
	}
}

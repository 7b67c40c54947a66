package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.LoadsTotal == nil || r.LoadDuration == nil || r.ColumnFamilies == nil {
		t.Error("load metrics not initialized")
	}
	if r.HandleOps == nil {
		t.Error("HandleOps is nil")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestHandler(t *testing.T) {
	body := scrape(t, Handler())

	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
}

func TestLoadMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordLoad(ResultOK, 0.002, 3)
	r.RecordLoad(ResultOK, 0.001, 2)
	r.RecordLoad(ResultParseError, 0.001, 9)

	if got := testutil.ToFloat64(r.LoadsTotal.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("ok loads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ColumnFamilies); got != 2 {
		t.Errorf("column families = %v, want 2 (failed loads do not update it)", got)
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `kvopts_loads_total{result="parse_error"} 1`) {
		t.Error(`expected kvopts_loads_total{result="parse_error"} 1`)
	}
	if !strings.Contains(body, "kvopts_load_duration_seconds_count 3") {
		t.Error("expected kvopts_load_duration_seconds_count 3")
	}
}

func TestReloadAndHandleMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordReload(ResultOK)
	r.RecordReload(ResultIOError)
	r.RecordHandle("options", "create")
	r.RecordHandle("options", "create")
	r.RecordHandle("options", "destroy")

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `kvopts_reloads_total{result="io_error"} 1`) {
		t.Error(`expected kvopts_reloads_total{result="io_error"} 1`)
	}
	if !strings.Contains(body, `kvopts_handle_operations_total{kind="options",op="create"} 2`) {
		t.Error("expected two options handle creations")
	}
}

func TestHandleCollector(t *testing.T) {
	counts := map[string]int{"options": 2, "cache": 1}
	r := NewRegistry()
	if err := r.Register(NewHandleCollector(func() map[string]int { return counts })); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	expected := `
# HELP kvopts_handles_live Handles currently allocated, by kind.
# TYPE kvopts_handles_live gauge
kvopts_handles_live{kind="cache"} 1
kvopts_handles_live{kind="options"} 2
`
	if err := testutil.GatherAndCompare(r.Prometheus(), strings.NewReader(expected), "kvopts_handles_live"); err != nil {
		t.Error(err)
	}

	counts["options"] = 0
	if err := testutil.GatherAndCompare(r.Prometheus(), strings.NewReader(strings.Replace(expected, `"options"} 2`, `"options"} 0`, 1)), "kvopts_handles_live"); err != nil {
		t.Error(err)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordLoad(ResultOK, 0.001, 1)
				r.RecordHandle("array", "create")
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := testutil.ToFloat64(r.LoadsTotal.WithLabelValues(ResultOK)); got != 1000 {
		t.Errorf("ok loads = %v, want 1000", got)
	}
}

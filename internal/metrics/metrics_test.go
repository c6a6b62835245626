package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIndexPass(t *testing.T) {
	before := testutil.ToFloat64(indexPasses.WithLabelValues("ok"))
	beforeSkipped := testutil.ToFloat64(indexPasses.WithLabelValues("skipped"))

	RecordIndexPass("ok", 2*time.Millisecond)
	RecordIndexPass("ok", time.Millisecond)

	if got := testutil.ToFloat64(indexPasses.WithLabelValues("ok")) - before; got != 2 {
		t.Errorf("ok passes delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(indexPasses.WithLabelValues("skipped")) - beforeSkipped; got != 0 {
		t.Errorf("skipped passes delta = %v, want 0", got)
	}
}

func TestRecordGraphRebuild(t *testing.T) {
	before := testutil.ToFloat64(graphRebuilds)

	RecordGraphRebuild(7)
	RecordGraphRebuild(3)

	if got := testutil.ToFloat64(graphRebuilds) - before; got != 2 {
		t.Errorf("rebuilds delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(graphEdges); got != 3 {
		t.Errorf("edges gauge = %v, want 3", got)
	}
}

func TestRecordHistoryEvent(t *testing.T) {
	before := testutil.ToFloat64(historyEvents.WithLabelValues("symbol_added"))
	RecordHistoryEvent("symbol_added")
	if got := testutil.ToFloat64(historyEvents.WithLabelValues("symbol_added")) - before; got != 1 {
		t.Errorf("added delta = %v, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	RecordGraphRebuild(1)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"symtrail_graph_rebuilds_total", "symtrail_graph_edges"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

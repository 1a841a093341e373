package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistryInitializesEveryMetric(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.WritesTotal == nil || r.ReadsTotal == nil || r.FlushesTotal == nil ||
		r.CompactionsTotal == nil || r.ErrorsTotal == nil || r.SSTableCount == nil {
		t.Fatal("NewRegistry() left one or more metrics uninitialized")
	}
	if r.Gatherer() == nil {
		t.Fatal("Gatherer() returned nil")
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()

	r1.WritesTotal.WithLabelValues("u", "db", "c").Inc()

	if got := testutil.ToFloat64(r1.WritesTotal.WithLabelValues("u", "db", "c")); got != 1 {
		t.Errorf("r1 WritesTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r2.WritesTotal.WithLabelValues("u", "db", "c")); got != 0 {
		t.Errorf("r2 WritesTotal should be unaffected by r1, got %v", got)
	}
}

func TestSSTableCountTracksGaugeSet(t *testing.T) {
	r := NewRegistry()
	r.SSTableCount.WithLabelValues("u", "db", "c").Set(3)
	if got := testutil.ToFloat64(r.SSTableCount.WithLabelValues("u", "db", "c")); got != 3 {
		t.Errorf("SSTableCount = %v, want 3", got)
	}
	r.SSTableCount.WithLabelValues("u", "db", "c").Set(1)
	if got := testutil.ToFloat64(r.SSTableCount.WithLabelValues("u", "db", "c")); got != 1 {
		t.Errorf("SSTableCount after second Set = %v, want 1", got)
	}
}

func TestMetricNamesArePrefixed(t *testing.T) {
	r := NewRegistry()
	r.ErrorsTotal.WithLabelValues("not_found").Inc()

	metricFamilies, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range metricFamilies {
		if !strings.HasPrefix(mf.GetName(), "cloude_storage_") {
			t.Errorf("metric %q missing cloude_storage_ prefix", mf.GetName())
		}
	}
}

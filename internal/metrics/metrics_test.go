package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.QuoteComputed("internal", "ok", time.Millisecond)
	m.QuoteComputed("internal", "ok", time.Millisecond)
	m.QuoteComputed("border", "tariff_not_found", time.Millisecond)
	m.Inconsistency("internal")
	m.TablePublished(7)
	m.Reload("swapped")

	if got := testutil.ToFloat64(m.quotesTotal.WithLabelValues("internal", "ok")); got != 2 {
		t.Errorf("quotes_total{internal,ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.inconsistencyTotal.WithLabelValues("internal")); got != 1 {
		t.Errorf("tariff_inconsistency_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.activeVersion); got != 7 {
		t.Errorf("tariff_active_version = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.reloadsTotal.WithLabelValues("swapped")); got != 1 {
		t.Errorf("tariff_reloads_total = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.QuoteComputed("internal", "ok", time.Second)
	m.Inconsistency("border")
	m.TablePublished(1)
	m.Reload("failed")
}

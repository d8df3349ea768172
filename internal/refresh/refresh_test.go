package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"motor-tariff/adapters/pubsub"
	"motor-tariff/core/tariff"
	"motor-tariff/core/tariff/tarifftest"
	"motor-tariff/internal/metrics"
)

type fakeSource struct {
	mu    sync.Mutex
	table *tariff.Table
	err   error
	calls int
}

func (f *fakeSource) ActiveTable(context.Context) (*tariff.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.table, f.err
}

func (f *fakeSource) set(t *tariff.Table, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table, f.err = t, err
}

func reloads(t *testing.T, reg *prometheus.Registry, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != "tariff_reloads_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRefreshSwapsOnlyOnChange(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeSource{table: tarifftest.Table(t, 1)}
	holder := tariff.NewHolder()
	r := New(src, holder, Options{Metrics: metrics.New(reg)})
	ctx := context.Background()

	if out, err := r.Refresh(ctx); err != nil || out != Swapped {
		t.Fatalf("first refresh = %s, %v", out, err)
	}
	if out, _ := r.Refresh(ctx); out != Unchanged {
		t.Errorf("second refresh = %s, want unchanged", out)
	}

	v2 := tarifftest.Table(t, 2)
	src.set(v2, nil)
	if out, _ := r.Refresh(ctx); out != Swapped {
		t.Errorf("refresh after new version = %s", out)
	}
	if holder.Current() != v2 {
		t.Error("holder does not serve v2")
	}

	src.set(nil, errors.New("connection refused"))
	if out, err := r.Refresh(ctx); err == nil || out != Failed {
		t.Errorf("failing refresh = %s, %v", out, err)
	}
	if holder.Current() != v2 {
		t.Error("a failed refresh must keep the current table")
	}

	if got := reloads(t, reg, "swapped"); got != 2 {
		t.Errorf("swapped = %v, want 2", got)
	}
	if got := reloads(t, reg, "unchanged"); got != 1 {
		t.Errorf("unchanged = %v, want 1", got)
	}
	if got := reloads(t, reg, "failed"); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestSameVersionDifferentHashSwaps(t *testing.T) {
	src := &fakeSource{table: tarifftest.Table(t, 3)}
	holder := tariff.NewHolder()
	r := New(src, holder, Options{})
	r.Refresh(context.Background())

	changed, err := tarifftest.Baseline(3).AddRow(tariff.BorderKey(99), tarifftest.Row(1)).Build()
	if err != nil {
		t.Fatal(err)
	}
	src.set(changed, nil)
	if out, _ := r.Refresh(context.Background()); out != Swapped {
		t.Errorf("refresh = %s, want swapped", out)
	}
}

func TestBootstrapFallsBackToCache(t *testing.T) {
	cache, err := tariff.NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// a first process caches the table it served
	src := &fakeSource{table: tarifftest.Table(t, 5)}
	if err := New(src, tariff.NewHolder(), Options{Cache: cache}).Bootstrap(context.Background()); err != nil {
		t.Fatal(err)
	}

	// a second process starts while the store is down
	down := &fakeSource{err: errors.New("db down")}
	holder := tariff.NewHolder()
	if err := New(down, holder, Options{Cache: cache}).Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if cur := holder.Current(); cur == nil || cur.Version != 5 {
		t.Errorf("holder = %v, want cached v5", cur)
	}

	empty := tariff.NewHolder()
	if err := New(down, empty, Options{}).Bootstrap(context.Background()); err == nil {
		t.Error("bootstrap without cache must fail when the store is down")
	}
}

func TestOnAnnouncedSkipsCurrentTable(t *testing.T) {
	v1 := tarifftest.Table(t, 1)
	src := &fakeSource{table: v1}
	r := New(src, tariff.NewHolder(), Options{})
	ctx := context.Background()
	r.Refresh(ctx)

	r.OnAnnounced(ctx, pubsub.Event{TableID: v1.ID, Version: 1})
	if src.calls != 1 {
		t.Errorf("announcement of the current table triggered a reload")
	}

	r.OnAnnounced(ctx, pubsub.Event{TableID: "other", Version: 2})
	if src.calls != 2 {
		t.Errorf("announcement of a new table did not trigger a reload")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	r := New(&fakeSource{}, tariff.NewHolder(), Options{})
	if err := r.Start("every now and then"); err == nil {
		t.Error("expected schedule error")
	}
	if err := r.Start("@every 1h"); err != nil {
		t.Fatal(err)
	}
	r.Stop()
}

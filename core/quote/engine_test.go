package quote

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"motor-tariff/core/input"
	"motor-tariff/core/tariff"
	"motor-tariff/core/tariff/tarifftest"
	"motor-tariff/internal/errors"
)

// scenarioRow is the row used by the published worked examples
var scenarioRow = tariff.Row{
	NetPremium:          10000,
	StampFee:            500,
	WarEffort:           200,
	LocalAdministration: 100,
	Reconstruction:      300,
	MartyrFund:          100,
	Total:               11200,
}

var touristTwelve = tariff.Row{
	NetPremium:          40000,
	StampFee:            800,
	WarEffort:           400,
	LocalAdministration: 200,
	Reconstruction:      600,
	MartyrFund:          150,
	Total:               42150,
}

func scenarioTable(t *testing.T) *tariff.Table {
	t.Helper()
	tbl, err := tariff.NewBuilder(1).
		WithEffectiveAt(tarifftest.Effective).
		AddRow(tariff.InternalKey(1), scenarioRow).
		AddRow(tariff.BorderKey(4), touristTwelve).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func holderWith(t *testing.T, tbl *tariff.Table) *tariff.Holder {
	t.Helper()
	h := tariff.NewHolder()
	h.Publish(tbl)
	return h
}

func normalize(t *testing.T, req input.Request) input.PricingInput {
	t.Helper()
	in, err := input.DefaultNormalizer().Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return in
}

func months(n int) *int { return &n }

func yes() *bool {
	b := true
	return &b
}

type recordingObserver struct {
	mu            sync.Mutex
	statuses      []string
	inconsistency int
}

func (r *recordingObserver) QuoteComputed(_, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recordingObserver) Inconsistency(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inconsistency++
}

func TestInternalNoAddOns(t *testing.T) {
	e := NewEngine(holderWith(t, scenarioTable(t)), Config{Fees: DefaultFees(), Logger: zap.NewNop()})

	q, err := e.Calculate(context.Background(), normalize(t, input.Request{
		InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: months(12),
	}))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if q.Breakdown.Subtotal != 11200 || q.Breakdown.Total != 11200 {
		t.Errorf("subtotal/total = %d/%d, want 11200/11200", q.Breakdown.Subtotal, q.Breakdown.Total)
	}
	if q.Breakdown.AddOns() != 0 {
		t.Errorf("unexpected add-ons: %+v", q.Breakdown)
	}
	if len(q.Warnings) != 0 {
		t.Errorf("unexpected warnings: %+v", q.Warnings)
	}
	if q.Key != tariff.InternalKey(1) || q.TableVersion != 1 || q.ID == "" {
		t.Errorf("unexpected quote metadata: %+v", q)
	}
}

func TestInternalAllAddOns(t *testing.T) {
	e := NewEngine(holderWith(t, scenarioTable(t)), Config{Fees: DefaultFees(), Logger: zap.NewNop()})

	q, err := e.Calculate(context.Background(), normalize(t, input.Request{
		InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: months(12),
		ElectronicCard: yes(), PremiumService: yes(), RescueService: yes(),
	}))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	b := q.Breakdown
	if b.ElectronicCardFee != 150 || b.PremiumServiceFee != 50 || b.RescueServiceFee != 30 {
		t.Errorf("add-on fees = %d/%d/%d", b.ElectronicCardFee, b.PremiumServiceFee, b.RescueServiceFee)
	}
	if b.Subtotal != 11200 || b.Total != 11430 {
		t.Errorf("subtotal/total = %d/%d, want 11200/11430", b.Subtotal, b.Total)
	}
}

func TestBorderTouristTwelveMonths(t *testing.T) {
	e := NewEngine(holderWith(t, scenarioTable(t)), Config{Fees: DefaultFees(), Logger: zap.NewNop()})

	q, err := e.Calculate(context.Background(), normalize(t, input.Request{
		InsuranceType: "border", BorderVehicleType: "tourist", Months: months(12),
	}))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if q.Key != tariff.BorderKey(4) {
		t.Errorf("key = %s, want border/4", q.Key)
	}
	want := Breakdown{
		NetPremium:          touristTwelve.NetPremium,
		StampFee:            touristTwelve.StampFee,
		WarEffort:           touristTwelve.WarEffort,
		LocalAdministration: touristTwelve.LocalAdministration,
		Reconstruction:      touristTwelve.Reconstruction,
		MartyrFund:          touristTwelve.MartyrFund,
		Subtotal:            touristTwelve.Total,
		Total:               touristTwelve.Total,
	}
	if q.Breakdown != want {
		t.Errorf("breakdown = %+v, want %+v", q.Breakdown, want)
	}
}

func TestBorderNeverCarriesAddOns(t *testing.T) {
	in := input.PricingInput{
		Kind:   tariff.KindBorder,
		Border: &input.BorderInput{VehicleType: tariff.BorderBus, Months: 6},
		// a stray internal payload must not leak fees into a border quote
		Internal: &input.InternalInput{ElectronicCard: true, PremiumService: true, RescueService: true},
	}
	b := Aggregate(Compose(scenarioRow, in, DefaultFees()))
	if b.AddOns() != 0 || b.Total != b.Subtotal {
		t.Errorf("border breakdown carries add-ons: %+v", b)
	}
}

func TestUnknownKeyFailsClosed(t *testing.T) {
	e := NewEngine(holderWith(t, tarifftest.Table(t, 1)), Config{Fees: DefaultFees(), Logger: zap.NewNop()})

	// base types past 34 must not spill into the next category's rows
	for _, cat := range tariff.Categories {
		for _, code := range []string{"35", "99", "100"} {
			q, err := e.Calculate(context.Background(), normalize(t, input.Request{
				InsuranceType: "internal", VehicleCode: code, Category: string(cat), Classification: "0", Months: months(12),
			}))
			if q != nil {
				t.Errorf("vehicleCode %s category %s: expected no quote, got key %s", code, cat, q.Key)
			}
			if !errors.IsType(err, errors.TypeTariffNotFound) {
				t.Fatalf("vehicleCode %s category %s: expected TARIFF_NOT_FOUND, got %v", code, cat, err)
			}
			if errors.Retryable(err) {
				t.Error("tariff-not-found must not be retryable")
			}
			if nf, _ := errors.As(err); nf.Context["table_version"] != 1 {
				t.Errorf("table_version context = %v", nf.Context["table_version"])
			}
		}
	}

	for _, base := range []int{0, -1, 35, 99} {
		_, err := ResolveKey(input.PricingInput{
			Kind:     tariff.KindInternal,
			Internal: &input.InternalInput{BaseType: base, Category: tariff.CategoryPrivate},
		})
		if !errors.IsType(err, errors.TypeTariffNotFound) {
			t.Errorf("ResolveKey(base %d): expected TARIFF_NOT_FOUND, got %v", base, err)
		}
	}

	// an unknown variant also fails closed rather than falling back to the baseline row
	_, err = e.Calculate(context.Background(), normalize(t, input.Request{
		InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: months(12), Variant: "a",
	}))
	if !errors.IsType(err, errors.TypeTariffNotFound) {
		t.Errorf("expected TARIFF_NOT_FOUND for unknown variant, got %v", err)
	}
}

func TestVariantRow(t *testing.T) {
	variant := scenarioRow
	variant.NetPremium = 12000
	variant.Total = variant.Subtotal()
	tbl, err := tariff.NewBuilder(1).
		AddRow(tariff.InternalKey(1), scenarioRow).
		AddRow(tariff.InternalKey(1).WithVariant("a"), variant).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(holderWith(t, tbl), Config{Fees: DefaultFees(), Logger: zap.NewNop()})

	q, err := e.Calculate(context.Background(), normalize(t, input.Request{
		InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: months(12), Variant: "a",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if q.Breakdown.NetPremium != 12000 {
		t.Errorf("variant row not used: %+v", q.Breakdown)
	}
}

func TestClassificationDoesNotChangePrice(t *testing.T) {
	e := NewEngine(holderWith(t, tarifftest.Table(t, 1)), Config{Fees: DefaultFees(), Logger: zap.NewNop()})
	var totals []int64
	for _, class := range input.Classifications {
		q, err := e.Calculate(context.Background(), normalize(t, input.Request{
			InsuranceType: "internal", VehicleCode: "07", Category: "03", Classification: class, Months: months(6),
		}))
		if err != nil {
			t.Fatal(err)
		}
		totals = append(totals, q.Breakdown.Total)
	}
	for _, total := range totals[1:] {
		if total != totals[0] {
			t.Errorf("classification changed the total: %v", totals)
		}
	}
}

func TestInconsistencyWarning(t *testing.T) {
	bad := scenarioRow
	bad.Total = 11000
	tbl, err := tariff.NewBuilder(3).AddRow(tariff.InternalKey(1), bad).Build()
	if err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zapcore.WarnLevel)
	obs := &recordingObserver{}
	e := NewEngine(holderWith(t, tbl), Config{Fees: DefaultFees(), Logger: zap.New(core), Observer: obs})

	q, err := e.Calculate(context.Background(), normalize(t, input.Request{
		InsuranceType: "internal", VehicleCode: "01", Category: "01", Classification: "0", Months: months(12),
	}))
	if err != nil {
		t.Fatalf("inconsistency must not fail the request: %v", err)
	}
	if q.Breakdown.Subtotal != 11200 || q.Breakdown.Total != 11200 {
		t.Errorf("recomputed value must win: %+v", q.Breakdown)
	}
	if len(q.Warnings) != 1 || q.Warnings[0].Code != "TARIFF_INCONSISTENCY" || q.Warnings[0].StoredTotal != 11000 {
		t.Fatalf("unexpected warnings: %+v", q.Warnings)
	}

	entries := logs.FilterMessage("tariff row inconsistent").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["key"] != "internal/1" || fields["stored_total"] != int64(11000) {
		t.Errorf("unexpected log fields: %v", fields)
	}
	if _, ok := fields["table_version"]; !ok {
		t.Errorf("warning log does not identify the table: %v", fields)
	}
	if obs.inconsistency != 1 {
		t.Errorf("observer saw %d inconsistencies", obs.inconsistency)
	}
}

type failingStore struct{ err error }

func (f failingStore) ActiveTable(context.Context) (*tariff.Table, error) { return nil, f.err }
func (f failingStore) Row(context.Context, tariff.Key, int) (tariff.Row, bool, error) {
	return tariff.Row{}, false, f.err
}

func TestTableUnavailable(t *testing.T) {
	obs := &recordingObserver{}
	req := input.Request{InsuranceType: "border", BorderVehicleType: "bus", Months: months(3)}

	for _, store := range []tariff.Store{tariff.NewHolder(), failingStore{err: stderrors.New("connection refused")}} {
		e := NewEngine(store, Config{Fees: DefaultFees(), Logger: zap.NewNop(), Observer: obs})
		q, err := e.Calculate(context.Background(), normalize(t, req))
		if q != nil {
			t.Errorf("expected no quote, got %+v", q)
		}
		if !errors.IsType(err, errors.TypeTableUnavailable) || !errors.Retryable(err) {
			t.Errorf("expected retryable TABLE_UNAVAILABLE, got %v", err)
		}
	}
	if len(obs.statuses) != 2 || obs.statuses[0] != "table_unavailable" {
		t.Errorf("observer statuses = %v", obs.statuses)
	}
}

func TestDeterminism(t *testing.T) {
	tbl := tarifftest.Table(t, 1)
	e := NewEngine(holderWith(t, tbl), Config{Fees: DefaultFees(), Logger: zap.NewNop()})

	reqs := []input.Request{
		{InsuranceType: "internal", VehicleCode: "12", Category: "02", Classification: "1", Months: months(3), RescueService: yes()},
		{InsuranceType: "border", BorderVehicleType: "motorcycle", Months: months(6)},
	}
	for _, req := range reqs {
		in := normalize(t, req)
		a, err := e.Price(tbl, in)
		if err != nil {
			t.Fatal(err)
		}
		b, err := e.Price(tbl, in)
		if err != nil {
			t.Fatal(err)
		}
		if a.Breakdown != b.Breakdown || a.Key != b.Key || a.TableHash != b.TableHash {
			t.Errorf("non-deterministic result for %+v", req)
		}
	}
}

func TestAggregationIdentityAcrossTable(t *testing.T) {
	tbl := tarifftest.Table(t, 1)
	e := NewEngine(holderWith(t, tbl), Config{Fees: DefaultFees(), Logger: zap.NewNop()})
	n := input.DefaultNormalizer()

	for _, cat := range tariff.Categories {
		for base := tariff.MinBaseType; base <= tariff.MaxBaseType; base++ {
			in, err := n.Normalize(input.Request{
				InsuranceType: "internal", VehicleCode: fmt.Sprintf("%02d", base),
				Category: string(cat), Classification: "0", Months: months(12), ElectronicCard: yes(),
			})
			if err != nil {
				t.Fatal(err)
			}
			q, err := e.Price(tbl, in)
			if err != nil {
				t.Fatalf("base %d cat %s: %v", base, cat, err)
			}
			b := q.Breakdown
			if b.Subtotal != b.NetPremium+b.StampFee+b.WarEffort+b.LocalAdministration+b.Reconstruction+b.MartyrFund {
				t.Errorf("subtotal identity broken: %+v", b)
			}
			if b.Total != b.Subtotal+b.ElectronicCardFee+b.PremiumServiceFee+b.RescueServiceFee {
				t.Errorf("total identity broken: %+v", b)
			}
			if q.Key.Code < 1 || q.Key.Code > tariff.MaxInternalCode {
				t.Errorf("resolved code %d out of range", q.Key.Code)
			}
		}
	}
}

func TestResolveKeyRejectsMalformedInput(t *testing.T) {
	_, err := ResolveKey(input.PricingInput{Kind: tariff.KindInternal})
	if !errors.IsType(err, errors.TypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	_, err = ResolveKey(input.PricingInput{Kind: tariff.KindBorder, Border: &input.BorderInput{VehicleType: tariff.BorderTourist, Months: 2}})
	if !errors.IsKind(err, errors.KindInvalidDuration) {
		t.Errorf("expected InvalidDuration, got %v", err)
	}
}

func TestQuoteIDCarriesComputationTime(t *testing.T) {
	at := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	e := NewEngine(holderWith(t, scenarioTable(t)), Config{
		Fees:   DefaultFees(),
		Logger: zap.NewNop(),
		Clock:  func() time.Time { return at },
	})
	in := normalize(t, input.Request{
		InsuranceType: "border", BorderVehicleType: "tourist", Months: months(12),
	})

	first, err := e.Calculate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Calculate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Error("quote IDs must be unique")
	}
	id, err := ulid.Parse(first.ID)
	if err != nil {
		t.Fatalf("quote ID %q is not a ULID: %v", first.ID, err)
	}
	if got := ulid.Time(id.Time()); !got.Equal(at) {
		t.Errorf("ULID time = %s, want %s", got, at)
	}
	if !first.ComputedAt.Equal(at) {
		t.Errorf("ComputedAt = %s", first.ComputedAt)
	}
}

func TestQuoteIDsIncreaseWithinOneMillisecond(t *testing.T) {
	at := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	const n = 200
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = newQuoteID(at)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate quote ID %s", id)
		}
		seen[id] = true
	}

	prev := newQuoteID(at)
	for i := 0; i < n; i++ {
		next := newQuoteID(at)
		if next <= prev {
			t.Fatalf("quote IDs not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

package consent_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"consent-go/internal/consent"
	"consent-go/internal/testutil"
)

func newTestService(t *testing.T) (*consent.LogService, *testutil.StubClock) {
	t.Helper()
	clock := testutil.FixedClock()
	return consent.NewLogService(testutil.NewTestDecisionLog(t), consent.NewNopLogger(), clock, testutil.NewStubIDGenerator()), clock
}

func TestLogService_Record(t *testing.T) {
	svc, clock := newTestService(t)

	d, err := svc.Record(context.Background(), consent.Report{
		Action:        consent.DefaultLogAction,
		Consent:       "Partial",
		Categories:    " analytics, necessary,,analytics ",
		ConfigVersion: " 2 ",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if d.ID != "id-1" || d.Type != consent.TypePartial || d.ConfigVersion != "2" {
		t.Errorf("Record() = %+v", d)
	}
	if !slices.Equal(d.Categories, []string{"analytics", "necessary"}) {
		t.Errorf("Categories = %v, want [analytics necessary]", d.Categories)
	}
	if !d.CreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, clock.Now())
	}

	ds, err := svc.History(10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(ds) != 1 || ds[0].ID != "id-1" {
		t.Errorf("History() = %+v", ds)
	}
}

func TestLogService_Record_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Record(context.Background(), consent.Report{Consent: "most"}); err == nil {
		t.Error("Record() expected error for unknown type")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Record(ctx, consent.Report{Consent: consent.TypeFull}); err == nil {
		t.Error("Record() expected error for cancelled context")
	}

	if ds, _ := svc.History(10); len(ds) != 0 {
		t.Errorf("invalid reports were stored: %+v", ds)
	}
}

func TestLogService_Stats(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	report := func(typ consent.Type, cats string) {
		t.Helper()
		if err := svc.Report(ctx, consent.Report{Consent: typ, Categories: cats}); err != nil {
			t.Fatalf("Report() error = %v", err)
		}
	}

	report(consent.TypeFull, "necessary,analytics,ads")
	clock.Advance(-10 * 24 * time.Hour)
	report(consent.TypeNone, "necessary")
	clock.Advance(10 * 24 * time.Hour)
	report(consent.TypePartial, "necessary,analytics")
	report(consent.TypeFull, "necessary,analytics,ads")

	st, err := svc.Stats(7)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Total != 3 {
		t.Errorf("Total = %d, want 3 within the window", st.Total)
	}
	if st.ByType[consent.TypeFull] != 2 || st.ByType[consent.TypePartial] != 1 || st.ByType[consent.TypeNone] != 0 {
		t.Errorf("ByType = %v", st.ByType)
	}
	if st.Categories["analytics"] != 3 || st.Categories["ads"] != 2 {
		t.Errorf("Categories = %v", st.Categories)
	}
	if want := 2.0 / 3.0; st.AcceptRate != want {
		t.Errorf("AcceptRate = %v, want %v", st.AcceptRate, want)
	}

	all, err := svc.Stats(30)
	if err != nil {
		t.Fatalf("Stats(30) error = %v", err)
	}
	if all.Total != 4 {
		t.Errorf("Stats(30).Total = %d, want 4", all.Total)
	}

	if _, err := svc.Stats(0); err == nil {
		t.Error("Stats(0) expected error")
	}
}

func TestLogService_Stats_Empty(t *testing.T) {
	svc, _ := newTestService(t)

	st, err := svc.Stats(30)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Total != 0 || st.AcceptRate != 0 {
		t.Errorf("Stats() = %+v, want zeros", st)
	}
	if _, ok := st.ByType[consent.TypeNone]; !ok {
		t.Error("ByType should list every type even when empty")
	}
}

func TestLogService_Purge(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	clock.Advance(-100 * 24 * time.Hour)
	svc.Report(ctx, consent.Report{Consent: consent.TypeNone})
	clock.Advance(100 * 24 * time.Hour)
	svc.Report(ctx, consent.Report{Consent: consent.TypeFull, Categories: "necessary"})

	n, err := svc.Purge(30)
	if err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Purge() = %d, want 1", n)
	}

	ds, _ := svc.History(10)
	if len(ds) != 1 || ds[0].Type != consent.TypeFull {
		t.Errorf("remaining = %+v, want the recent full decision", ds)
	}

	if _, err := svc.Purge(0); err == nil {
		t.Error("Purge(0) expected error")
	}
}

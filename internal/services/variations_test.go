package services

import (
	"context"
	"testing"
	"time"

	"goalfin/internal/core"
)

func TestVariations(t *testing.T) {
	now := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

	t.Run("computes percentage change against last month", func(t *testing.T) {
		store := &fakeStore{}
		a := store.addAccount("acc-1", "Main", core.AccountTypeChecking, "1000.00", "EUR")

		ctx := context.Background()
		feb := time.Date(2024, 2, 20, 23, 59, 0, 0, time.UTC)
		if _, err := store.CreateSnapshot(ctx, core.NewSnapshot(a.ID, "user-1", mustDecimal("800.00"), feb)); err != nil {
			t.Fatalf("seed fixture: %v", err)
		}

		svc := NewAnalyticsService(store, midRand(), fixedNow(now))
		report, err := svc.Variations(ctx, "user-1")
		if err != nil {
			t.Fatalf("Variations() error = %v", err)
		}
		if !report.HasData {
			t.Error("HasData = false, want true")
		}
		if got, want := report.TotalVariation, 25.0; got != want {
			t.Errorf("TotalVariation = %v, want %v", got, want)
		}
		if got, want := report.LastMonthTotal.String(), "800"; got != want {
			t.Errorf("LastMonthTotal = %s, want %s", got, want)
		}
		if got, want := report.CurrentPeriod, "2024-03-01"; got != want {
			t.Errorf("CurrentPeriod = %q, want %q", got, want)
		}
		if got, want := report.PreviousPeriod, "2024-02-01"; got != want {
			t.Errorf("PreviousPeriod = %q, want %q", got, want)
		}
	})

	t.Run("latest snapshot per account wins", func(t *testing.T) {
		store := &fakeStore{}
		a := store.addAccount("acc-1", "Main", core.AccountTypeChecking, "1000.00", "EUR")

		ctx := context.Background()
		for _, fix := range []struct {
			day     time.Time
			balance string
		}{
			{time.Date(2024, 2, 5, 23, 59, 0, 0, time.UTC), "500.00"},
			{time.Date(2024, 2, 28, 23, 59, 0, 0, time.UTC), "800.00"},
		} {
			if _, err := store.CreateSnapshot(ctx, core.NewSnapshot(a.ID, "user-1", mustDecimal(fix.balance), fix.day)); err != nil {
				t.Fatalf("seed fixture: %v", err)
			}
		}

		svc := NewAnalyticsService(store, midRand(), fixedNow(now))
		report, err := svc.Variations(ctx, "user-1")
		if err != nil {
			t.Fatalf("Variations() error = %v", err)
		}
		if got, want := report.LastMonthTotal.String(), "800"; got != want {
			t.Errorf("LastMonthTotal = %s, want %s", got, want)
		}
	})

	t.Run("zero last month total means zero variation", func(t *testing.T) {
		store := &fakeStore{}
		a := store.addAccount("acc-1", "Main", core.AccountTypeChecking, "1000.00", "EUR")

		ctx := context.Background()
		feb := time.Date(2024, 2, 20, 23, 59, 0, 0, time.UTC)
		if _, err := store.CreateSnapshot(ctx, core.NewSnapshot(a.ID, "user-1", mustDecimal("0.00"), feb)); err != nil {
			t.Fatalf("seed fixture: %v", err)
		}

		svc := NewAnalyticsService(store, midRand(), fixedNow(now))
		report, err := svc.Variations(ctx, "user-1")
		if err != nil {
			t.Fatalf("Variations() error = %v", err)
		}
		if got := report.TotalVariation; got != 0 {
			t.Errorf("TotalVariation = %v, want 0", got)
		}
	})

	t.Run("synthesizes last month when no history exists", func(t *testing.T) {
		store := &fakeStore{}
		store.addAccount("acc-1", "Main", core.AccountTypeChecking, "1000.00", "EUR")

		// r = 0.5 makes the synthesized factor exactly 1.
		svc := NewAnalyticsService(store, midRand(), fixedNow(now))
		report, err := svc.Variations(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Variations() error = %v", err)
		}
		if report.HasData {
			t.Error("HasData = true, want false")
		}
		if got, want := report.LastMonthTotal.String(), "1000"; got != want {
			t.Errorf("LastMonthTotal = %s, want %s", got, want)
		}
		if got := report.TotalVariation; got != 0 {
			t.Errorf("TotalVariation = %v, want 0", got)
		}
	})

	t.Run("per type figures carry their own data flags", func(t *testing.T) {
		store := &fakeStore{}
		checking := store.addAccount("acc-1", "Main", core.AccountTypeChecking, "1000.00", "EUR")
		store.addAccount("acc-2", "Nest egg", core.AccountTypeSavings, "2000.00", "EUR")

		ctx := context.Background()
		feb := time.Date(2024, 2, 20, 23, 59, 0, 0, time.UTC)
		if _, err := store.CreateSnapshot(ctx, core.NewSnapshot(checking.ID, "user-1", mustDecimal("800.00"), feb)); err != nil {
			t.Fatalf("seed fixture: %v", err)
		}

		svc := NewAnalyticsService(store, midRand(), fixedNow(now))
		report, err := svc.Variations(ctx, "user-1")
		if err != nil {
			t.Fatalf("Variations() error = %v", err)
		}

		byChecking := report.ByType[core.AccountTypeChecking]
		if !byChecking.HasData {
			t.Error("checking HasData = false, want true")
		}
		if got, want := byChecking.Variation, 25.0; got != want {
			t.Errorf("checking Variation = %v, want %v", got, want)
		}
		if got, want := byChecking.AccountCount, 1; got != want {
			t.Errorf("checking AccountCount = %d, want %d", got, want)
		}

		bySavings := report.ByType[core.AccountTypeSavings]
		if bySavings.HasData {
			t.Error("savings HasData = true, want false")
		}
		if got, want := bySavings.LastMonthTotal.String(), "2000"; got != want {
			t.Errorf("savings LastMonthTotal = %s, want %s", got, want)
		}
	})
}

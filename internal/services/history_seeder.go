package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
)

// Per-day-back decay applied when reconstructing history: walking
// backwards from the present balance, each older day drifts down by this
// fraction before noise is added.
func decayRate(t core.AccountType) float64 {
	switch t {
	case core.AccountTypeSavings:
		return 0.0005
	case core.AccountTypeChecking:
		return 0.0008
	case core.AccountTypeInvestment:
		return 0.001
	case core.AccountTypeCash:
		return 0.002
	default:
		return 0.001
	}
}

// seedChunkSize bounds how many snapshots go into a single store
// transaction during a backfill, so large windows do not turn into one
// giant write.
const seedChunkSize = 250

// SeedHistory backfills the N+1 days ending today with plausible
// snapshots for every active account, skipping days that already have
// one. Re-running with the same window creates nothing.
func (s *AnalyticsService) SeedHistory(ctx context.Context, userID string, days int) ([]core.Snapshot, error) {
	if days < 0 {
		return nil, fmt.Errorf("invalid day count %d", days)
	}

	accounts, err := s.store.ActiveAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load active accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	today := s.now()
	existing, err := s.store.FindSnapshots(ctx, core.SnapshotFilter{
		UserID: userID,
		From:   core.StartOfDay(today.AddDate(0, 0, -days)),
		To:     core.EndOfDay(today),
	})
	if err != nil {
		return nil, fmt.Errorf("load existing snapshots: %w", err)
	}
	covered := make(map[string]bool, len(existing))
	for _, snap := range existing {
		covered[snap.AccountID+"|"+snap.Day] = true
	}

	var missing []core.Snapshot
	for i := days; i >= 0; i-- {
		date := core.EndOfDay(today.AddDate(0, 0, -i))
		for _, account := range accounts {
			if covered[account.ID+"|"+date.Format(core.DayLayout)] {
				continue
			}
			balance := s.synthesizeBalance(account.Balance, i, date, account.Type)
			missing = append(missing, core.NewSnapshot(account.ID, userID, balance, date))
		}
	}

	created := make([]core.Snapshot, 0, len(missing))
	for start := 0; start < len(missing); start += seedChunkSize {
		end := min(start+seedChunkSize, len(missing))
		chunk, err := s.store.CreateSnapshots(ctx, missing[start:end])
		if err != nil {
			return created, fmt.Errorf("write snapshot chunk: %w", err)
		}
		created = append(created, chunk...)
	}

	slog.InfoContext(ctx, "Historical snapshots seeded",
		"user_id", userID,
		"days", days,
		"accounts", len(accounts),
		"created", len(created))
	return created, nil
}

// synthesizeBalance reconstructs a plausible balance for daysBack days
// ago: a backward random walk anchored at the present balance, with
// type-specific drift, daily and weekend noise, and a payday bump on
// checking accounts late in the month. Not a ledger reconstruction.
func (s *AnalyticsService) synthesizeBalance(current decimal.Decimal, daysBack int, date time.Time, accountType core.AccountType) decimal.Decimal {
	trendFactor := 1 - float64(daysBack)*decayRate(accountType)

	// ±3% daily noise
	randomVariation := (s.rand.Float64() - 0.5) * 0.06

	// ±7.5% on weekends
	weekendFactor := 0.0
	if core.IsWeekend(date) {
		weekendFactor = (s.rand.Float64() - 0.5) * 0.15
	}

	paydayFactor := 0.0
	if accountType == core.AccountTypeChecking && date.Day() >= 25 && date.Day() <= 28 {
		paydayFactor = 0.1
	}

	factor := trendFactor + randomVariation + weekendFactor + paydayFactor
	balance := current.Mul(decimal.NewFromFloat(factor)).Round(2)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

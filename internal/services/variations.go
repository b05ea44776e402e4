package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
)

type (
	// TypeVariation is the month-over-month change for one account type.
	// HasData is false when the previous-month figure was synthesized.
	TypeVariation struct {
		Type           core.AccountType `json:"type"`
		CurrentTotal   decimal.Decimal  `json:"currentTotal"`
		LastMonthTotal decimal.Decimal  `json:"lastMonthTotal"`
		Variation      float64          `json:"variation"`
		AccountCount   int              `json:"accountCount"`
		HasData        bool             `json:"hasData"`
	}

	// VariationReport compares the current total balance against the
	// latest snapshots on or before the end of the previous calendar
	// month, overall and per account type.
	VariationReport struct {
		HasData        bool                               `json:"hasData"`
		CurrentTotal   decimal.Decimal                    `json:"currentTotal"`
		LastMonthTotal decimal.Decimal                    `json:"lastMonthTotal"`
		TotalVariation float64                            `json:"totalVariation"`
		ByType         map[core.AccountType]TypeVariation `json:"variationsByType"`
		CurrentPeriod  string                             `json:"currentPeriod"`
		PreviousPeriod string                             `json:"previousPeriod"`
	}
)

// Variations computes percentage change between the current balances and
// the end of the previous calendar month. When that month has no
// snapshots the prior value is synthesized within ±5% and the result is
// flagged non-authoritative.
func (s *AnalyticsService) Variations(ctx context.Context, userID string) (VariationReport, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	lastMonthEnd := monthStart.Add(-time.Second)

	accounts, err := s.store.ActiveAccounts(ctx, userID)
	if err != nil {
		return VariationReport{}, fmt.Errorf("load active accounts: %w", err)
	}

	currentTotal := decimal.Zero
	for _, account := range accounts {
		currentTotal = currentTotal.Add(account.Balance)
	}

	// Newest first, so the first snapshot seen per account is the latest
	// one inside the previous month.
	snapshots, err := s.store.FindSnapshots(ctx, core.SnapshotFilter{
		UserID: userID,
		From:   lastMonthStart,
		To:     lastMonthEnd,
		Order:  core.OrderDesc,
	})
	if err != nil {
		return VariationReport{}, fmt.Errorf("load last month snapshots: %w", err)
	}

	latestByAccount := make(map[string]decimal.Decimal)
	for _, snap := range snapshots {
		if _, ok := latestByAccount[snap.AccountID]; !ok {
			latestByAccount[snap.AccountID] = snap.Balance
		}
	}

	hasData := len(snapshots) > 0
	lastMonthTotal := decimal.Zero
	if hasData {
		for _, balance := range latestByAccount {
			lastMonthTotal = lastMonthTotal.Add(balance)
		}
	} else {
		lastMonthTotal = s.synthesizePriorTotal(currentTotal)
	}

	report := VariationReport{
		HasData:        hasData,
		CurrentTotal:   currentTotal,
		LastMonthTotal: lastMonthTotal,
		TotalVariation: variationPercent(currentTotal, lastMonthTotal),
		ByType:         make(map[core.AccountType]TypeVariation),
		CurrentPeriod:  monthStart.Format(core.DayLayout),
		PreviousPeriod: lastMonthStart.Format(core.DayLayout),
	}

	// Per-type figures reuse the same snapshot window, grouped through
	// each account's current type.
	typeOf := make(map[string]core.AccountType, len(accounts))
	for _, account := range accounts {
		typeOf[account.ID] = account.Type
	}

	currentByType := make(map[core.AccountType]decimal.Decimal)
	countByType := make(map[core.AccountType]int)
	for _, account := range accounts {
		currentByType[account.Type] = currentByType[account.Type].Add(account.Balance)
		countByType[account.Type]++
	}

	lastByType := make(map[core.AccountType]decimal.Decimal)
	seenByType := make(map[core.AccountType]bool)
	for accountID, balance := range latestByAccount {
		t, ok := typeOf[accountID]
		if !ok {
			continue // snapshot of a deactivated account
		}
		lastByType[t] = lastByType[t].Add(balance)
		seenByType[t] = true
	}

	for t, current := range currentByType {
		last := lastByType[t]
		typeHasData := seenByType[t]
		if !typeHasData {
			last = s.synthesizePriorTotal(current)
		}
		report.ByType[t] = TypeVariation{
			Type:           t,
			CurrentTotal:   current,
			LastMonthTotal: last,
			Variation:      variationPercent(current, last),
			AccountCount:   countByType[t],
			HasData:        typeHasData,
		}
	}

	return report, nil
}

// synthesizePriorTotal invents a previous-month total within ±5% of the
// current one, for users with no recorded history.
func (s *AnalyticsService) synthesizePriorTotal(current decimal.Decimal) decimal.Decimal {
	factor := 0.95 + s.rand.Float64()*0.1
	return current.Mul(decimal.NewFromFloat(factor)).Round(2)
}

// variationPercent is the percentage change from last to current,
// defined as 0 when last is not positive.
func variationPercent(current, last decimal.Decimal) float64 {
	if !last.IsPositive() {
		return 0
	}
	return current.Sub(last).Div(last).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
)

// trendWindowMonths is the lookback window for the balance trend series.
const trendWindowMonths = 3

// demoTrendDays is the length of the synthesized fallback series: today
// plus the 90 days before it.
const demoTrendDays = 90

type (
	// TrendPoint is one calendar day of the series: the summed balance
	// across accounts plus a per-account-name breakdown.
	TrendPoint struct {
		Date     string                     `json:"date"`
		Total    decimal.Decimal            `json:"total"`
		Accounts map[string]decimal.Decimal `json:"accounts"`
	}

	// AccountLegend carries the account attributes a chart legend needs.
	AccountLegend struct {
		ID    string           `json:"id"`
		Name  string           `json:"name"`
		Color string           `json:"color"`
		Type  core.AccountType `json:"type"`
	}

	// TrendReport is the trend series, tagged so callers can tell real
	// history from synthesized demo data.
	TrendReport struct {
		HasData  bool            `json:"hasData"`
		Demo     bool            `json:"isDemo,omitempty"`
		Trends   []TrendPoint    `json:"trends"`
		Accounts []AccountLegend `json:"accounts"`
	}
)

// Trends computes the day-by-day balance series over the last three
// months. With accounts but no snapshots it degrades to a synthesized
// demo series rather than an error.
func (s *AnalyticsService) Trends(ctx context.Context, userID string) (TrendReport, error) {
	accounts, err := s.store.ActiveAccounts(ctx, userID)
	if err != nil {
		return TrendReport{}, fmt.Errorf("load active accounts: %w", err)
	}
	if len(accounts) == 0 {
		return TrendReport{Trends: []TrendPoint{}, Accounts: []AccountLegend{}}, nil
	}

	now := s.now()
	snapshots, err := s.store.FindSnapshots(ctx, core.SnapshotFilter{
		UserID: userID,
		From:   now.AddDate(0, -trendWindowMonths, 0),
		To:     core.EndOfDay(now),
		Order:  core.OrderAsc,
	})
	if err != nil {
		return TrendReport{}, fmt.Errorf("load snapshots: %w", err)
	}

	if len(snapshots) == 0 {
		slog.InfoContext(ctx, "No snapshots in trend window, generating demo series", "user_id", userID)
		return s.demoTrends(accounts), nil
	}

	names := make(map[string]string, len(accounts))
	for _, account := range accounts {
		names[account.ID] = account.Name
	}

	byDate := make(map[string]*TrendPoint)
	var order []string
	for _, snap := range snapshots {
		point, ok := byDate[snap.Day]
		if !ok {
			point = &TrendPoint{
				Date:     snap.Day,
				Total:    decimal.Zero,
				Accounts: make(map[string]decimal.Decimal),
			}
			byDate[snap.Day] = point
			order = append(order, snap.Day)
		}

		name := names[snap.AccountID]
		if name == "" {
			// Snapshot of a since-deactivated account; keep it under its id.
			name = snap.AccountID
		}
		if _, seen := point.Accounts[name]; seen {
			// Duplicate account+day should not happen under the store
			// invariant; first one wins.
			continue
		}
		point.Accounts[name] = snap.Balance
		point.Total = point.Total.Add(snap.Balance)
	}

	sort.Strings(order)
	trends := make([]TrendPoint, 0, len(order))
	for _, day := range order {
		trends = append(trends, *byDate[day])
	}

	return TrendReport{
		HasData:  true,
		Trends:   trends,
		Accounts: legend(accounts),
	}, nil
}

// demoTrends synthesizes a 91-day series with an undirected ±5% walk
// around each account's current balance.
func (s *AnalyticsService) demoTrends(accounts []core.Account) TrendReport {
	today := s.now()
	trends := make([]TrendPoint, 0, demoTrendDays+1)

	for i := demoTrendDays; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)

		point := TrendPoint{
			Date:     date.Format(core.DayLayout),
			Total:    decimal.Zero,
			Accounts: make(map[string]decimal.Decimal, len(accounts)),
		}
		for _, account := range accounts {
			variation := (s.rand.Float64() - 0.5) * 0.1
			balance := account.Balance.Mul(decimal.NewFromFloat(1 + variation)).Round(2)
			point.Accounts[account.Name] = balance
			point.Total = point.Total.Add(balance)
		}
		trends = append(trends, point)
	}

	return TrendReport{
		HasData:  false,
		Demo:     true,
		Trends:   trends,
		Accounts: legend(accounts),
	}
}

func legend(accounts []core.Account) []AccountLegend {
	out := make([]AccountLegend, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, AccountLegend{
			ID:    account.ID,
			Name:  account.Name,
			Color: account.Color,
			Type:  account.Type,
		})
	}
	return out
}

package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
)

type (
	// CurrencyAccount is one account's contribution to a currency bucket.
	CurrencyAccount struct {
		ID      string           `json:"id"`
		Name    string           `json:"name"`
		Balance decimal.Decimal  `json:"balance"`
		Type    core.AccountType `json:"type"`
	}

	// CurrencyBucket groups the accounts sharing one currency code.
	CurrencyBucket struct {
		Currency     string            `json:"currency"`
		TotalBalance decimal.Decimal   `json:"totalBalance"`
		AccountCount int               `json:"accountCount"`
		Accounts     []CurrencyAccount `json:"accounts"`
		Percentage   float64           `json:"percentage"`
	}

	// CurrencyReport is the current-state breakdown of balances by
	// currency. No historical dimension.
	CurrencyReport struct {
		Currencies    []CurrencyBucket `json:"currencies"`
		TotalValue    decimal.Decimal  `json:"totalValue"`
		CurrencyCount int              `json:"currencyCount"`
	}
)

// Currencies groups current active-account balances by currency code and
// computes each currency's share of the grand total.
func (s *AnalyticsService) Currencies(ctx context.Context, userID string) (CurrencyReport, error) {
	accounts, err := s.store.ActiveAccounts(ctx, userID)
	if err != nil {
		return CurrencyReport{}, fmt.Errorf("load active accounts: %w", err)
	}

	buckets := make(map[string]*CurrencyBucket)
	var order []string
	for _, account := range accounts {
		bucket, ok := buckets[account.Currency]
		if !ok {
			bucket = &CurrencyBucket{
				Currency:     account.Currency,
				TotalBalance: decimal.Zero,
			}
			buckets[account.Currency] = bucket
			order = append(order, account.Currency)
		}

		bucket.TotalBalance = bucket.TotalBalance.Add(account.Balance)
		bucket.AccountCount++
		bucket.Accounts = append(bucket.Accounts, CurrencyAccount{
			ID:      account.ID,
			Name:    account.Name,
			Balance: account.Balance,
			Type:    account.Type,
		})
	}

	totalValue := decimal.Zero
	for _, currency := range order {
		totalValue = totalValue.Add(buckets[currency].TotalBalance)
	}

	currencies := make([]CurrencyBucket, 0, len(order))
	for _, currency := range order {
		bucket := buckets[currency]
		if totalValue.IsPositive() {
			bucket.Percentage = bucket.TotalBalance.Div(totalValue).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		currencies = append(currencies, *bucket)
	}

	return CurrencyReport{
		Currencies:    currencies,
		TotalValue:    totalValue,
		CurrencyCount: len(currencies),
	}, nil
}

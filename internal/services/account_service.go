package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
	"goalfin/internal/storage"
)

// AccountStore is the persistence contract behind account CRUD.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	ActiveAccounts(ctx context.Context, userID string) ([]core.Account, error)
	AccountByID(ctx context.Context, id, userID string) (core.Account, error)
	UpdateAccount(ctx context.Context, id, userID string, upd storage.AccountUpdate) (core.Account, error)
	DeactivateAccount(ctx context.Context, id, userID string) error
	Transfer(ctx context.Context, userID, fromID, toID string, amount decimal.Decimal) error
}

// AccountService handles account CRUD, summaries and transfers.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// CreateAccountInput is the caller-facing shape of a new account.
type CreateAccountInput struct {
	Name     string
	Type     string
	Balance  decimal.Decimal
	Currency string
	Color    string
	Icon     string
}

type (
	// TypeSummary aggregates one account type inside a summary.
	TypeSummary struct {
		Count   int             `json:"count"`
		Balance decimal.Decimal `json:"balance"`
	}

	// AccountSummary is the roll-up of a user's active accounts.
	AccountSummary struct {
		TotalBalance  decimal.Decimal                  `json:"totalBalance"`
		TotalAccounts int                              `json:"totalAccounts"`
		ByType        map[core.AccountType]TypeSummary `json:"byType"`
		Accounts      []core.Account                   `json:"accounts"`
	}
)

func (s *AccountService) Create(ctx context.Context, userID string, input CreateAccountInput) (core.Account, error) {
	accountType, err := core.ParseAccountType(input.Type)
	if err != nil {
		return core.Account{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "EUR"
	}

	account := core.Account{
		UserID:   userID,
		Name:     strings.TrimSpace(input.Name),
		Type:     accountType,
		Balance:  input.Balance.Round(2),
		Currency: currency,
		Color:    input.Color,
		Icon:     input.Icon,
		Active:   true,
	}
	if err := account.Validate(); err != nil {
		return core.Account{}, err
	}

	return s.store.CreateAccount(ctx, account)
}

func (s *AccountService) List(ctx context.Context, userID string) ([]core.Account, error) {
	return s.store.ActiveAccounts(ctx, userID)
}

func (s *AccountService) Get(ctx context.Context, id, userID string) (core.Account, error) {
	return s.store.AccountByID(ctx, id, userID)
}

func (s *AccountService) Update(ctx context.Context, id, userID string, upd storage.AccountUpdate) (core.Account, error) {
	if upd.Type != nil && !upd.Type.Valid() {
		return core.Account{}, core.ErrInvalidAccountType
	}
	if upd.Balance != nil && upd.Balance.IsNegative() {
		return core.Account{}, core.ErrNegativeBalance
	}
	return s.store.UpdateAccount(ctx, id, userID, upd)
}

// Delete soft-deletes: the account stops appearing in listings and
// aggregations but its snapshots remain.
func (s *AccountService) Delete(ctx context.Context, id, userID string) error {
	return s.store.DeactivateAccount(ctx, id, userID)
}

// Summary rolls active accounts up into a grand total and per-type buckets.
func (s *AccountService) Summary(ctx context.Context, userID string) (AccountSummary, error) {
	accounts, err := s.store.ActiveAccounts(ctx, userID)
	if err != nil {
		return AccountSummary{}, fmt.Errorf("load active accounts: %w", err)
	}

	summary := AccountSummary{
		TotalBalance: decimal.Zero,
		ByType:       make(map[core.AccountType]TypeSummary),
		Accounts:     accounts,
	}
	for _, account := range accounts {
		summary.TotalBalance = summary.TotalBalance.Add(account.Balance)
		summary.TotalAccounts++

		bucket := summary.ByType[account.Type]
		bucket.Count++
		bucket.Balance = bucket.Balance.Add(account.Balance)
		summary.ByType[account.Type] = bucket
	}

	return summary, nil
}

// Transfer moves amount between two of the user's accounts as a single
// all-or-nothing store operation.
func (s *AccountService) Transfer(ctx context.Context, userID, fromID, toID string, amount decimal.Decimal) error {
	if fromID == toID {
		return fmt.Errorf("cannot transfer an account to itself")
	}
	if err := s.store.Transfer(ctx, userID, fromID, toID, amount.Round(2)); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transfer completed",
		"user_id", userID,
		"from", fromID,
		"to", toID,
		"amount", amount.String())
	return nil
}

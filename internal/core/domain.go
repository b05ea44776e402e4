package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountTypeSavings    AccountType = "savings"
	AccountTypeChecking   AccountType = "checking"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeCash       AccountType = "cash"
	AccountTypeOther      AccountType = "other"
)

type (
	AccountType string

	User struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	Account struct {
		ID        string          `json:"id"`
		UserID    string          `json:"userId"`
		Name      string          `json:"name"`
		Type      AccountType     `json:"type"`
		Balance   decimal.Decimal `json:"balance"`
		Currency  string          `json:"currency"`
		Color     string          `json:"color,omitempty"`
		Icon      string          `json:"icon,omitempty"`
		Active    bool            `json:"isActive"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrSnapshotExists     = errors.New("snapshot already exists for this day")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyCurrency      = errors.New("empty currency code")
	ErrNegativeBalance    = errors.New("negative balance")
)

// ParseAccountType validates a raw account type string.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(strings.ToLower(strings.TrimSpace(s))); t {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeInvestment, AccountTypeCash, AccountTypeOther:
		return t, nil
	default:
		return "", ErrInvalidAccountType
	}
}

func (t AccountType) Valid() bool {
	_, err := ParseAccountType(string(t))
	return err == nil
}

func (a Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	if a.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	if strings.TrimSpace(a.Currency) == "" {
		return ErrEmptyCurrency
	}
	if len(a.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	return nil
}

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Name)) == 0 {
		return ErrEmptyName
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email address")
	}
	return nil
}

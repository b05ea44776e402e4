package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"

	// DayLayout is the calendar-day key used to enforce one snapshot
	// per account per day.
	DayLayout = "2006-01-02"
)

type (
	SortOrder string

	// Snapshot is the recorded balance of one account at the end of one
	// calendar day. Snapshots are never updated once written. Day is
	// Date formatted with DayLayout, DayOfWeek counts from Sunday = 0
	// and Month runs 1-12.
	Snapshot struct {
		ID         string          `json:"id"`
		AccountID  string          `json:"accountId"`
		UserID     string          `json:"userId"`
		Balance    decimal.Decimal `json:"balance"`
		Date       time.Time       `json:"date"`
		Day        string          `json:"day"`
		DayOfWeek  int             `json:"dayOfWeek"`
		DayOfMonth int             `json:"dayOfMonth"`
		Month      int             `json:"month"`
		Year       int             `json:"year"`
		CreatedAt  time.Time       `json:"createdAt"`
	}

	// SnapshotFilter narrows snapshot queries. Zero values mean "any".
	// From and To are inclusive bounds on Snapshot.Date.
	SnapshotFilter struct {
		AccountID string
		UserID    string
		From      time.Time
		To        time.Time
		Order     SortOrder
		Limit     int
	}
)

// NewSnapshot builds a snapshot for the given moment, deriving the
// denormalized calendar fields from date.
func NewSnapshot(accountID, userID string, balance decimal.Decimal, date time.Time) Snapshot {
	return Snapshot{
		AccountID:  accountID,
		UserID:     userID,
		Balance:    balance,
		Date:       date,
		Day:        date.Format(DayLayout),
		DayOfWeek:  int(date.Weekday()),
		DayOfMonth: date.Day(),
		Month:      int(date.Month()),
		Year:       date.Year(),
	}
}

func (s Snapshot) Validate() error {
	if s.AccountID == "" || s.UserID == "" {
		return errors.New("snapshot must reference an account and a user")
	}
	if s.Date.IsZero() {
		return errors.New("snapshot date cannot be zero")
	}
	if s.Balance.IsNegative() {
		return ErrNegativeBalance
	}
	// Derived fields must agree with the date.
	if s.Day != s.Date.Format(DayLayout) ||
		s.DayOfWeek != int(s.Date.Weekday()) ||
		s.DayOfMonth != s.Date.Day() ||
		s.Month != int(s.Date.Month()) ||
		s.Year != s.Date.Year() {
		return errors.New("snapshot calendar fields inconsistent with date")
	}
	return nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the snapshot timestamp for t's calendar day (23:59).
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

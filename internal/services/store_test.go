package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
	"goalfin/internal/storage"
)

// fakeStore is an in-memory SnapshotStore and AccountStore enforcing the
// same one-snapshot-per-account-per-day rule as the SQLite schema.
type fakeStore struct {
	accounts  []core.Account
	snapshots []core.Snapshot
	nextID    int
}

func (f *fakeStore) addAccount(id, name string, t core.AccountType, balance, currency string) core.Account {
	a := core.Account{
		ID:       id,
		UserID:   "user-1",
		Name:     name,
		Type:     t,
		Balance:  mustDecimal(balance),
		Currency: currency,
		Active:   true,
	}
	f.accounts = append(f.accounts, a)
	return a
}

func (f *fakeStore) ActiveAccounts(_ context.Context, userID string) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.UserID == userID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) FindSnapshots(_ context.Context, filter core.SnapshotFilter) ([]core.Snapshot, error) {
	var out []core.Snapshot
	for _, s := range f.snapshots {
		if filter.AccountID != "" && s.AccountID != filter.AccountID {
			continue
		}
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if !filter.From.IsZero() && s.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && s.Date.After(filter.To) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Order == core.OrderDesc {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) CreateSnapshot(_ context.Context, s core.Snapshot) (core.Snapshot, error) {
	if err := s.Validate(); err != nil {
		return core.Snapshot{}, err
	}
	for _, existing := range f.snapshots {
		if existing.AccountID == s.AccountID && existing.Day == s.Day {
			return core.Snapshot{}, core.ErrSnapshotExists
		}
	}
	f.nextID++
	s.ID = fmt.Sprintf("snap-%d", f.nextID)
	s.CreatedAt = time.Now()
	f.snapshots = append(f.snapshots, s)
	return s, nil
}

func (f *fakeStore) CreateSnapshots(ctx context.Context, snapshots []core.Snapshot) ([]core.Snapshot, error) {
	written := make([]core.Snapshot, 0, len(snapshots))
	for _, s := range snapshots {
		created, err := f.CreateSnapshot(ctx, s)
		if err == core.ErrSnapshotExists {
			continue
		}
		if err != nil {
			return written, err
		}
		written = append(written, created)
	}
	return written, nil
}

func (f *fakeStore) DeleteSnapshots(_ context.Context, filter core.SnapshotFilter) (int64, error) {
	var kept []core.Snapshot
	var removed int64
	for _, s := range f.snapshots {
		match := (filter.AccountID == "" || s.AccountID == filter.AccountID) &&
			(filter.UserID == "" || s.UserID == filter.UserID)
		if match {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	f.snapshots = kept
	return removed, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	f.nextID++
	a.ID = fmt.Sprintf("acc-%d", f.nextID)
	a.Active = true
	f.accounts = append(f.accounts, a)
	return a, nil
}

func (f *fakeStore) AccountByID(_ context.Context, id, userID string) (core.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return core.Account{}, core.ErrNotFound
}

func (f *fakeStore) UpdateAccount(_ context.Context, id, userID string, upd storage.AccountUpdate) (core.Account, error) {
	for i, a := range f.accounts {
		if a.ID != id || a.UserID != userID {
			continue
		}
		if upd.Name != nil {
			a.Name = *upd.Name
		}
		if upd.Type != nil {
			a.Type = *upd.Type
		}
		if upd.Balance != nil {
			a.Balance = *upd.Balance
		}
		if upd.Currency != nil {
			a.Currency = *upd.Currency
		}
		if upd.Color != nil {
			a.Color = *upd.Color
		}
		if upd.Icon != nil {
			a.Icon = *upd.Icon
		}
		if upd.Active != nil {
			a.Active = *upd.Active
		}
		f.accounts[i] = a
		return a, nil
	}
	return core.Account{}, core.ErrNotFound
}

func (f *fakeStore) DeactivateAccount(_ context.Context, id, userID string) error {
	for i, a := range f.accounts {
		if a.ID == id && a.UserID == userID {
			f.accounts[i].Active = false
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) Transfer(_ context.Context, userID, fromID, toID string, amount decimal.Decimal) error {
	fromIdx, toIdx := -1, -1
	for i, a := range f.accounts {
		if a.UserID != userID || !a.Active {
			continue
		}
		switch a.ID {
		case fromID:
			fromIdx = i
		case toID:
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return core.ErrNotFound
	}
	if f.accounts[fromIdx].Balance.LessThan(amount) {
		return core.ErrInsufficientFunds
	}
	f.accounts[fromIdx].Balance = f.accounts[fromIdx].Balance.Sub(amount)
	f.accounts[toIdx].Balance = f.accounts[toIdx].Balance.Add(amount)
	return nil
}

// fixedRand cycles through a fixed sequence so synthesized balances are
// reproducible in tests.
type fixedRand struct {
	values []float64
	idx    int
}

func (r *fixedRand) Float64() float64 {
	if len(r.values) == 0 {
		return 0.5
	}
	v := r.values[r.idx%len(r.values)]
	r.idx++
	return v
}

// midRand always returns 0.5, zeroing out every noise term.
func midRand() *fixedRand { return &fixedRand{values: []float64{0.5}} }

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

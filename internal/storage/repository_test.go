package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"goalfin/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository) core.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), core.User{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func seedAccount(t *testing.T, repo *SQLiteRepository, userID, name string, typ core.AccountType, balance string) core.Account {
	t.Helper()
	account, err := repo.CreateAccount(context.Background(), core.Account{
		UserID:   userID,
		Name:     name,
		Type:     typ,
		Balance:  mustDecimal(t, balance),
		Currency: "EUR",
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return account
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)

	byEmail, err := repo.UserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("UserByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID || byEmail.PasswordHash != "hash" {
		t.Errorf("UserByEmail() = %+v", byEmail)
	}

	byID, err := repo.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}
	if byID.Email != "ada@example.com" {
		t.Errorf("UserByID() email = %q", byID.Email)
	}

	if _, err := repo.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UserByEmail(missing) error = %v, want %v", err, core.ErrNotFound)
	}

	ids, err := repo.UserIDs(ctx)
	if err != nil {
		t.Fatalf("UserIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != user.ID {
		t.Errorf("UserIDs() = %v", ids)
	}
}

func TestAccountCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)

	account := seedAccount(t, repo, user.ID, "Main", core.AccountTypeChecking, "1200.50")

	loaded, err := repo.AccountByID(ctx, account.ID, user.ID)
	if err != nil {
		t.Fatalf("AccountByID() error = %v", err)
	}
	if !loaded.Balance.Equal(mustDecimal(t, "1200.50")) {
		t.Errorf("Balance = %s, want 1200.50", loaded.Balance)
	}
	if loaded.Type != core.AccountTypeChecking || !loaded.Active {
		t.Errorf("loaded account = %+v", loaded)
	}

	// Wrong owner sees nothing.
	if _, err := repo.AccountByID(ctx, account.ID, "someone-else"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("AccountByID(wrong user) error = %v, want %v", err, core.ErrNotFound)
	}

	name := "Daily"
	balance := mustDecimal(t, "900.00")
	updated, err := repo.UpdateAccount(ctx, account.ID, user.ID, AccountUpdate{Name: &name, Balance: &balance})
	if err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	if updated.Name != "Daily" || !updated.Balance.Equal(balance) {
		t.Errorf("updated account = %+v", updated)
	}
	if updated.Type != core.AccountTypeChecking {
		t.Errorf("partial update changed type to %q", updated.Type)
	}

	if _, err := repo.UpdateAccount(ctx, "missing", user.ID, AccountUpdate{Name: &name}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateAccount(missing) error = %v, want %v", err, core.ErrNotFound)
	}

	if err := repo.DeactivateAccount(ctx, account.ID, user.ID); err != nil {
		t.Fatalf("DeactivateAccount() error = %v", err)
	}
	active, err := repo.ActiveAccounts(ctx, user.ID)
	if err != nil {
		t.Fatalf("ActiveAccounts() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("deactivated account still active: %v", active)
	}
	// Still reachable directly, flagged inactive.
	gone, err := repo.AccountByID(ctx, account.ID, user.ID)
	if err != nil {
		t.Fatalf("AccountByID() after deactivate error = %v", err)
	}
	if gone.Active {
		t.Error("deactivated account still flagged active")
	}
}

func TestSnapshotUniqueness(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	account := seedAccount(t, repo, user.ID, "Main", core.AccountTypeChecking, "1200.00")

	date := time.Date(2024, 3, 12, 23, 59, 0, 0, time.UTC)
	snap := core.NewSnapshot(account.ID, user.ID, mustDecimal(t, "1200.00"), date)

	first, err := repo.CreateSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("CreateSnapshot() error = %v", err)
	}
	if first.ID == "" {
		t.Error("created snapshot has no id")
	}

	if _, err := repo.CreateSnapshot(ctx, snap); !errors.Is(err, core.ErrSnapshotExists) {
		t.Errorf("duplicate CreateSnapshot() error = %v, want %v", err, core.ErrSnapshotExists)
	}

	// Same day, different account is fine.
	other := seedAccount(t, repo, user.ID, "Nest egg", core.AccountTypeSavings, "5000.00")
	if _, err := repo.CreateSnapshot(ctx, core.NewSnapshot(other.ID, user.ID, mustDecimal(t, "5000.00"), date)); err != nil {
		t.Errorf("CreateSnapshot(other account) error = %v", err)
	}
}

func TestSnapshotBatchSkipsDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	account := seedAccount(t, repo, user.ID, "Main", core.AccountTypeChecking, "1200.00")

	day1 := time.Date(2024, 3, 11, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 12, 23, 59, 0, 0, time.UTC)

	if _, err := repo.CreateSnapshot(ctx, core.NewSnapshot(account.ID, user.ID, mustDecimal(t, "1100.00"), day1)); err != nil {
		t.Fatalf("seed fixture: %v", err)
	}

	written, err := repo.CreateSnapshots(ctx, []core.Snapshot{
		core.NewSnapshot(account.ID, user.ID, mustDecimal(t, "1150.00"), day1), // duplicate day
		core.NewSnapshot(account.ID, user.ID, mustDecimal(t, "1200.00"), day2),
	})
	if err != nil {
		t.Fatalf("CreateSnapshots() error = %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("wrote %d snapshots, want 1", len(written))
	}
	if written[0].Day != "2024-03-12" {
		t.Errorf("written day = %q, want 2024-03-12", written[0].Day)
	}

	// The original day1 balance is untouched.
	all, err := repo.FindSnapshots(ctx, core.SnapshotFilter{AccountID: account.ID, Order: core.OrderAsc})
	if err != nil {
		t.Fatalf("FindSnapshots() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("total snapshots = %d, want 2", len(all))
	}
	if !all[0].Balance.Equal(mustDecimal(t, "1100.00")) {
		t.Errorf("day1 balance = %s, want 1100.00", all[0].Balance)
	}
}

func TestFindSnapshotsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	account := seedAccount(t, repo, user.ID, "Main", core.AccountTypeChecking, "1200.00")

	var days []time.Time
	for d := 10; d <= 14; d++ {
		days = append(days, time.Date(2024, 3, d, 23, 59, 0, 0, time.UTC))
	}
	for i, day := range days {
		balance := mustDecimal(t, "1000.00").Add(decimal.NewFromInt(int64(i)))
		if _, err := repo.CreateSnapshot(ctx, core.NewSnapshot(account.ID, user.ID, balance, day)); err != nil {
			t.Fatalf("seed fixture %d: %v", i, err)
		}
	}

	t.Run("window bounds are inclusive", func(t *testing.T) {
		got, err := repo.FindSnapshots(ctx, core.SnapshotFilter{
			UserID: user.ID,
			From:   days[1],
			To:     days[3],
			Order:  core.OrderAsc,
		})
		if err != nil {
			t.Fatalf("FindSnapshots() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d snapshots, want 3", len(got))
		}
		if got[0].Day != "2024-03-11" || got[2].Day != "2024-03-13" {
			t.Errorf("window edges = %q..%q", got[0].Day, got[2].Day)
		}
	})

	t.Run("descending order", func(t *testing.T) {
		got, err := repo.FindSnapshots(ctx, core.SnapshotFilter{
			UserID: user.ID,
			Order:  core.OrderDesc,
		})
		if err != nil {
			t.Fatalf("FindSnapshots() error = %v", err)
		}
		if got[0].Day != "2024-03-14" {
			t.Errorf("first desc day = %q, want 2024-03-14", got[0].Day)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := repo.FindSnapshots(ctx, core.SnapshotFilter{
			UserID: user.ID,
			Limit:  2,
		})
		if err != nil {
			t.Fatalf("FindSnapshots() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("got %d snapshots, want 2", len(got))
		}
	})

	t.Run("other user sees nothing", func(t *testing.T) {
		got, err := repo.FindSnapshots(ctx, core.SnapshotFilter{UserID: "someone-else"})
		if err != nil {
			t.Fatalf("FindSnapshots() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d snapshots, want 0", len(got))
		}
	})
}

func TestDeleteSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	account := seedAccount(t, repo, user.ID, "Main", core.AccountTypeChecking, "1200.00")

	for d := 10; d <= 12; d++ {
		date := time.Date(2024, 3, d, 23, 59, 0, 0, time.UTC)
		if _, err := repo.CreateSnapshot(ctx, core.NewSnapshot(account.ID, user.ID, mustDecimal(t, "1200.00"), date)); err != nil {
			t.Fatalf("seed fixture: %v", err)
		}
	}

	removed, err := repo.DeleteSnapshots(ctx, core.SnapshotFilter{UserID: user.ID})
	if err != nil {
		t.Fatalf("DeleteSnapshots() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	left, err := repo.FindSnapshots(ctx, core.SnapshotFilter{UserID: user.ID})
	if err != nil {
		t.Fatalf("FindSnapshots() error = %v", err)
	}
	if len(left) != 0 {
		t.Errorf("snapshots left = %d, want 0", len(left))
	}
}

func TestTransfer(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	from := seedAccount(t, repo, user.ID, "Main", core.AccountTypeChecking, "500.00")
	to := seedAccount(t, repo, user.ID, "Nest egg", core.AccountTypeSavings, "100.00")

	t.Run("moves balance atomically", func(t *testing.T) {
		if err := repo.Transfer(ctx, user.ID, from.ID, to.ID, mustDecimal(t, "150.00")); err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		fromAfter, _ := repo.AccountByID(ctx, from.ID, user.ID)
		toAfter, _ := repo.AccountByID(ctx, to.ID, user.ID)
		if !fromAfter.Balance.Equal(mustDecimal(t, "350.00")) {
			t.Errorf("source balance = %s, want 350.00", fromAfter.Balance)
		}
		if !toAfter.Balance.Equal(mustDecimal(t, "250.00")) {
			t.Errorf("destination balance = %s, want 250.00", toAfter.Balance)
		}
	})

	t.Run("insufficient funds leaves balances untouched", func(t *testing.T) {
		err := repo.Transfer(ctx, user.ID, from.ID, to.ID, mustDecimal(t, "10000.00"))
		if !errors.Is(err, core.ErrInsufficientFunds) {
			t.Fatalf("Transfer() error = %v, want %v", err, core.ErrInsufficientFunds)
		}

		fromAfter, _ := repo.AccountByID(ctx, from.ID, user.ID)
		toAfter, _ := repo.AccountByID(ctx, to.ID, user.ID)
		if !fromAfter.Balance.Equal(mustDecimal(t, "350.00")) || !toAfter.Balance.Equal(mustDecimal(t, "250.00")) {
			t.Errorf("balances changed on failed transfer: %s / %s", fromAfter.Balance, toAfter.Balance)
		}
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		if err := repo.Transfer(ctx, user.ID, from.ID, to.ID, decimal.Zero); err == nil {
			t.Error("Transfer(0) succeeded, want error")
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		err := repo.Transfer(ctx, user.ID, "missing", to.ID, mustDecimal(t, "1.00"))
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Transfer(missing) error = %v, want %v", err, core.ErrNotFound)
		}
	})
}

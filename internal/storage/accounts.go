package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"goalfin/internal/core"
)

// AccountUpdate carries the optional fields of a partial account update.
// Nil fields are left untouched.
type AccountUpdate struct {
	Name     *string
	Type     *core.AccountType
	Balance  *decimal.Decimal
	Currency *string
	Color    *string
	Icon     *string
	Active   *bool
}

const accountColumns = `id, user_id, name, type, balance, currency, color, icon, is_active, created_at, updated_at`

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	now := time.Now()
	a.ID = uuid.NewString()
	a.Active = true
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, type, balance, currency, color, icon, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Type), a.Balance.String(), a.Currency, a.Color, a.Icon, now.Unix(), now.Unix())
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"id", a.ID,
		"user_id", a.UserID,
		"type", a.Type,
		"currency", a.Currency)
	return a, nil
}

// ActiveAccounts returns the user's accounts that have not been soft-deleted,
// newest first.
func (r *SQLiteRepository) ActiveAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE user_id = ? AND is_active = 1
		 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query active accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// AccountByID fetches one account, checking it belongs to the user.
// Deactivated accounts are still returned so their history stays reachable.
func (r *SQLiteRepository) AccountByID(ctx context.Context, id, userID string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	return a, err
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, id, userID string, upd AccountUpdate) (core.Account, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().Unix()}

	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*upd.Type))
	}
	if upd.Balance != nil {
		sets = append(sets, "balance = ?")
		args = append(args, upd.Balance.String())
	}
	if upd.Currency != nil {
		sets = append(sets, "currency = ?")
		args = append(args, *upd.Currency)
	}
	if upd.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *upd.Color)
	}
	if upd.Icon != nil {
		sets = append(sets, "icon = ?")
		args = append(args, *upd.Icon)
	}
	if upd.Active != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*upd.Active))
	}

	args = append(args, id, userID)
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`, args...)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Account{}, fmt.Errorf("update account rows affected: %w", err)
	}
	if affected == 0 {
		return core.Account{}, core.ErrNotFound
	}

	return r.AccountByID(ctx, id, userID)
}

// DeactivateAccount soft-deletes an account. Snapshots referencing it
// remain as historical record.
func (r *SQLiteRepository) DeactivateAccount(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = 0, updated_at = ? WHERE id = ? AND user_id = ?`,
		time.Now().Unix(), id, userID)
	if err != nil {
		return fmt.Errorf("deactivate account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate account rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Account deactivated", "id", id, "user_id", userID)
	return nil
}

// Transfer moves amount between two active accounts of the same user.
// Both balance updates happen in a single transaction.
func (r *SQLiteRepository) Transfer(ctx context.Context, userID, fromID, toID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.New("transfer amount must be positive")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback()

	from, err := balanceForUpdate(ctx, tx, fromID, userID)
	if err != nil {
		return fmt.Errorf("load source account: %w", err)
	}
	to, err := balanceForUpdate(ctx, tx, toID, userID)
	if err != nil {
		return fmt.Errorf("load destination account: %w", err)
	}

	if from.LessThan(amount) {
		return core.ErrInsufficientFunds
	}

	now := time.Now().Unix()
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		from.Sub(amount).String(), now, fromID); err != nil {
		return fmt.Errorf("debit source account: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		to.Add(amount).String(), now, toID); err != nil {
		return fmt.Errorf("credit destination account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}

	slog.InfoContext(ctx, "Balance transferred",
		"user_id", userID,
		"from", fromID,
		"to", toID,
		"amount", amount.String())
	return nil
}

func balanceForUpdate(ctx context.Context, tx *sql.Tx, id, userID string) (decimal.Decimal, error) {
	var raw string
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ? AND user_id = ? AND is_active = 1`,
		id, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, core.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a                  core.Account
		typ, balance       string
		active             int
		createdAt, updated int64
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &balance, &a.Currency, &a.Color, &a.Icon, &active, &createdAt, &updated)
	if err != nil {
		return core.Account{}, err
	}

	a.Type = core.AccountType(typ)
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse account balance: %w", err)
	}
	a.Active = active == 1
	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updated, 0)
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

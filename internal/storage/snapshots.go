package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"goalfin/internal/core"
)

const snapshotColumns = `id, account_id, user_id, balance, date, snapshot_day, day_of_week, day_of_month, month, year, created_at`

// FindSnapshots queries snapshots by the given filter. From and To are
// inclusive bounds on the snapshot date.
func (r *SQLiteRepository) FindSnapshots(ctx context.Context, filter core.SnapshotFilter) ([]core.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM account_snapshots`
	var (
		where []string
		args  []any
	)

	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if !filter.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, filter.From.Unix())
	}
	if !filter.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, filter.To.Unix())
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	if filter.Order == core.OrderDesc {
		query += " ORDER BY date DESC, account_id"
	} else {
		query += " ORDER BY date ASC, account_id"
	}

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []core.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snapshots, nil
}

// CreateSnapshot inserts one snapshot. The unique (account, day) index
// makes duplicate creation safe under concurrent triggers: the loser of
// the race gets core.ErrSnapshotExists instead of a second row.
func (r *SQLiteRepository) CreateSnapshot(ctx context.Context, s core.Snapshot) (core.Snapshot, error) {
	if err := s.Validate(); err != nil {
		return core.Snapshot{}, fmt.Errorf("validate snapshot: %w", err)
	}

	s.ID = uuid.NewString()
	s.CreatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, insertSnapshotSQL, snapshotArgs(s)...)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("create snapshot rows affected: %w", err)
	}
	if affected == 0 {
		return core.Snapshot{}, core.ErrSnapshotExists
	}

	return s, nil
}

// CreateSnapshots inserts a batch in one transaction, skipping days that
// already have a snapshot. It returns only the snapshots actually written.
func (r *SQLiteRepository) CreateSnapshots(ctx context.Context, snapshots []core.Snapshot) ([]core.Snapshot, error) {
	if len(snapshots) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin snapshot batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSnapshotSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	created := make([]core.Snapshot, 0, len(snapshots))
	now := time.Now()
	for _, s := range snapshots {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("validate snapshot for %s on %s: %w", s.AccountID, s.Day, err)
		}
		s.ID = uuid.NewString()
		s.CreatedAt = now

		res, err := stmt.ExecContext(ctx, snapshotArgs(s)...)
		if err != nil {
			return nil, fmt.Errorf("insert snapshot for %s on %s: %w", s.AccountID, s.Day, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("snapshot batch rows affected: %w", err)
		}
		if affected == 0 {
			continue // that account+day already exists
		}
		created = append(created, s)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot batch: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot batch written",
		"requested", len(snapshots),
		"created", len(created))
	return created, nil
}

// DeleteSnapshots bulk-deletes by filter and returns the number removed.
// Administrative/test use only; snapshots are otherwise immutable.
func (r *SQLiteRepository) DeleteSnapshots(ctx context.Context, filter core.SnapshotFilter) (int64, error) {
	query := `DELETE FROM account_snapshots`
	var (
		where []string
		args  []any
	)
	if filter.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete snapshots rows affected: %w", err)
	}

	slog.InfoContext(ctx, "Snapshots deleted", "count", count, "user_id", filter.UserID)
	return count, nil
}

const insertSnapshotSQL = `
	INSERT INTO account_snapshots
		(id, account_id, user_id, balance, date, snapshot_day, day_of_week, day_of_month, month, year, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(account_id, snapshot_day) DO NOTHING`

func snapshotArgs(s core.Snapshot) []any {
	return []any{
		s.ID, s.AccountID, s.UserID, s.Balance.String(),
		s.Date.Unix(), s.Day, s.DayOfWeek, s.DayOfMonth, s.Month, s.Year,
		s.CreatedAt.Unix(),
	}
}

func scanSnapshot(row rowScanner) (core.Snapshot, error) {
	var (
		s               core.Snapshot
		balance         string
		date, createdAt int64
	)
	err := row.Scan(&s.ID, &s.AccountID, &s.UserID, &balance, &date, &s.Day,
		&s.DayOfWeek, &s.DayOfMonth, &s.Month, &s.Year, &createdAt)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("scan snapshot: %w", err)
	}

	s.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("parse snapshot balance: %w", err)
	}
	s.Date = time.Unix(date, 0)
	s.CreatedAt = time.Unix(createdAt, 0)
	return s, nil
}

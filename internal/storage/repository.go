package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"

	_ "modernc.org/sqlite"
)

// Repository is the database/sql implementation of ExpenseStore, shared by
// the SQLite and PostgreSQL backends.
type Repository struct {
	db      *sql.DB
	dialect dialect
	logger  *applog.Logger
	closers []func()

	now   func() time.Time
	newID func() string
}

func newRepository(db *sql.DB, d dialect, logger *applog.Logger) *Repository {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Repository{
		db:      db,
		dialect: d,
		logger:  logger.WithComponent(applog.ComponentStorage).With("driver", d.name),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// sqliteDSN enables a busy timeout so concurrent writers wait instead of
// failing with SQLITE_BUSY.
func sqliteDSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newRepository(db, sqliteDialect, logger), nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	var err error
	if r.db != nil {
		err = r.db.Close()
	}
	for _, c := range r.closers {
		c()
	}
	return err
}

// List implements ExpenseReader
func (r *Repository) List(ctx context.Context, q core.ListQuery) (core.ExpensePage, error) {
	order, err := orderClause(q)
	if err != nil {
		return core.ExpensePage{}, err
	}
	where, args := buildWhere(q, r.dialect)

	var total int
	countQuery := r.dialect.rebind("SELECT COUNT(*) FROM expenses" + where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return core.ExpensePage{}, fmt.Errorf("count expenses: %w", err)
	}

	listQuery := r.dialect.rebind("SELECT " + expenseColumns + " FROM expenses" + where + order + " LIMIT ? OFFSET ?")
	pageArgs := append(append([]any(nil), args...), q.Limit, q.Offset)
	rows, err := r.db.QueryContext(ctx, listQuery, pageArgs...)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	items := make([]core.Expense, 0, q.Limit)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return core.ExpensePage{}, fmt.Errorf("scan expense: %w", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return core.ExpensePage{}, fmt.Errorf("iterate expenses: %w", err)
	}

	r.logger.DebugContext(ctx, "Listed expenses",
		applog.NewFields().
			WithOperation(applog.OpList).
			WithPage(string(q.OrderBy), q.Limit, q.Offset).
			ToSlice()...)

	return core.ExpensePage{Items: items, Total: total}, nil
}

// Get implements ExpenseReader
func (r *Repository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind("SELECT "+expenseColumns+" FROM expenses WHERE id = ?"), id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return e, nil
}

// Create implements ExpenseWriter
func (r *Repository) Create(ctx context.Context, ne core.NewExpense) (core.Expense, error) {
	e := core.Expense{
		ID:          r.newID(),
		Title:       ne.Title,
		Amount:      &core.Money{Cents: ne.Amount.Cents},
		Category:    ne.Category,
		Description: ne.Description,
		CreatedAt:   r.now().UTC().Truncate(time.Microsecond),
	}
	if err := r.insert(ctx, r.db, e); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	r.logger.InfoContext(ctx, "Expense saved",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithExpense(e.ID, e.Title, e.Amount.String(), core.StringValue(e.Category)).
			ToSlice()...)

	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) insert(ctx context.Context, ex execer, e core.Expense) error {
	var amount sql.NullInt64
	if e.Amount != nil {
		amount = sql.NullInt64{Int64: e.Amount.Cents, Valid: true}
	}
	_, err := ex.ExecContext(ctx,
		r.dialect.rebind("INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?)"),
		e.ID, e.Title, amount, nullString(e.Category), nullString(e.Description), r.dialect.timeArg(e.CreatedAt))
	return err
}

// Update implements ExpenseWriter. Only the fields set in p change.
func (r *Repository) Update(ctx context.Context, id string, p core.ExpensePatch) (core.Expense, error) {
	if p.IsEmpty() {
		return r.Get(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, p.Amount.Cents)
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *p.Category)
	} else if p.ClearCategory {
		sets = append(sets, "category = NULL")
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	} else if p.ClearDescription {
		sets = append(sets, "description = NULL")
	}
	args = append(args, id)

	query := r.dialect.rebind("UPDATE expenses SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	if err := requireAffected(res, id); err != nil {
		return core.Expense{}, err
	}

	r.logger.InfoContext(ctx, "Expense updated",
		applog.NewFields().WithOperation(applog.OpUpdate).WithExpense(id, "", "", "").ToSlice()...)

	return r.Get(ctx, id)
}

// Delete implements ExpenseWriter
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind("DELETE FROM expenses WHERE id = ?"), id)
	if err != nil {
		return false, fmt.Errorf("delete expense %s: %w", id, err)
	}
	if err := requireAffected(res, id); err != nil {
		return false, err
	}

	r.logger.InfoContext(ctx, "Expense deleted",
		applog.NewFields().WithOperation(applog.OpDelete).WithExpense(id, "", "", "").ToSlice()...)

	return true, nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// Statistics implements ExpenseReader. The totals and the per-category
// breakdown are independent queries and run concurrently.
func (r *Repository) Statistics(ctx context.Context) (core.Statistics, error) {
	var (
		count     int
		total     int64
		breakdown []core.CategoryBreakdown
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := r.db.QueryRowContext(gctx,
			"SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM expenses").Scan(&count, &total)
		if err != nil {
			return fmt.Errorf("query totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		rows, err := r.db.QueryContext(gctx,
			`SELECT category, COUNT(*), COALESCE(SUM(amount_cents), 0)
			FROM expenses
			WHERE category IS NOT NULL
			GROUP BY category
			ORDER BY category ASC`)
		if err != nil {
			return fmt.Errorf("query category breakdown: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				cb    core.CategoryBreakdown
				cents int64
			)
			if err := rows.Scan(&cb.Category, &cb.Count, &cents); err != nil {
				return fmt.Errorf("scan category breakdown: %w", err)
			}
			cb.TotalAmount = core.Money{Cents: cents}
			breakdown = append(breakdown, cb)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return core.Statistics{}, err
	}

	return core.NewStatistics(count, core.Money{Cents: total}, breakdown), nil
}

// Count implements Maintainer
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// InsertMany implements Maintainer. All rows are written in one transaction.
func (r *Repository) InsertMany(ctx context.Context, expenses []core.NewExpense) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := r.now().UTC().Truncate(time.Microsecond)
	for i, ne := range expenses {
		e := core.Expense{
			ID:          r.newID(),
			Title:       ne.Title,
			Amount:      &core.Money{Cents: ne.Amount.Cents},
			Category:    ne.Category,
			Description: ne.Description,
			// Spread by a microsecond so insertion order survives a createdAt sort.
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
		if err := r.insert(ctx, tx, e); err != nil {
			return 0, fmt.Errorf("insert expense %q: %w", ne.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return len(expenses), nil
}

// NullTitleIDs implements Maintainer
func (r *Repository) NullTitleIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM expenses WHERE title IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query null titles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetTitle implements Maintainer
func (r *Repository) SetTitle(ctx context.Context, id, title string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind("UPDATE expenses SET title = ? WHERE id = ?"), title, id)
	if err != nil {
		return fmt.Errorf("set title %s: %w", id, err)
	}
	return requireAffected(res, id)
}

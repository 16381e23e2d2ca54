package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// sqliteTimeLayout is fixed width so text comparison matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const expenseColumns = "id, title, amount_cents, category, description, created_at"

// dialect captures the differences between the supported SQL engines.
type dialect struct {
	name     string
	numbered bool   // $1, $2 placeholders instead of ?
	nativeTS bool   // driver binds time.Time directly
	lower    string // Unicode-aware lowercase function
}

var (
	sqliteDialect   = dialect{name: "sqlite", lower: foldLowerFunc}
	postgresDialect = dialect{name: "postgres", numbered: true, nativeTS: true, lower: "LOWER"}
)

// rebind rewrites ? placeholders for engines that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d dialect) timeArg(t time.Time) any {
	if d.nativeTS {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// sortColumns maps API sort fields to columns.
var sortColumns = map[core.SortField]string{
	core.SortByTitle:     "title",
	core.SortByAmount:    "amount_cents",
	core.SortByCategory:  "category",
	core.SortByCreatedAt: "created_at",
}

// buildWhere renders the conjunctive filter of q. Empty title and category
// impose no constraint. Title matching folds case with the dialect's
// Unicode-aware lowercase, registered in Go for SQLite.
func buildWhere(q core.ListQuery, d dialect) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Title != "" {
		conds = append(conds, d.lower+`(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Title))+"%")
	}
	if q.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, q.Category)
	}
	if q.MinCents != nil {
		conds = append(conds, "amount_cents >= ?")
		args = append(args, *q.MinCents)
	}
	if q.MaxCents != nil {
		conds = append(conds, "amount_cents <= ?")
		args = append(args, *q.MaxCents)
	}
	if q.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, d.timeArg(*q.From))
	}
	if q.To != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, d.timeArg(*q.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderClause sorts nulls as the smallest value on every engine and breaks
// ties by id so pages are stable.
func orderClause(q core.ListQuery) (string, error) {
	col, ok := sortColumns[q.OrderBy]
	if !ok {
		return "", &core.InvalidArgumentError{
			Field:   "orderBy",
			Message: fmt.Sprintf("Invalid orderBy field: %s", q.OrderBy),
		}
	}
	if q.Descending {
		return fmt.Sprintf(" ORDER BY %s DESC NULLS LAST, id ASC", col), nil
	}
	return fmt.Sprintf(" ORDER BY %s ASC NULLS FIRST, id ASC", col), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// timestamp scans created_at from either a native time value or the
// text layouts SQLite rows may carry.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, time.DateTime} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognized value %q", s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e           core.Expense
		title       sql.NullString
		amount      sql.NullInt64
		category    sql.NullString
		description sql.NullString
		createdAt   timestamp
	)
	if err := row.Scan(&e.ID, &title, &amount, &category, &description, &createdAt); err != nil {
		return core.Expense{}, err
	}
	// Rows written before the title column was enforced are repaired at
	// startup; until then they read with the repaired title.
	if title.Valid {
		e.Title = title.String
	} else {
		e.Title = core.RepairedTitle(e.ID)
	}
	if amount.Valid {
		e.Amount = &core.Money{Cents: amount.Int64}
	}
	if category.Valid {
		e.Category = &category.String
	}
	if description.Valid {
		e.Description = &description.String
	}
	e.CreatedAt = createdAt.Time
	return e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

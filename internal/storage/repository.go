// Package storage is the SQLite record store.
//
// Dates are stored as days since the Unix epoch, created_at as Unix
// nanoseconds and transaction ids as 16-byte blobs, so the column order
// (date, created_at, id) matches core.Cursor ordering.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shoebox/internal/calendar"
	"shoebox/internal/core"
	"shoebox/internal/store"

	_ "modernc.org/sqlite"
)

const deleteChunk = 500

type SQLiteRepository struct {
	db    *sql.DB
	now   func() time.Time
	newID func() core.TransactionID
}

type Option func(*SQLiteRepository)

// WithClock sets the time source for last_updated and created_at.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) { r.now = now }
}

func WithIDGenerator(gen func() core.TransactionID) Option {
	return func(r *SQLiteRepository) { r.newID = gen }
}

var _ store.Store = (*SQLiteRepository)(nil)

// DSN builds the modernc.org/sqlite connection string for a database file.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db, now: time.Now, newID: core.NewTransactionID}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) UpsertBudgetRule(ctx context.Context, month, year int, interval core.Interval, amountCents int64, currency core.Currency) (core.BudgetRule, error) {
	rule := core.BudgetRule{
		Month:       month,
		Year:        year,
		Interval:    interval,
		AmountCents: amountCents,
		Currency:    currency,
		LastUpdated: r.now().UTC(),
	}
	if err := rule.Validate(); err != nil {
		return core.BudgetRule{}, err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_rule (month, year, repeat_interval, amount_cents, currency, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (month, year, repeat_interval) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			currency = excluded.currency,
			last_updated = excluded.last_updated`,
		rule.Month, rule.Year, string(rule.Interval), rule.AmountCents, string(rule.Currency), rule.LastUpdated.UnixNano())
	if err != nil {
		return core.BudgetRule{}, fmt.Errorf("upsert budget rule: %w", err)
	}

	slog.InfoContext(ctx, "Budget rule saved to SQLite",
		"month", rule.Month,
		"year", rule.Year,
		"interval", rule.Interval.String(),
		"amount_cents", rule.AmountCents)
	return rule, nil
}

func (r *SQLiteRepository) QueryBudgetRules(ctx context.Context, dr core.DateRange) ([]core.BudgetRule, error) {
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	query := `SELECT month, year, repeat_interval, amount_cents, currency, last_updated FROM budget_rule`
	var args []any
	if !dr.End.IsZero() {
		query += ` WHERE year * 12 + month - 1 <= ?`
		args = append(args, dr.End.MonthIndex())
	}
	query += ` ORDER BY year, month, repeat_interval`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query budget rules: %w", err)
	}
	defer rows.Close()

	var rules []core.BudgetRule
	for rows.Next() {
		var (
			rule     core.BudgetRule
			interval string
			currency string
			updated  int64
		)
		if err := rows.Scan(&rule.Month, &rule.Year, &interval, &rule.AmountCents, &currency, &updated); err != nil {
			return nil, fmt.Errorf("scan budget rule: %w", err)
		}
		rule.Interval = core.Interval(interval)
		rule.Currency = core.Currency(currency)
		rule.LastUpdated = time.Unix(0, updated).UTC()
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget rules: %w", err)
	}
	return rules, nil
}

func (r *SQLiteRepository) DeleteBudgetRule(ctx context.Context, key core.BudgetKey) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budget_rule WHERE month = ? AND year = ? AND repeat_interval = ?`,
		key.Month, key.Year, string(key.Interval))
	if err != nil {
		return fmt.Errorf("delete budget rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget rule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete budget rule %s: %w", key, store.ErrNotFound)
	}
	slog.InfoContext(ctx, "Budget rule deleted from SQLite", "key", key.String())
	return nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, n core.NewTransaction) (core.Transaction, error) {
	if err := n.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		ID:          r.newID(),
		Date:        n.Date,
		Title:       n.Title,
		Category:    n.Category,
		AmountCents: n.AmountCents,
		Currency:    n.Currency,
		CreatedAt:   r.now().UTC(),
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_transaction (id, date, title, category, amount_cents, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID.Bytes(), t.Date.EpochDay(), t.Title, t.Category, t.AmountCents, string(t.Currency), t.CreatedAt.UnixNano())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID.String(),
		"date", t.Date.String(),
		"category", t.Category,
		"amount_cents", t.AmountCents)
	return t, nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, ids []core.TransactionID) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transactions: %w", err)
	}
	defer tx.Rollback()

	var deleted int64
	for start := 0; start < len(ids); start += deleteChunk {
		end := min(start+deleteChunk, len(ids))
		chunk := ids[start:end]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id.Bytes()
		}
		query := `DELETE FROM payment_transaction WHERE id IN (` + placeholders(len(chunk)) + `)`
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete transactions: %w", err)
	}
	slog.InfoContext(ctx, "Transactions deleted from SQLite", "requested", len(ids), "deleted", deleted)
	return nil
}

func (r *SQLiteRepository) QueryTransactions(ctx context.Context, q core.TransactionQuery) ([]core.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	where, args := filterClause(q.Filters)
	if q.Cursor != nil {
		op := ">"
		if q.Order == core.OrderDesc {
			op = "<"
		}
		where = append(where, "(date, created_at, id) "+op+" (?, ?, ?)")
		args = append(args, q.Cursor.Date.EpochDay(), q.Cursor.CreatedAt.UnixNano(), q.Cursor.ID.Bytes())
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, date, title, category, amount_cents, currency, created_at FROM payment_transaction`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	dir := "ASC"
	if q.Order == core.OrderDesc {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY date %s, created_at %s, id %s LIMIT ?", dir, dir, dir)
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0, q.Limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SumTransactions(ctx context.Context, dr core.DateRange, g core.Granularity) ([]core.TransactionSum, error) {
	if _, err := calendar.TickCount(dr, g); err != nil {
		return nil, err
	}
	month := `CAST(strftime('%m', date * 86400, 'unixepoch') AS INTEGER)`
	if g == core.GranularityYear {
		month = `0`
	}
	query := `
		SELECT CAST(strftime('%Y', date * 86400, 'unixepoch') AS INTEGER) AS y,
		       ` + month + ` AS m,
		       SUM(amount_cents)
		FROM payment_transaction
		WHERE date BETWEEN ? AND ?
		GROUP BY y, m
		ORDER BY y, m`

	rows, err := r.db.QueryContext(ctx, query, dr.Start.EpochDay(), dr.End.EpochDay())
	if err != nil {
		return nil, fmt.Errorf("sum transactions: %w", err)
	}
	defer rows.Close()

	var sums []core.TransactionSum
	for rows.Next() {
		var s core.TransactionSum
		if err := rows.Scan(&s.Year, &s.Month, &s.AmountCents); err != nil {
			return nil, fmt.Errorf("scan transaction sum: %w", err)
		}
		sums = append(sums, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction sums: %w", err)
	}
	return sums, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		id       []byte
		day      int64
		currency string
		created  int64
	)
	if err := row.Scan(&id, &day, &t.Title, &t.Category, &t.AmountCents, &currency, &created); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tid, err := core.TransactionIDFromBytes(id)
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = tid
	t.Date = core.DateFromEpochDay(day)
	t.Currency = core.Currency(currency)
	t.CreatedAt = time.Unix(0, created).UTC()
	return t, nil
}

func filterClause(f core.SearchFilters) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Title != "" {
		where = append(where, `contains_fold(title, ?)`)
		args = append(args, f.Title)
	}
	if f.Category != "" {
		where = append(where, `contains_fold(category, ?)`)
		args = append(args, f.Category)
	}
	if !f.Range.Start.IsZero() {
		where = append(where, `date >= ?`)
		args = append(args, f.Range.Start.EpochDay())
	}
	if !f.Range.End.IsZero() {
		where = append(where, `date <= ?`)
		args = append(args, f.Range.End.EpochDay())
	}
	if f.MinAmountCents != nil {
		where = append(where, `amount_cents >= ?`)
		args = append(args, *f.MinAmountCents)
	}
	if f.MaxAmountCents != nil {
		where = append(where, `amount_cents <= ?`)
		args = append(args, *f.MaxAmountCents)
	}
	return where, args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

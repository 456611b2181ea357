package pgstore

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls
	"database/sql"                   // database/sql interfaces
	"errors"                         // Error inspection
	"fmt"                            // Error wrapping

	"github.com/jackc/pgx/v5"        // Connection config parsing
	"github.com/jackc/pgx/v5/pgconn" // SQLSTATE errors
	"github.com/jackc/pgx/v5/stdlib" // database/sql adapter
)

// SQLSTATE codes.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeInvalidText          = "22P02" // e.g. a malformed uuid
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	db    *sql.DB
	q     querier
	inTx  bool
	retry store.RetryPolicy
}

var _ store.Store = (*Store)(nil)

// Open parses databaseURL and opens a pooled connection.
func Open(ctx context.Context, databaseURL string, retry store.RetryPolicy) (*Store, error) {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse database url: %v", domain.ErrStorage, err)
	}
	db := stdlib.OpenDB(*config)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", domain.ErrStorage, err)
	}
	return New(db, retry), nil
}

// New wraps an open *sql.DB.
func New(db *sql.DB, retry store.RetryPolicy) *Store {
	return &Store{db: db, q: db, retry: retry}
}

// Close implements store.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Atomic implements store.Store.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.retry.Run(ctx, isRetryable, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return wrap(err, "begin transaction")
		}
		if err := fn(&Store{db: s.db, q: tx, inTx: true, retry: s.retry}); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return wrap(err, "commit transaction")
		}
		return nil
	})
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

func wrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation:
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	case errors.As(err, &pgErr) && (pgErr.Code == codeInvalidText || pgErr.Code == codeForeignKeyViolation):
		// A malformed id or a dangling reference names no row.
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrStorage, err)
	}
}

// lock returns the row-lock suffix for single-record reads inside Atomic.
func (s *Store) lock() string {
	if s.inTx {
		return " FOR UPDATE"
	}
	return ""
}

func (s *Store) exec(ctx context.Context, kind, id, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(err, "%s %s", kind, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, "%s %s", kind, id)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

// ---- users ----

const userColumns = `id, email, first_name, last_name, password_hash, unallocated_funds`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.UnallocatedFunds)
	return &u, err
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`+s.lock(), id))
	if err != nil {
		return nil, wrap(err, "get user %s", id)
	}
	return u, nil
}

func (s *Store) FindUsersByEmail(ctx context.Context, email string) ([]domain.User, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY id`, email)
	if err != nil {
		return nil, wrap(err, "find users by email")
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap(err, "scan user")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "find users by email")
	}
	return users, nil
}

func (s *Store) AddUser(ctx context.Context, u *domain.User) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.UnallocatedFunds)
	if err != nil {
		return wrap(err, "add user %s", u.ID)
	}
	return nil
}

func (s *Store) EditUser(ctx context.Context, u *domain.User) error {
	return s.exec(ctx, "user", u.ID, `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, password_hash = $4, unallocated_funds = $5
		WHERE id = $6`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.UnallocatedFunds, u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.exec(ctx, "user", id, `DELETE FROM users WHERE id = $1`, id)
}

func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	statements := []string{
		`DELETE FROM expenses WHERE category_id IN (SELECT id FROM categories WHERE user_id = $1)`,
		`DELETE FROM categories WHERE user_id = $1`,
		`DELETE FROM incomes WHERE user_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := s.q.ExecContext(ctx, stmt, userID); err != nil {
			return wrap(err, "delete data of user %s", userID)
		}
	}
	return nil
}

// ---- categories ----

const categoryColumns = `id, user_id, name, amount, monthly_default`

func scanCategory(row scanner) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Amount, &c.MonthlyDefault)
	return &c, err
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(s.q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`+s.lock(), id))
	if err != nil {
		return nil, wrap(err, "get category %s", id)
	}
	return c, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id = $1 ORDER BY name, id`, userID)
	if err != nil {
		return nil, wrap(err, "list categories of user %s", userID)
	}
	defer rows.Close()
	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, wrap(err, "scan category")
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list categories of user %s", userID)
	}
	return categories, nil
}

func (s *Store) AddCategory(ctx context.Context, c *domain.Category) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.Name, c.Amount, c.MonthlyDefault)
	if err != nil {
		return wrap(err, "add category %s", c.ID)
	}
	return nil
}

func (s *Store) EditCategory(ctx context.Context, c *domain.Category) error {
	return s.exec(ctx, "category", c.ID, `
		UPDATE categories
		SET name = $1, amount = $2, monthly_default = $3
		WHERE id = $4`,
		c.Name, c.Amount, c.MonthlyDefault, c.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.exec(ctx, "category", id, `DELETE FROM categories WHERE id = $1`, id)
}

// ---- expenses ----

const expenseColumns = `id, category_id, amount, date, summary`

func scanExpense(row scanner, extra ...any) (*domain.Expense, error) {
	var e domain.Expense
	dest := append([]any{&e.ID, &e.CategoryID, &e.Amount, &e.Date, &e.Summary}, extra...)
	err := row.Scan(dest...)
	return &e, err
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	e, err := scanExpense(s.q.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`+s.lock(), id))
	if err != nil {
		return nil, wrap(err, "get expense %s", id)
	}
	return e, nil
}

func (s *Store) ListCategoryExpenses(ctx context.Context, categoryID string) ([]domain.Expense, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE category_id = $1 ORDER BY date, id`, categoryID)
	if err != nil {
		return nil, wrap(err, "list expenses of category %s", categoryID)
	}
	defer rows.Close()
	expenses := []domain.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, wrap(err, "scan expense")
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list expenses of category %s", categoryID)
	}
	return expenses, nil
}

func (s *Store) ListUserExpenses(ctx context.Context, userID string) ([]domain.ExpenseView, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT e.id, e.category_id, e.amount, e.date, e.summary, c.name, c.amount
		FROM expenses e
		JOIN categories c ON e.category_id = c.id
		WHERE c.user_id = $1
		ORDER BY e.date, e.id`, userID)
	if err != nil {
		return nil, wrap(err, "list expenses of user %s", userID)
	}
	defer rows.Close()
	views := []domain.ExpenseView{}
	for rows.Next() {
		var v domain.ExpenseView
		e, err := scanExpense(rows, &v.CategoryName, &v.CategoryAmount)
		if err != nil {
			return nil, wrap(err, "scan expense")
		}
		v.Expense = *e
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list expenses of user %s", userID)
	}
	return views, nil
}

func (s *Store) AddExpense(ctx context.Context, e *domain.Expense) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.CategoryID, e.Amount, e.Date, e.Summary)
	if err != nil {
		return wrap(err, "add expense %s", e.ID)
	}
	return nil
}

func (s *Store) EditExpense(ctx context.Context, e *domain.Expense) error {
	return s.exec(ctx, "expense", e.ID, `
		UPDATE expenses
		SET category_id = $1, amount = $2, date = $3, summary = $4
		WHERE id = $5`,
		e.CategoryID, e.Amount, e.Date, e.Summary, e.ID)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.exec(ctx, "expense", id, `DELETE FROM expenses WHERE id = $1`, id)
}

func (s *Store) DeleteCategoryExpenses(ctx context.Context, categoryID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM expenses WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, wrap(err, "delete expenses of category %s", categoryID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(err, "delete expenses of category %s", categoryID)
	}
	return n, nil
}

// ---- incomes ----

const incomeColumns = `id, user_id, amount, date, summary`

func scanIncome(row scanner) (*domain.Income, error) {
	var in domain.Income
	err := row.Scan(&in.ID, &in.UserID, &in.Amount, &in.Date, &in.Summary)
	return &in, err
}

func (s *Store) GetIncome(ctx context.Context, id string) (*domain.Income, error) {
	in, err := scanIncome(s.q.QueryRowContext(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE id = $1`+s.lock(), id))
	if err != nil {
		return nil, wrap(err, "get income %s", id)
	}
	return in, nil
}

func (s *Store) ListIncomes(ctx context.Context, userID string) ([]domain.Income, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+incomeColumns+` FROM incomes WHERE user_id = $1 ORDER BY date, id`, userID)
	if err != nil {
		return nil, wrap(err, "list incomes of user %s", userID)
	}
	defer rows.Close()
	incomes := []domain.Income{}
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, wrap(err, "scan income")
		}
		incomes = append(incomes, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list incomes of user %s", userID)
	}
	return incomes, nil
}

func (s *Store) AddIncome(ctx context.Context, in *domain.Income) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO incomes (`+incomeColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		in.ID, in.UserID, in.Amount, in.Date, in.Summary)
	if err != nil {
		return wrap(err, "add income %s", in.ID)
	}
	return nil
}

func (s *Store) EditIncome(ctx context.Context, in *domain.Income) error {
	return s.exec(ctx, "income", in.ID, `
		UPDATE incomes
		SET amount = $1, date = $2, summary = $3
		WHERE id = $4`,
		in.Amount, in.Date, in.Summary, in.ID)
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	return s.exec(ctx, "income", id, `DELETE FROM incomes WHERE id = $1`, id)
}

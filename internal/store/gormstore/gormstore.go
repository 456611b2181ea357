package gormstore

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls
	"errors"                         // Error inspection
	"fmt"                            // Error wrapping

	mysqldrv "github.com/go-sql-driver/mysql" // Raw driver errors for retry classification
	"gorm.io/driver/mysql"                    // MySQL driver for GORM
	"gorm.io/gorm"                            // GORM ORM library
	"gorm.io/gorm/clause"                     // Row locking clauses
	"gorm.io/gorm/logger"                     // GORM logger levels
)

// MySQL error numbers worth replaying the whole transaction for
const (
	errLockDeadlock    = 1213 // ER_LOCK_DEADLOCK
	errLockWaitTimeout = 1205 // ER_LOCK_WAIT_TIMEOUT
)

// Store implements store.Store with GORM
type Store struct {
	db    *gorm.DB          // Connection pool, or the open transaction inside Atomic
	inTx  bool              // True inside Atomic: single-row reads take FOR UPDATE locks
	retry store.RetryPolicy // Replay policy for deadlocks
}

var _ store.Store = (*Store)(nil)

// Open connects to MySQL using dsn
func Open(dsn string, retry store.RetryPolicy) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,                                // Map duplicate keys to gorm.ErrDuplicatedKey
		Logger:         logger.Default.LogMode(logger.Warn), // Only slow queries and errors
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect mysql: %v", domain.ErrStorage, err)
	}
	return New(db, retry), nil
}

// New wraps an existing GORM handle
func New(db *gorm.DB, retry store.RetryPolicy) *Store {
	return &Store{db: db, retry: retry}
}

// DB exposes the GORM handle for migrations
func (s *Store) DB() *gorm.DB { return s.db }

// Close implements store.Store
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Atomic implements store.Store
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Repository) error) error {
	if s.inTx {
		return fn(s) // Already inside a transaction
	}
	return s.retry.Run(ctx, isRetryable, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&Store{db: tx, inTx: true, retry: s.retry}) // Returning an error rolls back
		})
	})
}

func isRetryable(err error) bool {
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == errLockDeadlock || myErr.Number == errLockWaitTimeout
	}
	return false
}

// wrap maps GORM errors onto the domain taxonomy
func wrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	default:
		// Keep the driver error in the chain so isRetryable can inspect it
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrStorage, err)
	}
}

// row starts a single-record query, locked when inside a transaction
func (s *Store) row(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"}) // SELECT ... FOR UPDATE
	}
	return q
}

// affected turns a zero row count into ErrNotFound.
// The DSN must carry clientFoundRows=true, otherwise an UPDATE that changes
// nothing reports zero rows.
func affected(res *gorm.DB, kind, id string) error {
	if res.Error != nil {
		return wrap(res.Error, "%s %s", kind, id)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := s.row(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get user %s", id)
	}
	return &u, nil
}

func (s *Store) FindUsersByEmail(ctx context.Context, email string) ([]domain.User, error) {
	var users []domain.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Order("id").Find(&users).Error; err != nil {
		return nil, wrap(err, "find users by email")
	}
	return users, nil
}

func (s *Store) AddUser(ctx context.Context, u *domain.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return wrap(err, "add user %s", u.ID)
	}
	return nil
}

func (s *Store) EditUser(ctx context.Context, u *domain.User) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"email":             u.Email,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"password_hash":     u.PasswordHash,
		"unallocated_funds": u.UnallocatedFunds,
	})
	return affected(res, "user", u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id), "user", id)
}

func (s *Store) DeleteUserData(ctx context.Context, userID string) error {
	db := s.db.WithContext(ctx)
	owned := db.Model(&domain.Category{}).Select("id").Where("user_id = ?", userID)
	if err := db.Where("category_id IN (?)", owned).Delete(&domain.Expense{}).Error; err != nil {
		return wrap(err, "delete expenses of user %s", userID)
	}
	if err := db.Where("user_id = ?", userID).Delete(&domain.Category{}).Error; err != nil {
		return wrap(err, "delete categories of user %s", userID)
	}
	if err := db.Where("user_id = ?", userID).Delete(&domain.Income{}).Error; err != nil {
		return wrap(err, "delete incomes of user %s", userID)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	if err := s.row(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get category %s", id)
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	categories := []domain.Category{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name, id").Find(&categories).Error; err != nil {
		return nil, wrap(err, "list categories of user %s", userID)
	}
	return categories, nil
}

func (s *Store) AddCategory(ctx context.Context, c *domain.Category) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return wrap(err, "add category %s", c.ID)
	}
	return nil
}

func (s *Store) EditCategory(ctx context.Context, c *domain.Category) error {
	res := s.db.WithContext(ctx).Model(&domain.Category{}).Where("id = ?", c.ID).Updates(map[string]any{
		"name":            c.Name,
		"amount":          c.Amount,
		"monthly_default": c.MonthlyDefault,
	})
	return affected(res, "category", c.ID)
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Delete(&domain.Category{}, "id = ?", id), "category", id)
}

func (s *Store) GetExpense(ctx context.Context, id string) (*domain.Expense, error) {
	var e domain.Expense
	if err := s.row(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get expense %s", id)
	}
	return &e, nil
}

func (s *Store) ListCategoryExpenses(ctx context.Context, categoryID string) ([]domain.Expense, error) {
	expenses := []domain.Expense{}
	if err := s.db.WithContext(ctx).Where("category_id = ?", categoryID).Order("date, id").Find(&expenses).Error; err != nil {
		return nil, wrap(err, "list expenses of category %s", categoryID)
	}
	return expenses, nil
}

func (s *Store) ListUserExpenses(ctx context.Context, userID string) ([]domain.ExpenseView, error) {
	views := []domain.ExpenseView{}
	err := s.db.WithContext(ctx).
		Table("expenses").
		Select("expenses.*, categories.name AS category_name, categories.amount AS category_amount").
		Joins("JOIN categories ON expenses.category_id = categories.id").
		Where("categories.user_id = ?", userID).
		Order("expenses.date, expenses.id").
		Scan(&views).Error
	if err != nil {
		return nil, wrap(err, "list expenses of user %s", userID)
	}
	return views, nil
}

func (s *Store) AddExpense(ctx context.Context, e *domain.Expense) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return wrap(err, "add expense %s", e.ID)
	}
	return nil
}

func (s *Store) EditExpense(ctx context.Context, e *domain.Expense) error {
	res := s.db.WithContext(ctx).Model(&domain.Expense{}).Where("id = ?", e.ID).Updates(map[string]any{
		"category_id": e.CategoryID,
		"amount":      e.Amount,
		"date":        e.Date,
		"summary":     e.Summary,
	})
	return affected(res, "expense", e.ID)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Delete(&domain.Expense{}, "id = ?", id), "expense", id)
}

func (s *Store) DeleteCategoryExpenses(ctx context.Context, categoryID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("category_id = ?", categoryID).Delete(&domain.Expense{})
	if res.Error != nil {
		return 0, wrap(res.Error, "delete expenses of category %s", categoryID)
	}
	return res.RowsAffected, nil
}

func (s *Store) GetIncome(ctx context.Context, id string) (*domain.Income, error) {
	var in domain.Income
	if err := s.row(ctx).First(&in, "id = ?", id).Error; err != nil {
		return nil, wrap(err, "get income %s", id)
	}
	return &in, nil
}

func (s *Store) ListIncomes(ctx context.Context, userID string) ([]domain.Income, error) {
	incomes := []domain.Income{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("date, id").Find(&incomes).Error; err != nil {
		return nil, wrap(err, "list incomes of user %s", userID)
	}
	return incomes, nil
}

func (s *Store) AddIncome(ctx context.Context, in *domain.Income) error {
	if err := s.db.WithContext(ctx).Create(in).Error; err != nil {
		return wrap(err, "add income %s", in.ID)
	}
	return nil
}

func (s *Store) EditIncome(ctx context.Context, in *domain.Income) error {
	res := s.db.WithContext(ctx).Model(&domain.Income{}).Where("id = ?", in.ID).Updates(map[string]any{
		"amount":  in.Amount,
		"date":    in.Date,
		"summary": in.Summary,
	})
	return affected(res, "income", in.ID)
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Delete(&domain.Income{}, "id = ?", id), "income", id)
}

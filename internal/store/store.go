package store

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"context"                        // Contexts for store calls
)

// Repository is record-level access to users, categories, expenses and incomes.
//
// Lookups of a missing record fail with an error wrapping domain.ErrNotFound,
// inserts of an existing primary key (or a taken email) with domain.ErrConflict,
// and everything else with domain.ErrStorage. Inside Store.Atomic the single
// record getters lock the returned row until the transaction ends.
type Repository interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	FindUsersByEmail(ctx context.Context, email string) ([]domain.User, error)
	AddUser(ctx context.Context, u *domain.User) error
	EditUser(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, id string) error
	// DeleteUserData removes every category, expense and income owned by the user.
	DeleteUserData(ctx context.Context, userID string) error

	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	AddCategory(ctx context.Context, c *domain.Category) error
	EditCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id string) error

	GetExpense(ctx context.Context, id string) (*domain.Expense, error)
	ListCategoryExpenses(ctx context.Context, categoryID string) ([]domain.Expense, error)
	ListUserExpenses(ctx context.Context, userID string) ([]domain.ExpenseView, error)
	AddExpense(ctx context.Context, e *domain.Expense) error
	EditExpense(ctx context.Context, e *domain.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	// DeleteCategoryExpenses removes all expenses of a category and reports how many went.
	DeleteCategoryExpenses(ctx context.Context, categoryID string) (int64, error)

	GetIncome(ctx context.Context, id string) (*domain.Income, error)
	ListIncomes(ctx context.Context, userID string) ([]domain.Income, error)
	AddIncome(ctx context.Context, in *domain.Income) error
	EditIncome(ctx context.Context, in *domain.Income) error
	DeleteIncome(ctx context.Context, id string) error
}

// Store is a Repository that can group calls into one transaction.
// Adapters implement plain record access only and never apply fund
// adjustments; the accounting engine combines several Repository calls inside
// one Atomic call.
type Store interface {
	Repository

	// Atomic runs fn in a single storage transaction: committed when fn returns
	// nil, rolled back otherwise. Transient lock conflicts are retried by the
	// store according to its RetryPolicy, so fn must be safe to run again.
	Atomic(ctx context.Context, fn func(tx Repository) error) error

	// Close releases the underlying connections.
	Close() error
}

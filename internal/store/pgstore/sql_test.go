package pgstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget_tracker/internal/domain"
	"budget_tracker/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "first_name", "last_name", "password_hash", "unallocated_funds"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, store.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}), mock
}

// withdraw is a read-modify-write on one user, as the accounting engine does.
func withdraw(ctx context.Context, tx store.Repository, userID string, amount int64) error {
	u, err := tx.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	u.UnallocatedFunds = u.UnallocatedFunds.Sub(decimal.NewFromInt(amount))
	return tx.EditUser(ctx, u)
}

func TestAtomic_ReplaysWholeTransactionAfterDeadlock(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, .* FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnError(&pgconn.PgError{Code: codeDeadlockDetected})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, .* FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@b.c", "A", "", "hash", "100.00"))
	mock.ExpectExec(`UPDATE users SET email = \$1, .* unallocated_funds = \$5 WHERE id = \$6`).
		WithArgs("a@b.c", "A", "", "hash", "60", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	attempts := 0
	err := s.Atomic(ctx, func(tx store.Repository) error {
		attempts++
		return withdraw(ctx, tx, "u1", 40)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
			WillReturnError(&pgconn.PgError{Code: codeSerializationFailure})
		mock.ExpectRollback()
	}

	err := s.Atomic(ctx, func(tx store.Repository) error {
		return withdraw(ctx, tx, "u1", 40)
	})
	assert.ErrorIs(t, err, domain.ErrStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_RollsBackWithoutReplayOnDomainError(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO incomes`).
		WillReturnError(&pgconn.PgError{Code: codeUniqueViolation})
	mock.ExpectRollback()

	attempts := 0
	err := s.Atomic(ctx, func(tx store.Repository) error {
		attempts++
		return tx.AddIncome(ctx, &domain.Income{ID: "i1", UserID: "u1", Amount: decimal.NewFromInt(5), Date: time.Now()})
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadsOutsideAtomicTakeNoLock(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, .* FROM users WHERE id = \$1$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@b.c", "A", "B", "hash", "12.50"))

	u, err := s.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(u.UnallocatedFunds))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUserExpenses_JoinsCategory(t *testing.T) {
	s, mock := newMockStore(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	note := "lunch"
	mock.ExpectQuery(`SELECT e.id, e.category_id, e.amount, e.date, e.summary, c.name, c.amount FROM expenses e JOIN categories c ON e.category_id = c.id WHERE c.user_id = \$1 ORDER BY e.date, e.id`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "amount", "date", "summary", "name", "amount"}).
			AddRow("e1", "c1", "7.25", day, note, "Food", "32.75").
			AddRow("e2", "c1", "1.00", day, nil, "Food", "32.75"))

	views, err := s.ListUserExpenses(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Food", views[0].CategoryName)
	assert.True(t, decimal.RequireFromString("32.75").Equal(views[0].CategoryAmount))
	assert.True(t, decimal.RequireFromString("7.25").Equal(views[0].Amount))
	require.NotNil(t, views[0].Summary)
	assert.Equal(t, note, *views[0].Summary)
	assert.Nil(t, views[1].Summary)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserData_RemovesExpensesBeforeCategories(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM expenses WHERE category_id IN \(SELECT id FROM categories WHERE user_id = \$1\)`).
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM categories WHERE user_id = \$1`).
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM incomes WHERE user_id = \$1`).
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Atomic(ctx, func(tx store.Repository) error {
		if err := tx.DeleteUserData(ctx, "u1"); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, "u1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditOfMissingRowIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE categories SET name = \$1, amount = \$2, monthly_default = \$3 WHERE id = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.EditCategory(context.Background(), &domain.Category{ID: "c1", Name: "Food"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, errors.Is(err, domain.ErrStorage))
	require.NoError(t, mock.ExpectationsWereMet())
}

package gormstore

import (
	"context"
	"testing"
	"time"

	"budget_tracker/internal/domain"
	"budget_tracker/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userCols = []string{"id", "email", "first_name", "last_name", "password_hash", "unallocated_funds"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	return New(db, store.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}), mock
}

func TestAtomic_ReplaysWholeTransactionAfterDeadlock(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\? .*FOR UPDATE").
		WillReturnError(&mysqldrv.MySQLError{Number: errLockDeadlock, Message: "Deadlock found"})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@b.c", "A", "", "hash", "100.00"))
	mock.ExpectExec("UPDATE `users` SET .*`unallocated_funds`=\\? WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	attempts := 0
	err := s.Atomic(ctx, func(tx store.Repository) error {
		attempts++
		u, err := tx.GetUser(ctx, "u1")
		if err != nil {
			return err
		}
		u.UnallocatedFunds = u.UnallocatedFunds.Sub(decimal.NewFromInt(40))
		return tx.EditUser(ctx, u)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAtomic_DuplicateKeyIsConflictWithoutReplay(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `incomes`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"})
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

func TestListUserExpenses_JoinsCategory(t *testing.T) {
	s, mock := newMockStore(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT expenses\\.\\*.*category_name.*category_amount FROM .expenses. JOIN categories ON expenses\\.category_id = categories\\.id WHERE categories\\.user_id = \\? ORDER BY expenses\\.date, expenses\\.id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "amount", "date", "summary", "category_name", "category_amount"}).
			AddRow("e1", "c1", "7.25", day, "lunch", "Food", "32.75"))

	views, err := s.ListUserExpenses(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "e1", views[0].ID)
	assert.Equal(t, "Food", views[0].CategoryName)
	assert.True(t, decimal.RequireFromString("32.75").Equal(views[0].CategoryAmount))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserData_RemovesExpensesBeforeCategories(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `expenses` WHERE category_id IN \\(SELECT .?id.? FROM `categories` WHERE user_id = \\?\\)").
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM `categories` WHERE user_id = \\?").
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `incomes` WHERE user_id = \\?").
		WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Atomic(ctx, func(tx store.Repository) error {
		return tx.DeleteUserData(ctx, "u1")
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

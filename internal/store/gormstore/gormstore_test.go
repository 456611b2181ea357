package gormstore

import (
	"errors"
	"fmt"
	"testing"

	"budget_tracker/internal/domain"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"missing row", gorm.ErrRecordNotFound, domain.ErrNotFound},
		{"duplicate key", gorm.ErrDuplicatedKey, domain.ErrConflict},
		{"driver failure", &mysqldrv.MySQLError{Number: 2006, Message: "server has gone away"}, domain.ErrStorage},
		{"anything else", errors.New("boom"), domain.ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrap(tt.err, "get user %s", "u1")
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "get user u1")
		})
	}
}

func TestIsRetryable(t *testing.T) {
	deadlock := &mysqldrv.MySQLError{Number: errLockDeadlock}
	lockWait := &mysqldrv.MySQLError{Number: errLockWaitTimeout}
	duplicate := &mysqldrv.MySQLError{Number: 1062}

	assert.True(t, isRetryable(deadlock))
	assert.True(t, isRetryable(lockWait))
	assert.True(t, isRetryable(wrap(deadlock, "edit category c1")), "wrapped driver errors stay visible")
	assert.True(t, isRetryable(fmt.Errorf("tx: %w", lockWait)))
	assert.False(t, isRetryable(duplicate))
	assert.False(t, isRetryable(domain.ErrNotFound))
}

func TestAffected(t *testing.T) {
	assert.ErrorIs(t, affected(&gorm.DB{RowsAffected: 0}, "category", "c1"), domain.ErrNotFound)
	assert.NoError(t, affected(&gorm.DB{RowsAffected: 1}, "category", "c1"))
	assert.ErrorIs(t, affected(&gorm.DB{Error: errors.New("boom")}, "category", "c1"), domain.ErrStorage)
}

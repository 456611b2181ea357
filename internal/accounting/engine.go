package accounting

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls
	"errors"                         // Error inspection
	"time"                           // Dates and durations

	"github.com/shopspring/decimal" // Exact money arithmetic
	"github.com/sirupsen/logrus"    // Structured logging
)

// Engine keeps a user's unallocated funds and each category's remaining
// amount consistent across every category, expense and income mutation.
//
// Every balance-affecting operation is a single store.Atomic call: the rows it
// adjusts are re-read (and locked) inside the transaction, the new balances
// are computed with decimal arithmetic, and all writes commit together or not
// at all.
//
//	category create/edit/delete  moves funds between user.unallocated and category.amount
//	expense add/edit/delete      draws down or refunds category.amount
//	income add/edit/delete       raises or lowers user.unallocated
type Engine struct {
	store store.Store
	log   *logrus.Logger
}

// NewEngine wires the engine to its persistence port. A nil logger falls back
// to the logrus standard logger.
func NewEngine(s store.Store, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{store: s, log: log}
}

// CategoryInput carries the writable fields of a category.
type CategoryInput struct {
	ID             string           `json:"id" validate:"omitempty,uuid"`                     // Optional stable id for create
	Name           string           `json:"name" validate:"required,utf8,max=100"`            // Trimmed before validation
	Amount         decimal.Decimal  `json:"amount" validate:"money"`                          // May be negative after overspending
	MonthlyDefault *decimal.Decimal `json:"monthly_default" validate:"omitempty,gte=0,money"` // Optional refill amount
}

// ExpenseInput carries the writable fields of an expense.
type ExpenseInput struct {
	ID         string          `json:"id" validate:"omitempty,uuid"`              // Optional stable id for add
	CategoryID string          `json:"category_id"`                               // Target category on edit; empty keeps the current one
	Amount     decimal.Decimal `json:"amount" validate:"gt=0,money"`              // Rounded to cents before validation
	Date       time.Time       `json:"date" validate:"required"`                  // Truncated to the day
	Summary    *string         `json:"summary" validate:"omitempty,utf8,max=255"` // Optional note
}

// IncomeInput carries the writable fields of an income.
type IncomeInput struct {
	ID      string          `json:"id" validate:"omitempty,uuid"`              // Optional stable id for add
	Amount  decimal.Decimal `json:"amount" validate:"gt=0,money"`              // Rounded to cents before validation
	Date    time.Time       `json:"date" validate:"required"`                  // Truncated to the day
	Summary *string         `json:"summary" validate:"omitempty,utf8,max=255"` // Optional note
}

// canonicalID replaces a client-supplied id with its canonical spelling so a
// replay in another spelling still hits the primary key.
func canonicalID(id *string) error {
	canonical, err := domain.CanonicalID(*id)
	if err != nil {
		return err
	}
	*id = canonical
	return nil
}

// atomic runs fn as one transaction and logs the outcome.
//
// The transaction and every call fn makes run on a context detached from
// ctx cancellation: once started it either commits or rolls back, even when
// the client has gone away.
func (e *Engine) atomic(ctx context.Context, op string, fields logrus.Fields, fn func(ctx context.Context, tx store.Repository) error) error {
	detached := context.WithoutCancel(ctx)
	err := e.store.Atomic(detached, func(tx store.Repository) error {
		return fn(detached, tx)
	})
	entry := e.log.WithFields(fields).WithField("op", op)
	switch {
	case err == nil:
		entry.Info("Accounting operation committed")
	case isClientError(err):
		entry.WithField("error", err.Error()).Warn("Accounting operation rejected")
	default:
		entry.WithField("error", err.Error()).Error("Accounting operation failed")
	}
	return err
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrHasDependents) ||
		errors.Is(err, domain.ErrAuthenticationFailed)
}

// adjustUnallocated re-reads the user inside tx, adds delta to its
// unallocated funds and writes it back.
func adjustUnallocated(ctx context.Context, tx store.Repository, userID string, delta decimal.Decimal) (*domain.User, error) {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.UnallocatedFunds = domain.RoundMoney(user.UnallocatedFunds.Add(delta))
	if err := domain.CheckBalance("unallocated_funds", user.UnallocatedFunds); err != nil {
		return nil, err
	}
	if err := tx.EditUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// adjustCategory adds delta to the category's remaining amount and writes it back.
func adjustCategory(ctx context.Context, tx store.Repository, c *domain.Category, delta decimal.Decimal) error {
	c.Amount = domain.RoundMoney(c.Amount.Add(delta))
	if err := domain.CheckBalance("category amount", c.Amount); err != nil {
		return err
	}
	return tx.EditCategory(ctx, c)
}

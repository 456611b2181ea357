package accounting

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls

	"github.com/sirupsen/logrus" // Structured logging
)

// normalizeIncome rounds in place, then validates.
func normalizeIncome(in *IncomeInput) error {
	if err := canonicalID(&in.ID); err != nil {
		return err
	}
	in.Amount = domain.RoundMoney(in.Amount)
	return domain.Validate(in)
}

// AddIncome records an income and adds it to the user's unallocated funds.
func (e *Engine) AddIncome(ctx context.Context, userID string, in IncomeInput) (*domain.Income, error) {
	if err := normalizeIncome(&in); err != nil {
		return nil, err
	}
	income := &domain.Income{
		ID:      domain.NewID(in.ID),
		UserID:  userID,
		Amount:  in.Amount,
		Date:    domain.TruncateDay(in.Date),
		Summary: in.Summary,
	}
	fields := logrus.Fields{"user_id": userID, "income_id": income.ID, "amount": income.Amount.String()}
	err := e.atomic(ctx, "add_income", fields, func(ctx context.Context, tx store.Repository) error {
		if _, err := adjustUnallocated(ctx, tx, userID, income.Amount); err != nil {
			return err
		}
		return tx.AddIncome(ctx, income)
	})
	if err != nil {
		return nil, err
	}
	return income, nil
}

// EditIncome updates an income; the user's unallocated funds follow the
// change in amount.
func (e *Engine) EditIncome(ctx context.Context, incomeID string, in IncomeInput) (*domain.Income, error) {
	in.ID = ""
	if err := normalizeIncome(&in); err != nil {
		return nil, err
	}
	newAmount := in.Amount
	var updated *domain.Income
	fields := logrus.Fields{"income_id": incomeID, "amount": newAmount.String()}
	err := e.atomic(ctx, "edit_income", fields, func(ctx context.Context, tx store.Repository) error {
		income, err := tx.GetIncome(ctx, incomeID)
		if err != nil {
			return err
		}
		diff := income.Amount.Sub(newAmount)
		if _, err := adjustUnallocated(ctx, tx, income.UserID, diff.Neg()); err != nil {
			return err
		}
		income.Amount = newAmount
		income.Date = domain.TruncateDay(in.Date)
		income.Summary = in.Summary
		if err := tx.EditIncome(ctx, income); err != nil {
			return err
		}
		updated = income
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteIncome removes an income and takes its amount back out of the user's
// unallocated funds, which may go negative if it was already allocated.
func (e *Engine) DeleteIncome(ctx context.Context, incomeID string) error {
	fields := logrus.Fields{"income_id": incomeID}
	return e.atomic(ctx, "delete_income", fields, func(ctx context.Context, tx store.Repository) error {
		income, err := tx.GetIncome(ctx, incomeID)
		if err != nil {
			return err
		}
		if _, err := adjustUnallocated(ctx, tx, income.UserID, income.Amount.Neg()); err != nil {
			return err
		}
		return tx.DeleteIncome(ctx, incomeID)
	})
}

// GetIncome returns one income.
func (e *Engine) GetIncome(ctx context.Context, incomeID string) (*domain.Income, error) {
	return e.store.GetIncome(ctx, incomeID)
}

// ListIncomes returns the user's incomes ordered by date.
func (e *Engine) ListIncomes(ctx context.Context, userID string) ([]domain.Income, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.ListIncomes(ctx, userID)
}

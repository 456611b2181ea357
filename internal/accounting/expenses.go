package accounting

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls
	"fmt"                            // Error wrapping

	"github.com/sirupsen/logrus" // Structured logging
)

// normalizeExpense rounds in place, then validates.
func normalizeExpense(in *ExpenseInput) error {
	if err := canonicalID(&in.ID); err != nil {
		return err
	}
	in.Amount = domain.RoundMoney(in.Amount)
	return domain.Validate(in)
}

// AddExpense records spending against a category and draws its amount down.
// The owner's unallocated funds are not touched. Spending past zero is allowed
// and leaves a negative category amount.
func (e *Engine) AddExpense(ctx context.Context, categoryID string, in ExpenseInput) (*domain.Expense, error) {
	if err := normalizeExpense(&in); err != nil {
		return nil, err
	}
	expense := &domain.Expense{
		ID:         domain.NewID(in.ID),
		CategoryID: categoryID,
		Amount:     in.Amount,
		Date:       domain.TruncateDay(in.Date),
		Summary:    in.Summary,
	}
	fields := logrus.Fields{"category_id": categoryID, "expense_id": expense.ID, "amount": expense.Amount.String()}
	err := e.atomic(ctx, "add_expense", fields, func(ctx context.Context, tx store.Repository) error {
		category, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if err := tx.AddExpense(ctx, expense); err != nil {
			return err
		}
		return adjustCategory(ctx, tx, category, expense.Amount.Neg())
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// EditExpense updates an expense and re-balances the categories involved.
//
// Within one category the difference between the old and new amount is
// refunded or drawn. When in.CategoryID moves the expense, the old category
// is refunded the old amount and the new one is charged the new amount. Both
// categories must belong to the same user.
func (e *Engine) EditExpense(ctx context.Context, expenseID string, in ExpenseInput) (*domain.Expense, error) {
	in.ID = ""
	if err := normalizeExpense(&in); err != nil {
		return nil, err
	}
	newAmount := in.Amount
	var updated *domain.Expense
	fields := logrus.Fields{"expense_id": expenseID, "category_id": in.CategoryID, "amount": newAmount.String()}
	err := e.atomic(ctx, "edit_expense", fields, func(ctx context.Context, tx store.Repository) error {
		expense, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		target := in.CategoryID
		if target == "" {
			target = expense.CategoryID
		}
		if target == expense.CategoryID {
			category, err := tx.GetCategory(ctx, target)
			if err != nil {
				return err
			}
			if err := adjustCategory(ctx, tx, category, expense.Amount.Sub(newAmount)); err != nil {
				return err
			}
		} else {
			from, to, err := lockPair(ctx, tx, expense.CategoryID, target)
			if err != nil {
				return err
			}
			if from.UserID != to.UserID {
				return fmt.Errorf("%w: category %s belongs to another user", domain.ErrValidation, target)
			}
			if err := adjustCategory(ctx, tx, from, expense.Amount); err != nil {
				return err
			}
			if err := adjustCategory(ctx, tx, to, newAmount.Neg()); err != nil {
				return err
			}
		}
		expense.CategoryID = target
		expense.Amount = newAmount
		expense.Date = domain.TruncateDay(in.Date)
		expense.Summary = in.Summary
		if err := tx.EditExpense(ctx, expense); err != nil {
			return err
		}
		updated = expense
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// lockPair reads two categories in id order so concurrent moves in opposite
// directions acquire row locks in the same sequence.
func lockPair(ctx context.Context, tx store.Repository, fromID, toID string) (from, to *domain.Category, err error) {
	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := tx.GetCategory(ctx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := tx.GetCategory(ctx, secondID)
	if err != nil {
		return nil, nil, err
	}
	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

// DeleteExpense removes an expense and refunds its amount to the category.
func (e *Engine) DeleteExpense(ctx context.Context, expenseID string) error {
	fields := logrus.Fields{"expense_id": expenseID}
	return e.atomic(ctx, "delete_expense", fields, func(ctx context.Context, tx store.Repository) error {
		expense, err := tx.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		category, err := tx.GetCategory(ctx, expense.CategoryID)
		if err != nil {
			return err
		}
		if err := adjustCategory(ctx, tx, category, expense.Amount); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, expenseID)
	})
}

// GetExpense returns one expense.
func (e *Engine) GetExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	return e.store.GetExpense(ctx, expenseID)
}

// ExpenseOwner returns the id of the user whose category holds the expense.
func (e *Engine) ExpenseOwner(ctx context.Context, expenseID string) (string, error) {
	expense, err := e.store.GetExpense(ctx, expenseID)
	if err != nil {
		return "", err
	}
	category, err := e.store.GetCategory(ctx, expense.CategoryID)
	if err != nil {
		return "", err
	}
	return category.UserID, nil
}

// ListCategoryExpenses returns the expenses of one category ordered by date.
func (e *Engine) ListCategoryExpenses(ctx context.Context, categoryID string) ([]domain.Expense, error) {
	if _, err := e.store.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	return e.store.ListCategoryExpenses(ctx, categoryID)
}

// ListUserExpenses returns every expense across the user's categories, joined
// with the category name and remaining amount.
func (e *Engine) ListUserExpenses(ctx context.Context, userID string) ([]domain.ExpenseView, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.ListUserExpenses(ctx, userID)
}

package accounting

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls
	"fmt"                            // Error wrapping
	"strings"                        // String helpers

	"github.com/shopspring/decimal" // Exact money arithmetic
	"github.com/sirupsen/logrus"    // Structured logging
)

// normalizeCategory trims and rounds in place, then validates.
func normalizeCategory(in *CategoryInput) error {
	if err := canonicalID(&in.ID); err != nil {
		return err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Amount = domain.RoundMoney(in.Amount)
	in.MonthlyDefault = roundOptional(in.MonthlyDefault)
	return domain.Validate(in)
}

func roundOptional(v *decimal.Decimal) *decimal.Decimal {
	if v == nil {
		return nil
	}
	r := domain.RoundMoney(*v)
	return &r
}

// CreateCategory allocates in.Amount out of the user's unallocated funds into
// a new category.
func (e *Engine) CreateCategory(ctx context.Context, userID string, in CategoryInput) (*domain.Category, error) {
	if err := normalizeCategory(&in); err != nil {
		return nil, err
	}
	category := &domain.Category{
		ID:             domain.NewID(in.ID),
		UserID:         userID,
		Name:           in.Name,
		Amount:         in.Amount,
		MonthlyDefault: in.MonthlyDefault,
	}
	fields := logrus.Fields{"user_id": userID, "category_id": category.ID, "amount": category.Amount.String()}
	err := e.atomic(ctx, "create_category", fields, func(ctx context.Context, tx store.Repository) error {
		if _, err := adjustUnallocated(ctx, tx, userID, category.Amount.Neg()); err != nil {
			return err
		}
		return tx.AddCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// EditCategory updates a category. A changed amount is moved from or back to
// the owner's unallocated funds so their total stays the same.
func (e *Engine) EditCategory(ctx context.Context, categoryID string, in CategoryInput) (*domain.Category, error) {
	in.ID = ""
	if err := normalizeCategory(&in); err != nil {
		return nil, err
	}
	newAmount := in.Amount
	var updated *domain.Category
	fields := logrus.Fields{"category_id": categoryID, "amount": newAmount.String()}
	err := e.atomic(ctx, "edit_category", fields, func(ctx context.Context, tx store.Repository) error {
		category, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		diff := category.Amount.Sub(newAmount)
		if _, err := adjustUnallocated(ctx, tx, category.UserID, diff); err != nil {
			return err
		}
		category.Name = in.Name
		category.Amount = newAmount
		category.MonthlyDefault = in.MonthlyDefault
		if err := tx.EditCategory(ctx, category); err != nil {
			return err
		}
		updated = category
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCategory returns the category's remaining amount to the owner's
// unallocated funds and removes it. A category with expenses is refused with
// domain.ErrHasDependents unless force is set, in which case its expenses are
// deleted too. Money already spent stays spent.
func (e *Engine) DeleteCategory(ctx context.Context, categoryID string, force bool) error {
	fields := logrus.Fields{"category_id": categoryID, "force": force}
	return e.atomic(ctx, "delete_category", fields, func(ctx context.Context, tx store.Repository) error {
		category, err := tx.GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		expenses, err := tx.ListCategoryExpenses(ctx, categoryID)
		if err != nil {
			return err
		}
		if len(expenses) > 0 {
			if !force {
				return fmt.Errorf("category %s has %d expenses: %w", categoryID, len(expenses), domain.ErrHasDependents)
			}
			if _, err := tx.DeleteCategoryExpenses(ctx, categoryID); err != nil {
				return err
			}
		}
		if _, err := adjustUnallocated(ctx, tx, category.UserID, category.Amount); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, categoryID)
	})
}

// GetCategory returns one category.
func (e *Engine) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	return e.store.GetCategory(ctx, categoryID)
}

// ListCategories returns the user's categories ordered by name.
func (e *Engine) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	if _, err := e.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.ListCategories(ctx, userID)
}

package accounting

import (
	"budget_tracker/internal/domain" // Domain models and errors
	"budget_tracker/internal/store"  // Persistence port
	"context"                        // Contexts for store calls
	"fmt"                            // Error wrapping
	"strings"                        // String helpers

	"github.com/shopspring/decimal" // Exact money arithmetic
	"github.com/sirupsen/logrus"    // Structured logging
	"golang.org/x/crypto/bcrypt"    // Password hashing
)

// UserInput carries the writable fields of a user.
type UserInput struct {
	ID           string           `json:"id" validate:"omitempty,uuid"`                   // Optional stable id for create
	Email        string           `json:"email" validate:"required,email,max=255"`        // Lower-cased before validation
	FirstName    string           `json:"first_name" validate:"required,utf8,max=100"`    // Trimmed before validation
	LastName     string           `json:"last_name" validate:"omitempty,utf8,max=100"`    // Optional
	Password     string           `json:"password" validate:"omitempty,min=8,max=72"`     // Plaintext; empty on edit keeps the current password
	OpeningFunds *decimal.Decimal `json:"opening_funds" validate:"omitempty,gte=0,money"` // Seeds unallocated funds on create, ignored on edit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeUser trims and rounds in place, then validates.
func normalizeUser(in *UserInput, requirePassword bool) error {
	if err := canonicalID(&in.ID); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.OpeningFunds = roundOptional(in.OpeningFunds)
	if requirePassword && in.Password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	if err := domain.Validate(in); err != nil {
		return err
	}
	return domain.ValidatePasswordBytes(in.Password)
}

// ensureEmailFree fails with domain.ErrConflict when another user owns email.
func ensureEmailFree(ctx context.Context, tx store.Repository, email, selfID string) error {
	users, err := tx.FindUsersByEmail(ctx, email)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID != selfID {
			return fmt.Errorf("email %s already registered: %w", email, domain.ErrConflict)
		}
	}
	return nil
}

// AddUser registers a user with a bcrypt-hashed password. Unallocated funds
// start at zero unless OpeningFunds is given.
func (e *Engine) AddUser(ctx context.Context, in UserInput) (*domain.User, error) {
	if err := normalizeUser(&in, true); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:               domain.NewID(in.ID),
		Email:            in.Email,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		PasswordHash:     string(hash),
		UnallocatedFunds: decimal.Zero,
	}
	if in.OpeningFunds != nil {
		user.UnallocatedFunds = *in.OpeningFunds
	}
	fields := logrus.Fields{"user_id": user.ID}
	err = e.atomic(ctx, "add_user", fields, func(ctx context.Context, tx store.Repository) error {
		if err := ensureEmailFree(ctx, tx, user.Email, ""); err != nil {
			return err
		}
		return tx.AddUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser returns one user.
func (e *Engine) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return e.store.GetUser(ctx, userID)
}

// EditUser updates profile fields and optionally the password. Unallocated
// funds are never changed here: they move only through accounting operations.
func (e *Engine) EditUser(ctx context.Context, userID string, in UserInput) (*domain.User, error) {
	in.ID, in.OpeningFunds = "", nil
	if err := normalizeUser(&in, false); err != nil {
		return nil, err
	}
	var hash string
	if in.Password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	}
	var updated *domain.User
	err := e.atomic(ctx, "edit_user", logrus.Fields{"user_id": userID}, func(ctx context.Context, tx store.Repository) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		user.Email = in.Email
		if err := ensureEmailFree(ctx, tx, user.Email, user.ID); err != nil {
			return err
		}
		user.FirstName = in.FirstName
		user.LastName = in.LastName
		if hash != "" {
			user.PasswordHash = hash
		}
		if err := tx.EditUser(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes a user. While the user still owns categories or incomes
// the delete is refused with domain.ErrHasDependents, unless force is set, in
// which case all of them (and the categories' expenses) go in the same
// transaction.
func (e *Engine) DeleteUser(ctx context.Context, userID string, force bool) error {
	fields := logrus.Fields{"user_id": userID, "force": force}
	return e.atomic(ctx, "delete_user", fields, func(ctx context.Context, tx store.Repository) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		categories, err := tx.ListCategories(ctx, userID)
		if err != nil {
			return err
		}
		incomes, err := tx.ListIncomes(ctx, userID)
		if err != nil {
			return err
		}
		if len(categories)+len(incomes) > 0 {
			if !force {
				return fmt.Errorf("user %s has %d categories and %d incomes: %w",
					userID, len(categories), len(incomes), domain.ErrHasDependents)
			}
			if err := tx.DeleteUserData(ctx, userID); err != nil {
				return err
			}
		}
		return tx.DeleteUser(ctx, userID)
	})
}

// LoginUser checks credentials. No match and a wrong password both fail with
// domain.ErrAuthenticationFailed. More than one user with the email is a data
// integrity fault: it is logged and also refused.
func (e *Engine) LoginUser(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	users, err := e.store.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, fmt.Errorf("credentials don't match: %w", domain.ErrAuthenticationFailed)
	case 1:
	default:
		e.log.WithFields(logrus.Fields{
			"email":   email,
			"matches": len(users),
		}).Error("Integrity fault: several users share one email")
		return nil, fmt.Errorf("ambiguous credentials: %w", domain.ErrAuthenticationFailed)
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("credentials don't match: %w", domain.ErrAuthenticationFailed)
	}
	return &user, nil
}

package domain

import "github.com/shopspring/decimal"

// User Model
type User struct {
	ID               string          `gorm:"primaryKey;type:char(36)" json:"id"`                         // Primary key (UUID)
	Email            string          `gorm:"uniqueIndex;size:255;not null" json:"email"`                 // Login email
	FirstName        string          `gorm:"size:100;not null" json:"first_name"`                        // First name
	LastName         string          `gorm:"size:100" json:"last_name"`                                  // Last name
	PasswordHash     string          `gorm:"not null" json:"-"`                                          // Bcrypt hash, never serialised
	UnallocatedFunds decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"unallocated_funds"` // Income not yet assigned to a category
}

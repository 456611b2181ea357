package domain

import (
	"time" // Dates and durations

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// Expense Model
type Expense struct {
	ID         string          `gorm:"primaryKey;type:char(36)" json:"id"`            // Primary key (UUID)
	CategoryID string          `gorm:"type:char(36);index;not null" json:"category_id"` // Category the expense draws from
	Amount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`      // Always positive
	Date       time.Time       `gorm:"type:date;not null" json:"date"`                 // Day of the expense
	Summary    *string         `gorm:"size:255" json:"summary"`                        // Optional note
}

// ExpenseView is an Expense joined with the category it belongs to.
// Returned by the user-wide expense listing used by the dashboard table.
type ExpenseView struct {
	Expense
	CategoryName   string          `json:"category_name"`
	CategoryAmount decimal.Decimal `json:"category_amount"`
}

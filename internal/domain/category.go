package domain

import "github.com/shopspring/decimal"

// Category Model
type Category struct {
	ID             string           `gorm:"primaryKey;type:char(36)" json:"id"`        // Primary key (UUID)
	UserID         string           `gorm:"type:char(36);index;not null" json:"user_id"` // Owning user
	Name           string           `gorm:"size:100;not null" json:"name"`             // Display name
	Amount         decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"amount"`  // Funds remaining, negative on overspend
	MonthlyDefault *decimal.Decimal `gorm:"type:decimal(14,2)" json:"monthly_default"`  // Informational only
}

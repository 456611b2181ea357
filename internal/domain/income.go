package domain

import (
	"time" // Dates and durations

	"github.com/shopspring/decimal" // Exact money arithmetic
)

// Income Model
type Income struct {
	ID      string          `gorm:"primaryKey;type:char(36)" json:"id"`        // Primary key (UUID)
	UserID  string          `gorm:"type:char(36);index;not null" json:"user_id"` // Receiving user
	Amount  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`  // Always positive
	Date    time.Time       `gorm:"type:date;not null" json:"date"`             // Day the income arrived
	Summary *string         `gorm:"size:255" json:"summary"`                    // Optional note
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnknownDescription replaces blank descriptions and merchants.
const UnknownDescription = "Unknown"

// Transaction is a normalized bank statement row, independent of the
// exporting bank's column layout.
type Transaction struct {
	ID          uuid.UUID
	Date        time.Time       // calendar date, UTC midnight
	Description string
	Amount      decimal.Decimal // negative = expense, positive = income
	Merchant    string
	ImportedAt  time.Time
}

// IsExpense reports whether the transaction moved money out of the account.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// Spent returns the positive magnitude of an expense, zero for income.
func (t Transaction) Spent() decimal.Decimal {
	if !t.IsExpense() {
		return decimal.Zero
	}
	return t.Amount.Neg()
}

package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func validTxn() model.Transaction {
	return model.Transaction{
		ID:          uuid.New(),
		Date:        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "COFFEE SHOP - DOWNTOWN",
		Amount:      decimal.RequireFromString("-4.50"),
		Merchant:    "COFFEE SHOP",
		ImportedAt:  time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate([]model.Transaction{validTxn(), validTxn()}))
	assert.Empty(t, Validate(nil))
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Transaction)
		rule   Rule
	}{
		{"zero amount", func(tx *model.Transaction) { tx.Amount = decimal.Zero }, RuleNonZeroAmount},
		{"blank description", func(tx *model.Transaction) { tx.Description = "  " }, RuleDescription},
		{"blank merchant", func(tx *model.Transaction) { tx.Merchant = "" }, RuleMerchant},
		{"time of day", func(tx *model.Transaction) { tx.Date = tx.Date.Add(3 * time.Hour) }, RuleDateOnly},
		{"missing date", func(tx *model.Transaction) { tx.Date = time.Time{} }, RuleDateOnly},
		{"nil id", func(tx *model.Transaction) { tx.ID = uuid.Nil }, RuleID},
		{"missing imported_at", func(tx *model.Transaction) { tx.ImportedAt = time.Time{} }, RuleImportedAt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := validTxn()
			tt.mutate(&txn)
			errs := Validate([]model.Transaction{txn})
			require.Len(t, errs, 1)
			assert.Equal(t, tt.rule, errs[0].Rule)
		})
	}
}

func TestValidate_DuplicateID(t *testing.T) {
	a := validTxn()
	b := validTxn()
	b.ID = a.ID

	errs := Validate([]model.Transaction{a, b})
	require.Len(t, errs, 1)
	assert.Equal(t, RuleUniqueID, errs[0].Rule)
	assert.Equal(t, a.ID.String(), errs[0].ID)
}

func TestValidate_CollectsAll(t *testing.T) {
	txn := validTxn()
	txn.Amount = decimal.Zero
	txn.Merchant = ""

	errs := Validate([]model.Transaction{txn})
	assert.Len(t, errs, 2)
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check([]model.Transaction{validTxn()}))

	bad := validTxn()
	bad.Amount = decimal.Zero
	err := Check([]model.Transaction{bad})
	require.Error(t, err)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Errors, 1)
	assert.Contains(t, err.Error(), "validation failed: non-zero-amount")
}

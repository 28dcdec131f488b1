package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cleared-dev/tally/internal/model"
)

// Rule names a transaction invariant.
type Rule string

const (
	RuleNonZeroAmount Rule = "non-zero-amount"
	RuleDescription   Rule = "description"
	RuleMerchant      Rule = "merchant"
	RuleDateOnly      Rule = "date-only"
	RuleID            Rule = "id"
	RuleUniqueID      Rule = "unique-id"
	RuleImportedAt    Rule = "imported-at"
)

// ValidationError describes a single invariant violation.
type ValidationError struct {
	Rule        Rule
	ID          string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.ID, e.Description)
}

// BatchError rejects a whole batch because at least one transaction in it
// broke an invariant.
type BatchError struct {
	Errors []ValidationError
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Check validates txns and wraps any violations in a *BatchError.
func Check(txns []model.Transaction) error {
	if errs := Validate(txns); len(errs) > 0 {
		return &BatchError{Errors: errs}
	}
	return nil
}

// Validate checks every transaction against the record invariants and
// returns all violations found.
func Validate(txns []model.Transaction) []ValidationError {
	var errs []ValidationError
	seen := make(map[uuid.UUID]bool, len(txns))

	for _, t := range txns {
		id := t.ID.String()
		add := func(r Rule, format string, args ...any) {
			errs = append(errs, ValidationError{Rule: r, ID: id, Description: fmt.Sprintf(format, args...)})
		}

		if t.ID == uuid.Nil {
			add(RuleID, "id is not set")
		} else if seen[t.ID] {
			add(RuleUniqueID, "duplicate id")
		}
		seen[t.ID] = true

		if t.Amount.IsZero() {
			add(RuleNonZeroAmount, "amount is zero")
		}
		if strings.TrimSpace(t.Description) == "" {
			add(RuleDescription, "description is empty")
		}
		if strings.TrimSpace(t.Merchant) == "" {
			add(RuleMerchant, "merchant is empty")
		}

		d := t.Date.UTC()
		if t.Date.IsZero() {
			add(RuleDateOnly, "date is not set")
		} else if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 || d.Nanosecond() != 0 {
			add(RuleDateOnly, "date %s carries a time of day", t.Date.Format("2006-01-02T15:04:05Z07:00"))
		}

		if t.ImportedAt.IsZero() {
			add(RuleImportedAt, "imported_at is not set")
		}
	}
	return errs
}

package importer

import (
	"fmt"
	"strings"
)

// Role is a semantic column a bank export may provide.
type Role string

const (
	RoleDate        Role = "date"
	RoleDescription Role = "description"
	RoleAmount      Role = "amount"
	RoleDebit       Role = "debit"
	RoleCredit      Role = "credit"
	RoleType        Role = "type"
)

// roleCandidates lists normalized header names per role, highest priority first.
var roleCandidates = []struct {
	role  Role
	names []string
}{
	{RoleDate, []string{"date", "transactiondate", "postingdate", "postdate", "posteddate", "transdate"}},
	{RoleDescription, []string{"description", "details", "memo", "name", "payee", "merchant", "transaction", "transactiondescription"}},
	{RoleAmount, []string{"amount", "transactionamount", "amt", "value"}},
	{RoleDebit, []string{"debit", "withdrawal", "withdrawals"}},
	{RoleCredit, []string{"credit", "deposit", "deposits"}},
	{RoleType, []string{"type", "transactiontype", "debitcredit", "drcr"}},
}

// NormalizeHeader reduces a raw header to lower-case ASCII letters and digits,
// so "Transaction Date" and "TRANSACTION-DATE" both become "transactiondate".
func NormalizeHeader(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, strings.TrimSpace(s))
}

// ColumnMapping binds each role to a normalized header key. An empty key
// means the file has no column for that role.
type ColumnMapping struct {
	Date        string
	Description string
	Amount      string
	Debit       string
	Credit      string
	Type        string
}

// Classify picks, for every role, the first candidate name present in the
// normalized header set.
func Classify(headers map[string]bool) ColumnMapping {
	var m ColumnMapping
	for _, rc := range roleCandidates {
		m.set(rc.role, pick(headers, rc.names))
	}
	return m
}

func pick(headers map[string]bool, candidates []string) string {
	for _, c := range candidates {
		if headers[c] {
			return c
		}
	}
	return ""
}

func (m *ColumnMapping) set(role Role, key string) {
	switch role {
	case RoleDate:
		m.Date = key
	case RoleDescription:
		m.Description = key
	case RoleAmount:
		m.Amount = key
	case RoleDebit:
		m.Debit = key
	case RoleCredit:
		m.Credit = key
	case RoleType:
		m.Type = key
	}
}

// UsesAmountColumn reports whether the signed amount comes from a single
// amount column rather than a debit/credit pair.
func (m ColumnMapping) UsesAmountColumn() bool {
	return m.Amount != ""
}

// Validate checks that the mapping can produce dated, described, signed rows.
func (m ColumnMapping) Validate() error {
	var missing []Role
	if m.Date == "" {
		missing = append(missing, RoleDate)
	}
	if m.Description == "" {
		missing = append(missing, RoleDescription)
	}
	if m.Amount == "" && (m.Debit == "" || m.Credit == "") {
		missing = append(missing, RoleAmount)
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// SchemaError reports required roles that no header could satisfy. Nothing
// from the file is imported when it is returned.
type SchemaError struct {
	Missing []Role
}

var schemaHints = map[Role]string{
	RoleDate:        "Couldn't find a Date column. Common names: Date, Transaction Date, Posting Date.",
	RoleDescription: "Couldn't find a Description column. Common names: Description, Details, Memo, Name.",
	RoleAmount:      "Couldn't find Amount OR a Debit+Credit pair. Your CSV needs either Amount, or both Debit and Credit.",
}

func (e *SchemaError) Error() string {
	msgs := make([]string, 0, len(e.Missing))
	for _, r := range e.Missing {
		if hint, ok := schemaHints[r]; ok {
			msgs = append(msgs, hint)
		} else {
			msgs = append(msgs, fmt.Sprintf("Couldn't find a %s column.", r))
		}
	}
	return strings.Join(msgs, " ")
}

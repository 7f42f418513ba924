package config

import (
	"os"
	"strings"
)

// NumberingYearSource controls which calendar year the invoice number
// sequence is scoped to.
//
// The legacy system derived the year from the wall clock at creation time,
// even for back-dated invoices. That behavior is kept as the default but is
// now an explicit configuration choice.
//
// Set via env:
// - NUMBERING_YEAR_SOURCE=creationTime (default) | issueDate
type NumberingYearSource string

const (
	NumberingYearFromCreationTime NumberingYearSource = "creationTime"
	NumberingYearFromIssueDate    NumberingYearSource = "issueDate"
)

func GetNumberingYearSource() NumberingYearSource {
	v := strings.TrimSpace(os.Getenv("NUMBERING_YEAR_SOURCE"))
	if strings.EqualFold(v, string(NumberingYearFromIssueDate)) {
		return NumberingYearFromIssueDate
	}
	return NumberingYearFromCreationTime
}

// DraftRetentionDays is how long draft invoices are kept before the
// retention sweep removes them.
//
// Set via env:
// - DRAFT_RETENTION_DAYS (default 30)
func DraftRetentionDays() int {
	return intFromEnv("DRAFT_RETENTION_DAYS", 30)
}

// DisableSweeps turns off the cron sweeps (reminders, draft retention).
// Useful for one-off jobs and tests that share the same binary.
//
// Set via env:
// - DISABLE_SWEEPS=true
func DisableSweeps() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_SWEEPS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

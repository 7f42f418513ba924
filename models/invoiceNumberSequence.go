package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// InvoiceNumberSequence is the per-(organization, year) counter backing
// invoice number assignment. Incrementing it is a single atomic UPDATE, so
// concurrent invoice creations can never observe the same value. This
// replaces the legacy "find highest number, add one" pattern, which raced
// under concurrent creation and produced duplicates.
type InvoiceNumberSequence struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"uniqueIndex:uq_org_year;size:36;not null" json:"organization_id"`
	Year           int       `gorm:"uniqueIndex:uq_org_year;not null" json:"year"`
	LastValue      int64     `gorm:"not null;default:0" json:"last_value"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NumberingAnomaly reports that number assignment had to fall back on a
// degraded path (unparseable historical data). Creation still succeeds;
// callers and tests can inspect the anomaly instead of it being silently
// absorbed.
type NumberingAnomaly struct {
	OrganizationId string `json:"organization_id"`
	Year           int    `json:"year"`
	BadNumber      string `json:"bad_number,omitempty"`
	Reason         string `json:"reason"`
}

const invoiceNumberDigits = 5

func InvoiceNumberPrefix(year int) string {
	return fmt.Sprintf("INV-%d-", year)
}

func FormatInvoiceNumber(year int, sequence int64) string {
	return fmt.Sprintf("INV-%d-%0*d", year, invoiceNumberDigits, sequence)
}

// ParseInvoiceSequence extracts the trailing sequence from a formatted
// invoice number for the given year (e.g. "INV-2024-00007" -> 7).
func ParseInvoiceSequence(number string, year int) (int64, error) {
	prefix := InvoiceNumberPrefix(year)
	if !strings.HasPrefix(number, prefix) {
		return 0, fmt.Errorf("invoice number %q does not match prefix %q", number, prefix)
	}
	seq, err := strconv.ParseInt(strings.TrimPrefix(number, prefix), 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("invoice number %q has a malformed sequence segment", number)
	}
	return seq, nil
}

// NextInvoiceSequence atomically increments and returns the counter for
// (organizationId, year). It MUST run inside the caller's transaction:
// LAST_INSERT_ID is connection-scoped, and the tx pins the connection.
//
// When no counter row exists yet (tenant's first invoice of the year, or
// data that predates the counter table), the row is seeded from the highest
// historical invoice number before retrying the increment. A seed race
// between two first creations resolves via the unique key: the loser gets a
// duplicate-entry error and retries the atomic UPDATE.
func NextInvoiceSequence(tx *gorm.DB, ctx context.Context, organizationId string, year int) (int64, *NumberingAnomaly, error) {
	if organizationId == "" {
		return 0, nil, errors.New("organization id is required")
	}

	var anomaly *NumberingAnomaly
	for attempt := 0; attempt < 2; attempt++ {
		res := tx.WithContext(ctx).Exec(
			`UPDATE invoice_number_sequences
			 SET last_value = LAST_INSERT_ID(last_value + 1)
			 WHERE organization_id = ? AND year = ?`,
			organizationId, year,
		)
		if res.Error != nil {
			return 0, anomaly, res.Error
		}
		if res.RowsAffected > 0 {
			var seq int64
			if err := tx.WithContext(ctx).Raw(`SELECT LAST_INSERT_ID()`).Scan(&seq).Error; err != nil {
				return 0, anomaly, err
			}
			return seq, anomaly, nil
		}

		// No counter row yet: seed it from history, then retry the UPDATE.
		lastValue, seedAnomaly, err := ReconcileSequenceFromHistory(tx, ctx, organizationId, year)
		if err != nil {
			return 0, anomaly, err
		}
		anomaly = seedAnomaly

		err = tx.WithContext(ctx).Create(&InvoiceNumberSequence{
			OrganizationId: organizationId,
			Year:           year,
			LastValue:      lastValue,
		}).Error
		if err != nil && !isDuplicateEntry(err) {
			return 0, anomaly, err
		}
	}
	return 0, anomaly, errors.New("could not obtain invoice number sequence")
}

// ReconcileSequenceFromHistory computes the counter value implied by the
// historical invoice numbers for (organizationId, year): the highest
// parsed sequence, or zero when none exist. Unparseable numbers (corrupt
// historical data) degrade to zero with a warning instead of aborting,
// since document creation must not fail outright, and the anomaly is
// returned so it is not silently swallowed.
func ReconcileSequenceFromHistory(tx *gorm.DB, ctx context.Context, organizationId string, year int) (int64, *NumberingAnomaly, error) {
	prefix := InvoiceNumberPrefix(year)

	// MAX over zero rows is SQL NULL, so scan through NullString: a fresh
	// (organization, year) must seed the counter at zero, not error out.
	var maxNumber sql.NullString
	err := tx.WithContext(ctx).Model(&Invoice{}).
		Where("organization_id = ? AND invoice_number LIKE ?", organizationId, prefix+"%").
		Select("MAX(invoice_number)").
		Scan(&maxNumber).Error
	if err != nil {
		return 0, nil, err
	}
	if !maxNumber.Valid || maxNumber.String == "" {
		return 0, nil, nil
	}

	seq, parseErr := ParseInvoiceSequence(maxNumber.String, year)
	if parseErr != nil {
		anomaly := &NumberingAnomaly{
			OrganizationId: organizationId,
			Year:           year,
			BadNumber:      maxNumber.String,
			Reason:         "unparseable historical invoice number; sequence restarted at 1",
		}
		config.LogWarn(config.GetLogger(), "invoiceNumberSequence.go", "ReconcileSequenceFromHistory",
			"numbering fallback used", anomaly)
		return 0, anomaly, nil
	}
	return seq, nil, nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

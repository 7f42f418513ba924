// Command sequence-backfill rebuilds invoice_number_sequences from the
// invoice numbers already on record. Run once when adopting the counter
// table on a database that predates it, or to repair a counter that has
// drifted below history (which would otherwise cause duplicate numbers).
package main

import (
	"context"
	"log"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/utils"
	"gorm.io/gorm"
)

type orgYear struct {
	OrganizationId string
	Year           int
}

func main() {
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	ctx := context.Background()

	var pairs []orgYear
	err := db.WithContext(ctx).Model(&models.Invoice{}).
		Select("organization_id, YEAR(issue_date) AS year").
		Group("organization_id, YEAR(issue_date)").
		Scan(&pairs).Error
	if err != nil {
		log.Fatalf("failed to list organization/year pairs: %v", err)
	}

	var updated, anomalies int
	for _, p := range pairs {
		// Serialize against live number assignment for the tenant.
		release, err := utils.OrganizationLock(ctx, p.OrganizationId, "numberingBackfill", "main.go", "main")
		if err != nil {
			log.Fatalf("lock org=%s: %v", p.OrganizationId, err)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			lastValue, anomaly, err := models.ReconcileSequenceFromHistory(tx, ctx, p.OrganizationId, p.Year)
			if err != nil {
				return err
			}
			if anomaly != nil {
				anomalies++
				log.Printf("anomaly org=%s year=%d bad_number=%q: %s",
					anomaly.OrganizationId, anomaly.Year, anomaly.BadNumber, anomaly.Reason)
			}

			// Only ever move the counter forward. A counter ahead of history
			// is harmless; behind history it hands out duplicates.
			res := tx.WithContext(ctx).Exec(
				`INSERT INTO invoice_number_sequences (organization_id, year, last_value, created_at, updated_at)
				 VALUES (?, ?, ?, NOW(), NOW())
				 ON DUPLICATE KEY UPDATE
				   last_value = GREATEST(last_value, VALUES(last_value)),
				   updated_at = NOW()`,
				p.OrganizationId, p.Year, lastValue,
			)
			if res.Error != nil {
				return res.Error
			}
			updated++
			return nil
		})
		release()
		if err != nil {
			log.Fatalf("backfill failed for org=%s year=%d: %v", p.OrganizationId, p.Year, err)
		}
	}

	log.Printf("backfill complete: %d counters reconciled, %d anomalies", updated, anomalies)
}

// workers/audit_export_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Tarif-dev/Forge/models"
	"github.com/Tarif-dev/Forge/utils"

	"gorm.io/gorm"
)

// AuditExporter ships activity log batches to the R2 archive so the
// append-only trail survives database retention.
type AuditExporter struct {
	DB *gorm.DB
}

func NewAuditExporter(db *gorm.DB) *AuditExporter {
	return &AuditExporter{DB: db}
}

// PollAuditLog exports new activity entries on a fixed interval. The cursor
// only advances after a successful upload, so a failed export retries the
// same window next tick.
func PollAuditLog(ctx context.Context, exporter *AuditExporter, pollInterval time.Duration) {
	if !utils.ArchiveConfigured() {
		log.Println("Audit archive not configured, exporter idle")
		return
	}
	log.Println("Starting audit log export...")
	lastExport := time.Now().UTC()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Audit log export stopped.")
			return
		case <-ticker.C:
			batchEnd := time.Now().UTC()

			var entries []models.ActivityLogEntry
			err := exporter.DB.
				Where("created_at > ? AND created_at <= ?", lastExport, batchEnd).
				Order("created_at ASC").
				Find(&entries).Error
			if err != nil {
				log.Printf("❌ Error reading activity log: %v", err)
				continue
			}
			if len(entries) == 0 {
				continue
			}

			body, err := json.Marshal(entries)
			if err != nil {
				log.Printf("❌ Error encoding audit batch: %v", err)
				continue
			}

			key := fmt.Sprintf("audit/%s.json", batchEnd.Format("2006-01-02T15-04-05Z"))
			if err := utils.UploadAuditBatch(ctx, key, body); err != nil {
				log.Printf("❌ Failed to archive %d audit entries: %v", len(entries), err)
				continue
			}

			lastExport = batchEnd
			log.Printf("✅ Archived %d audit entries to %s", len(entries), key)
		}
	}
}

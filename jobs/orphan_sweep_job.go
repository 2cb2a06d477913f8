package jobs

import (
	"context"
	"log"
	"time"

	"github.com/jdvalenciag/emprende_hub/attachments"
	"github.com/jdvalenciag/emprende_hub/database"
	"github.com/jdvalenciag/emprende_hub/metrics"
	"github.com/jdvalenciag/emprende_hub/models"
)

// OrphanGracePeriod is how long a blob may exist without a referencing
// attachment row before the sweep deletes it. Long enough to cover an
// in-flight two-phase send.
const OrphanGracePeriod = time.Hour

// NewOrphanSweeper returns the cron job that deletes attachment blobs no
// message ever committed a reference to. Failed sends delete their blob
// inline; this catches the ones that crashed between the blob write and
// the cleanup.
func NewOrphanSweeper(blob attachments.BlobStore) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		infos, err := blob.List(ctx)
		if err != nil {
			log.Printf("🔥 Orphan sweep: listing blobs failed: %v", err)
			return
		}

		cutoff := time.Now().Add(-OrphanGracePeriod)
		swept := 0
		for _, info := range infos {
			if info.CreatedAt.After(cutoff) {
				continue
			}
			var count int64
			if err := database.DB.WithContext(ctx).Model(&models.Attachment{}).
				Where("storage_key = ?", info.Key).
				Count(&count).Error; err != nil {
				log.Printf("🔥 Orphan sweep: checking %s failed: %v", info.Key, err)
				continue
			}
			if count > 0 {
				continue
			}
			if err := blob.Delete(ctx, info.Key); err != nil {
				log.Printf("🔥 Orphan sweep: deleting %s failed: %v", info.Key, err)
				continue
			}
			metrics.OrphanBlobsSwept.Inc()
			swept++
		}
		if swept > 0 {
			log.Printf("✅ Orphan sweep removed %d unreferenced blob(s)", swept)
		}
	}
}

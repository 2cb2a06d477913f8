package jobs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jdvalenciag/emprende_hub/attachments"
	"github.com/jdvalenciag/emprende_hub/database"
	"github.com/jdvalenciag/emprende_hub/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skipf("TEST_DATABASE_URL not set; skipping database tests")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Attachment{}); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func putBlob(t *testing.T, dir string, store attachments.BlobStore, key string, age time.Duration) {
	t.Helper()
	if err := store.Put(context.Background(), key, bytes.NewReader([]byte("blob")), 4); err != nil {
		t.Fatalf("Put(%q) error: %v", key, err)
	}
	old := time.Now().Add(-age)
	if err := os.Chtimes(filepath.Join(dir, key), old, old); err != nil {
		t.Fatalf("backdating %q: %v", key, err)
	}
}

func TestSweepDeletesOnlyAgedOrphans(t *testing.T) {
	database.DB = newTestDB(t)
	dir := t.TempDir()
	store, err := attachments.NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore() error: %v", err)
	}
	ctx := context.Background()

	referencedKey := uuid.NewString() + ".pdf"
	orphanKey := uuid.NewString() + ".pdf"
	freshOrphanKey := uuid.NewString() + ".pdf"

	putBlob(t, dir, store, referencedKey, 2*time.Hour)
	putBlob(t, dir, store, orphanKey, 2*time.Hour)
	putBlob(t, dir, store, freshOrphanKey, time.Minute)

	att := &models.Attachment{
		MessageID:   uuid.New(),
		FileName:    "kept.pdf",
		ContentType: models.ContentDocument,
		SizeBytes:   4,
		StorageKey:  referencedKey,
	}
	if err := database.DB.Create(att).Error; err != nil {
		t.Fatalf("creating attachment row: %v", err)
	}
	t.Cleanup(func() { database.DB.Delete(att) })

	NewOrphanSweeper(store)()

	if _, err := store.Get(ctx, referencedKey); err != nil {
		t.Errorf("referenced blob must survive the sweep: %v", err)
	}
	if _, err := store.Get(ctx, orphanKey); !errors.Is(err, attachments.ErrNotFound) {
		t.Errorf("aged orphan must be swept, Get() error = %v", err)
	}
	if _, err := store.Get(ctx, freshOrphanKey); err != nil {
		t.Errorf("a blob inside the grace period must survive: %v", err)
	}
}

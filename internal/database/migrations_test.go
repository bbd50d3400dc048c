package database

import (
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsRepairsLegacyRows(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&notes.Note{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	insertLegacy := `INSERT INTO notes (id, title, content, tags, created_at, updated_at) VALUES (?, ?, ?, NULL, ?, ?)`
	if err := database.Exec(insertLegacy, "legacy-1", "", "old body", "2024-02-01 10:00:00", "2024-01-01 10:00:00").Error; err != nil {
		testContext.Fatalf("failed to insert legacy row: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var tags string
	if err := database.Raw("SELECT tags FROM notes WHERE id = ?", "legacy-1").Scan(&tags).Error; err != nil {
		testContext.Fatalf("failed to read tags: %v", err)
	}
	if tags != "[]" {
		testContext.Fatalf("expected tags backfilled to [], got %q", tags)
	}

	var inverted int64
	if err := database.Raw("SELECT COUNT(*) FROM notes WHERE updated_at < created_at").Scan(&inverted).Error; err != nil {
		testContext.Fatalf("failed to count rows: %v", err)
	}
	if inverted != 0 {
		testContext.Fatalf("expected no rows with updated_at < created_at, got %d", inverted)
	}

	for _, name := range []string{migrationBackfillNoteTags, migrationRepairNoteTimestamps} {
		var record migrationRecord
		if err := database.Where("name = ?", name).Take(&record).Error; err != nil {
			testContext.Fatalf("expected migration record %s: %v", name, err)
		}
		if record.AppliedAtSeconds == 0 {
			testContext.Fatalf("expected migration timestamp to be set for %s", name)
		}
	}
}

func TestOpenSQLiteIsIdempotent(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "notes.db")

	for attempt := 0; attempt < 2; attempt++ {
		database, err := OpenSQLite(databasePath, zap.NewNop())
		if err != nil {
			testContext.Fatalf("open attempt %d failed: %v", attempt, err)
		}
		var applied int64
		if err := database.Model(&migrationRecord{}).Count(&applied).Error; err != nil {
			testContext.Fatalf("failed to count migrations: %v", err)
		}
		if applied != 2 {
			testContext.Fatalf("expected 2 migration records, got %d", applied)
		}
		sqlDB, err := database.DB()
		if err != nil {
			testContext.Fatalf("failed to access sql db: %v", err)
		}
		_ = sqlDB.Close()
	}
}

func TestOpenSQLiteRequiresPath(testContext *testing.T) {
	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}

package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillNoteTags     = "2026-09-28_backfill_note_tags"
	migrationRepairNoteTimestamps = "2026-10-02_repair_note_timestamps"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillNoteTags, apply: backfillNoteTags},
		{name: migrationRepairNoteTimestamps, apply: repairNoteTimestamps},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Rows written before the tags column existed hold NULL.
func backfillNoteTags(db *gorm.DB) error {
	return db.Model(&notes.Note{}).
		Where("tags IS NULL OR tags = ''").
		Update("tags", gorm.Expr("?", "[]")).Error
}

// created_at <= updated_at must hold for every row.
func repairNoteTimestamps(db *gorm.DB) error {
	return db.Model(&notes.Note{}).
		Where("updated_at < created_at").
		Update("updated_at", gorm.Expr("created_at")).Error
}

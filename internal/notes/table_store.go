package notes

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	queryNoteID      = "id = ?"
	orderSeqAsc      = "seq ASC"
	columnTitle      = "title"
	columnContent    = "content"
	columnTags       = "tags"
	columnUpdatedAt  = "updated_at"
	errMissingDBText = "notes: table store database handle is required"
)

// TableStore persists notes as rows of the notes table through GORM.
// Each method issues a single statement; atomicity comes from the engine.
type TableStore struct {
	db *gorm.DB
}

// NewTableStore wraps an already migrated GORM handle.
func NewTableStore(db *gorm.DB) (*TableStore, error) {
	if db == nil {
		return nil, errors.New(errMissingDBText)
	}
	return &TableStore{db: db}, nil
}

// List returns every note in primary key order.
func (s *TableStore) List(ctx context.Context) ([]Note, error) {
	var rows []Note
	if err := s.db.WithContext(ctx).Order(orderSeqAsc).Find(&rows).Error; err != nil {
		return nil, err
	}
	stored := make([]Note, 0, len(rows))
	for _, row := range rows {
		stored = append(stored, row.normalized())
	}
	return stored, nil
}

func (s *TableStore) Get(ctx context.Context, id NoteID) (Note, error) {
	var row Note
	err := s.db.WithContext(ctx).Where(queryNoteID, id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		return Note{}, err
	}
	return row.normalized(), nil
}

// Insert creates a row. Zero timestamps fall back to the column defaults.
func (s *TableStore) Insert(ctx context.Context, note Note) (Note, error) {
	row := note.normalized()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Note{}, err
	}
	if row.CreatedAt.IsZero() || row.UpdatedAt.IsZero() {
		return s.Get(ctx, NoteID(row.ID))
	}
	return row.normalized(), nil
}

func (s *TableStore) Replace(ctx context.Context, note Note) (Note, error) {
	row := note.normalized()
	result := s.db.WithContext(ctx).
		Model(&Note{}).
		Where(queryNoteID, row.ID).
		Select(columnTitle, columnContent, columnTags, columnUpdatedAt).
		Updates(&row)
	if result.Error != nil {
		return Note{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Note{}, ErrNoteNotFound
	}
	return row.normalized(), nil
}

func (s *TableStore) Remove(ctx context.Context, id NoteID) error {
	result := s.db.WithContext(ctx).Where(queryNoteID, id.String()).Delete(&Note{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingStore      = errors.New("note store is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew  = "notes.service.new"
	opListNotes   = "notes.list_notes"
	opGetNote     = "notes.get_note"
	opCreateNote  = "notes.create_note"
	opUpdateNote  = "notes.update_note"
	opDeleteNote  = "notes.delete_note"
	fieldNoteID   = "note_id"
	reasonMissing = "missing_store"
	reasonInvalid = "invalid_note_id"
	reasonContent = "invalid_content"
	reasonAbsent  = "not_found"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Store      Store
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service applies note semantics on top of a Store: identifier and timestamp
// assignment, content validation and partial updates.
type Service struct {
	store      Store
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, reasonMissing, errMissingStore)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		store:      cfg.Store,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// ListNotes returns every stored note in the store's order.
func (s *Service) ListNotes(ctx context.Context) ([]Note, error) {
	if s.store == nil {
		s.logError(opListNotes, reasonMissing, errMissingStore)
		return nil, newServiceError(opListNotes, reasonMissing, errMissingStore)
	}
	stored, err := s.store.List(ctx)
	if err != nil {
		s.logError(opListNotes, "store_list_failed", err)
		return nil, newServiceError(opListNotes, "store_list_failed", err)
	}
	if stored == nil {
		stored = []Note{}
	}
	return stored, nil
}

// GetNote returns the note identified by rawID.
func (s *Service) GetNote(ctx context.Context, rawID string) (Note, error) {
	if s.store == nil {
		s.logError(opGetNote, reasonMissing, errMissingStore)
		return Note{}, newServiceError(opGetNote, reasonMissing, errMissingStore)
	}
	noteID, err := NewNoteID(rawID)
	if err != nil {
		return Note{}, newServiceError(opGetNote, reasonInvalid, err)
	}
	note, err := s.store.Get(ctx, noteID)
	if errors.Is(err, ErrNoteNotFound) {
		return Note{}, newServiceError(opGetNote, reasonAbsent, err)
	}
	if err != nil {
		s.logError(opGetNote, "store_get_failed", err, zap.String(fieldNoteID, noteID.String()))
		return Note{}, newServiceError(opGetNote, "store_get_failed", err)
	}
	return note, nil
}

// CreateNote validates input, assigns a fresh identifier and stamps both
// timestamps with the same instant.
func (s *Service) CreateNote(ctx context.Context, input NewNote) (Note, error) {
	if s.store == nil {
		s.logError(opCreateNote, reasonMissing, errMissingStore)
		return Note{}, newServiceError(opCreateNote, reasonMissing, errMissingStore)
	}
	if input.Content == "" {
		return Note{}, newServiceError(opCreateNote, reasonContent, fmt.Errorf("%w: required", ErrInvalidContent))
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateNote, "id_generation_failed", err)
		return Note{}, newServiceError(opCreateNote, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	note := Note{
		ID:        noteID,
		Title:     input.Title,
		Content:   input.Content,
		Tags:      NormalizeTags(input.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.store.Insert(ctx, note)
	if err != nil {
		s.logError(opCreateNote, "store_insert_failed", err, zap.String(fieldNoteID, noteID))
		return Note{}, newServiceError(opCreateNote, "store_insert_failed", err)
	}
	return created, nil
}

// UpdateNote applies patch to an existing note. Existence is checked before
// the patch is validated. The new updated_at never precedes the previous one.
func (s *Service) UpdateNote(ctx context.Context, rawID string, patch Patch) (Note, error) {
	if s.store == nil {
		s.logError(opUpdateNote, reasonMissing, errMissingStore)
		return Note{}, newServiceError(opUpdateNote, reasonMissing, errMissingStore)
	}
	noteID, err := NewNoteID(rawID)
	if err != nil {
		return Note{}, newServiceError(opUpdateNote, reasonInvalid, err)
	}

	existing, err := s.store.Get(ctx, noteID)
	if errors.Is(err, ErrNoteNotFound) {
		return Note{}, newServiceError(opUpdateNote, reasonAbsent, err)
	}
	if err != nil {
		s.logError(opUpdateNote, "store_get_failed", err, zap.String(fieldNoteID, noteID.String()))
		return Note{}, newServiceError(opUpdateNote, "store_get_failed", err)
	}

	if err := patch.validate(); err != nil {
		return Note{}, newServiceError(opUpdateNote, reasonContent, err)
	}

	updated := patch.apply(existing)
	updated.UpdatedAt = s.clock().UTC()
	if updated.UpdatedAt.Before(existing.UpdatedAt) {
		updated.UpdatedAt = existing.UpdatedAt
	}

	stored, err := s.store.Replace(ctx, updated)
	if errors.Is(err, ErrNoteNotFound) {
		return Note{}, newServiceError(opUpdateNote, reasonAbsent, err)
	}
	if err != nil {
		s.logError(opUpdateNote, "store_replace_failed", err, zap.String(fieldNoteID, noteID.String()))
		return Note{}, newServiceError(opUpdateNote, "store_replace_failed", err)
	}
	return stored, nil
}

// DeleteNote permanently removes the note identified by rawID.
func (s *Service) DeleteNote(ctx context.Context, rawID string) error {
	if s.store == nil {
		s.logError(opDeleteNote, reasonMissing, errMissingStore)
		return newServiceError(opDeleteNote, reasonMissing, errMissingStore)
	}
	noteID, err := NewNoteID(rawID)
	if err != nil {
		return newServiceError(opDeleteNote, reasonInvalid, err)
	}
	err = s.store.Remove(ctx, noteID)
	if errors.Is(err, ErrNoteNotFound) {
		return newServiceError(opDeleteNote, reasonAbsent, err)
	}
	if err != nil {
		s.logError(opDeleteNote, "store_remove_failed", err, zap.String(fieldNoteID, noteID.String()))
		return newServiceError(opDeleteNote, "store_remove_failed", err)
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notes service error", attrs...)
}

package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidNoteID indicates that a note identifier is empty or exceeds storage bounds.
	ErrInvalidNoteID = errors.New("notes: invalid note id")
	// ErrInvalidContent indicates that note content is missing, empty or not a string.
	ErrInvalidContent = errors.New("notes: invalid content")
	// ErrNoteNotFound indicates that no note exists for the requested identifier.
	ErrNoteNotFound = errors.New("notes: note not found")
)

// NoteID represents a validated note identifier.
type NoteID string

// NewNoteID validates raw input and returns a NoteID.
func NewNoteID(rawInput string) (NoteID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidNoteID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidNoteID, maxIdentifierLength)
	}
	return NoteID(trimmed), nil
}

// String returns the underlying string identifier.
func (id NoteID) String() string {
	return string(id)
}

// Note is the persisted note record shared by every store backend.
type Note struct {
	Seq       int64     `json:"-" gorm:"column:seq;primaryKey;autoIncrement"`
	ID        string    `json:"id" gorm:"column:id;size:190;not null;uniqueIndex:idx_notes_id"`
	Title     string    `json:"title" gorm:"column:title;type:text;not null;default:''"`
	Content   string    `json:"content" gorm:"column:content;type:text;not null"`
	Tags      []string  `json:"tags" gorm:"column:tags;type:text;serializer:json"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP;autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// normalized returns a copy safe to hand to callers: store-internal fields
// cleared and a non-nil tag slice.
func (n Note) normalized() Note {
	n.Seq = 0
	if n.Tags == nil {
		n.Tags = []string{}
	} else {
		n.Tags = append([]string{}, n.Tags...)
	}
	return n
}

// NewNote describes the caller supplied fields of a note to be created.
type NewNote struct {
	Title   string
	Content string
	Tags    []string
}

// Patch describes a partial update. Nil fields are left untouched.
type Patch struct {
	Title   *string
	Content *string
	Tags    []string
	SetTags bool
}

// IsEmpty reports whether the patch changes no field.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && !p.SetTags
}

func (p Patch) validate() error {
	if p.Content != nil && *p.Content == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidContent)
	}
	return nil
}

func (p Patch) apply(note Note) Note {
	if p.Title != nil {
		note.Title = *p.Title
	}
	if p.Content != nil {
		note.Content = *p.Content
	}
	if p.SetTags {
		note.Tags = NormalizeTags(p.Tags)
	}
	return note
}

// NormalizeTags trims every tag and drops the empty ones, preserving order.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

package notebook

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoteNotFound is returned by the local source for unknown identifiers.
var ErrNoteNotFound = errors.New("notebook: note not found")

// Source is the backing store a Session synchronizes with.
type Source interface {
	List(ctx context.Context) ([]Note, error)
	Create(ctx context.Context, payload Payload) (Note, error)
	Update(ctx context.Context, id string, payload Payload) (Note, error)
	Delete(ctx context.Context, id string) error
}

// Change announces that the notes behind a source were modified elsewhere.
type Change struct {
	Operation string
	NoteIDs   []string
}

// Watcher is implemented by sources able to report outside modifications.
// The returned channel is closed when ctx ends or the feed fails.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// IsNotFound reports whether err means the note does not exist, from either
// source kind.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNoteNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

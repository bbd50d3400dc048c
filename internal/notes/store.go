package notes

import "context"

// Store is the persistence contract shared by the file, table and redis backends.
//
// Get, Replace and Remove return ErrNoteNotFound when the identifier is unknown.
// List returns notes in the backend's natural order.
type Store interface {
	List(ctx context.Context) ([]Note, error)
	Get(ctx context.Context, id NoteID) (Note, error)
	Insert(ctx context.Context, note Note) (Note, error)
	Replace(ctx context.Context, note Note) (Note, error)
	Remove(ctx context.Context, id NoteID) error
}

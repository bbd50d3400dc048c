package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	fileStorePermissions = 0o644
	fileStoreTempPrefix  = ".notes-tmp-"
)

var errMissingFilePath = errors.New("notes: file store path is required")

// FileStore keeps the whole collection as a JSON array in a single file.
//
// Every operation reads the file, mutates the collection in memory and
// rewrites the file. Writers inside one process are serialized by mu; the
// store assumes it is the only process writing the file; a second process
// writing concurrently can lose updates.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the JSON file at path. The file is
// created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errMissingFilePath
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) List(ctx context.Context) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *FileStore) Get(ctx context.Context, id NoteID) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.readAll()
	if err != nil {
		return Note{}, err
	}
	index := indexOfNote(stored, id)
	if index < 0 {
		return Note{}, ErrNoteNotFound
	}
	return stored[index], nil
}

func (s *FileStore) Insert(ctx context.Context, note Note) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.readAll()
	if err != nil {
		return Note{}, err
	}
	note = note.normalized()
	stored = append(stored, note)
	if err := s.writeAll(stored); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *FileStore) Replace(ctx context.Context, note Note) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.readAll()
	if err != nil {
		return Note{}, err
	}
	index := indexOfNote(stored, NoteID(note.ID))
	if index < 0 {
		return Note{}, ErrNoteNotFound
	}
	note = note.normalized()
	stored[index] = note
	if err := s.writeAll(stored); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *FileStore) Remove(ctx context.Context, id NoteID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.readAll()
	if err != nil {
		return err
	}
	index := indexOfNote(stored, id)
	if index < 0 {
		return ErrNoteNotFound
	}
	stored = append(stored[:index], stored[index+1:]...)
	return s.writeAll(stored)
}

// readAll returns an empty collection when the file does not exist yet.
// Malformed content is returned as an error and never repaired.
func (s *FileStore) readAll() ([]Note, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notes: read %s: %w", s.path, err)
	}

	var stored []Note
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("notes: decode %s: %w", s.path, err)
	}
	for index := range stored {
		stored[index] = stored[index].normalized()
	}
	if stored == nil {
		stored = []Note{}
	}
	return stored, nil
}

func (s *FileStore) writeAll(stored []Note) error {
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("notes: encode collection: %w", err)
	}
	return writeFileAtomic(s.path, data, fileStorePermissions)
}

func indexOfNote(stored []Note, id NoteID) int {
	for index, note := range stored {
		if note.ID == id.String() {
			return index
		}
	}
	return -1
}

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmpFile, err := os.CreateTemp(dir, fileStoreTempPrefix+"*")
	if err != nil {
		return fmt.Errorf("notes: create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("notes: write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("notes: sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("notes: close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("notes: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("notes: rename temp file to %s: %w", filename, err)
	}
	return nil
}

package notebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	slotKeyNotes        = "notes"
	slotFilePermissions = 0o644
	slotTempPrefix      = ".slot-tmp-"
	// OperationExternal marks a change made to the slot file by another writer.
	OperationExternal = "external"
)

var errMissingSlotPath = errors.New("notebook: slot file path is required")

type LocalConfig struct {
	Path       string
	IDProvider notes.IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// LocalSource keeps notes in a slot file: a JSON object of named values, with
// the note array stored under "notes". New notes go to the front and the
// whole array is rewritten on every change. Unknown keys are preserved.
type LocalSource struct {
	path       string
	idProvider notes.IDProvider
	clock      func() time.Time
	logger     *zap.Logger

	mu          sync.Mutex
	notes       []Note
	loaded      bool
	lastWritten []byte
}

func NewLocalSource(cfg LocalConfig) (*LocalSource, error) {
	if cfg.Path == "" {
		return nil, errMissingSlotPath
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = notes.NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSource{
		path:       cfg.Path,
		idProvider: idProvider,
		clock:      clock,
		logger:     logger,
	}, nil
}

// List rereads the slot file so outside edits become visible.
func (s *LocalSource) List(ctx context.Context) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.readSlot()
	if err != nil {
		return nil, err
	}
	s.notes = loaded
	s.loaded = true
	return cloneNotes(s.notes), nil
}

func (s *LocalSource) Create(ctx context.Context, payload Payload) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return Note{}, err
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Note{}, fmt.Errorf("notebook: generate id: %w", err)
	}
	now := s.clock().UTC()
	created := Note{
		ID:        id,
		Title:     payload.Title,
		Content:   payload.Content,
		Tags:      notes.NormalizeTags(payload.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	next := append([]Note{created}, s.notes...)
	if err := s.persist(next); err != nil {
		return Note{}, err
	}
	return created, nil
}

// Update edits the note in place; its position in the sequence is kept.
func (s *LocalSource) Update(ctx context.Context, id string, payload Payload) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return Note{}, err
	}
	index := indexOf(s.notes, id)
	if index < 0 {
		return Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}

	next := cloneNotes(s.notes)
	updated := next[index]
	updated.Title = payload.Title
	updated.Content = payload.Content
	updated.Tags = notes.NormalizeTags(payload.Tags)
	updated.UpdatedAt = s.clock().UTC()
	if updated.UpdatedAt.Before(next[index].UpdatedAt) {
		updated.UpdatedAt = next[index].UpdatedAt
	}
	next[index] = updated

	if err := s.persist(next); err != nil {
		return Note{}, err
	}
	return updated, nil
}

func (s *LocalSource) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	index := indexOf(s.notes, id)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	next := make([]Note, 0, len(s.notes)-1)
	next = append(next, s.notes[:index]...)
	next = append(next, s.notes[index+1:]...)
	return s.persist(next)
}

// Watch reports modifications of the slot file made by anyone other than
// this source. The parent directory is watched so atomic replacements are seen.
func (s *LocalSource) Watch(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("notebook: create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("notebook: watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	changes := make(chan Change)
	go func() {
		defer close(changes)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if !s.externallyModified() {
					continue
				}
				select {
				case changes <- Change{Operation: OperationExternal}:
				case <-ctx.Done():
					return
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("slot file watcher error", zap.String("path", s.path), zap.Error(watchErr))
			}
		}
	}()
	return changes, nil
}

// externallyModified compares the file with the last bytes this source wrote
// or observed, and records the new content.
func (s *LocalSource) externallyModified() bool {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		data = nil
	} else if err != nil {
		s.logger.Warn("failed to read slot file", zap.String("path", s.path), zap.Error(err))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if bytes.Equal(data, s.lastWritten) {
		return false
	}
	s.lastWritten = data
	return true
}

func (s *LocalSource) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	loaded, err := s.readSlot()
	if err != nil {
		return err
	}
	s.notes = loaded
	s.loaded = true
	return nil
}

func (s *LocalSource) readSlot() ([]Note, error) {
	slot, err := s.readSlotObject()
	if err != nil {
		return nil, err
	}
	raw, ok := slot[slotKeyNotes]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return []Note{}, nil
	}
	var stored []Note
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("notebook: decode %q in %s: %w", slotKeyNotes, s.path, err)
	}
	for index := range stored {
		if stored[index].Tags == nil {
			stored[index].Tags = []string{}
		}
	}
	return stored, nil
}

func (s *LocalSource) readSlotObject() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notebook: read %s: %w", s.path, err)
	}
	s.lastWritten = data
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	slot := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &slot); err != nil {
		return nil, fmt.Errorf("notebook: decode %s: %w", s.path, err)
	}
	return slot, nil
}

// persist writes next under the notes key and adopts it only once the write
// succeeded, so a failed write leaves the in-memory sequence untouched.
func (s *LocalSource) persist(next []Note) error {
	slot, err := s.readSlotObject()
	if err != nil {
		return err
	}
	encodedNotes, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("notebook: encode notes: %w", err)
	}
	slot[slotKeyNotes] = encodedNotes

	data, err := json.Marshal(slot)
	if err != nil {
		return fmt.Errorf("notebook: encode slot: %w", err)
	}
	if err := writeSlotAtomic(s.path, data); err != nil {
		return err
	}
	s.lastWritten = data
	s.notes = next
	return nil
}

func writeSlotAtomic(filename string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), slotTempPrefix+"*")
	if err != nil {
		return fmt.Errorf("notebook: create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("notebook: write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("notebook: close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), slotFilePermissions); err != nil {
		return fmt.Errorf("notebook: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("notebook: rename temp file to %s: %w", filename, err)
	}
	return nil
}

func indexOf(all []Note, id string) int {
	for index, note := range all {
		if note.ID == id {
			return index
		}
	}
	return -1
}

func cloneNotes(all []Note) []Note {
	cloned := make([]Note, len(all))
	for index, note := range all {
		note.Tags = append([]string{}, note.Tags...)
		cloned[index] = note
	}
	return cloned
}

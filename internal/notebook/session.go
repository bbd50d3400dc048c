package notebook

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var errMissingSource = errors.New("notebook: source is required")

type SessionConfig struct {
	Source  Source
	Options MatchOptions
	Logger  *zap.Logger
}

// Session owns the client state and keeps it in step with its source. After
// every successful mutation the full list is fetched again. A failed call
// leaves the state as it was.
type Session struct {
	source  Source
	options MatchOptions
	logger  *zap.Logger
	state   State
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Source == nil {
		return nil, errMissingSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		source:  cfg.Source,
		options: cfg.Options,
		logger:  logger,
		state:   State{Notes: []Note{}},
	}, nil
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return State{Notes: cloneNotes(s.state.Notes), Query: s.state.Query}
}

// Visible returns the notes matching the active query.
func (s *Session) Visible() []Note {
	return s.state.Visible(s.options)
}

// Load replaces the note list with the source's current contents.
func (s *Session) Load(ctx context.Context) error {
	listed, err := s.source.List(ctx)
	if err != nil {
		s.logger.Error("failed to load notes", zap.Error(err))
		return err
	}
	s.state.Notes = listed
	return nil
}

// Save creates the note when draft.ID is empty and updates it otherwise.
func (s *Session) Save(ctx context.Context, draft Draft) (Note, error) {
	validated, err := ValidateDraft(draft)
	if err != nil {
		return Note{}, err
	}
	payload := BuildPatch(validated)

	var saved Note
	if validated.ID == "" {
		saved, err = s.source.Create(ctx, payload)
	} else {
		saved, err = s.source.Update(ctx, validated.ID, payload)
	}
	if err != nil {
		s.logger.Error("failed to save note", zap.String("note_id", validated.ID), zap.Error(err))
		return Note{}, err
	}
	if err := s.Load(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.source.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete note", zap.String("note_id", id), zap.Error(err))
		return err
	}
	return s.Load(ctx)
}

// Search sets the active query and returns the matching notes.
func (s *Session) Search(query string) []Note {
	s.state.Query = query
	return s.Visible()
}

// Package notebook keeps the client-side view of a note collection in sync
// with a backing source, either the notes API or a local slot file.
package notebook

import (
	"errors"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
)

// ErrContentRequired is returned when a draft carries no content after trimming.
var ErrContentRequired = errors.New("notebook: content is required")

// Note is a note as seen by the client.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State is the full client view: every known note plus the active search.
type State struct {
	Notes []Note
	Query string
}

// Visible returns the notes matching the active query.
func (s State) Visible(options MatchOptions) []Note {
	return Filter(s.Notes, s.Query, options)
}

// MatchOptions selects which fields participate in a search.
type MatchOptions struct {
	IncludeTags bool
}

// Filter returns the notes whose title, content or (optionally) tags contain
// query, compared case-insensitively after trimming. Order is preserved.
func Filter(all []Note, query string, options MatchOptions) []Note {
	needle := strings.ToLower(strings.TrimSpace(query))
	matched := make([]Note, 0, len(all))
	for _, note := range all {
		if needle == "" || matches(note, needle, options) {
			matched = append(matched, note)
		}
	}
	return matched
}

func matches(note Note, needle string, options MatchOptions) bool {
	if strings.Contains(strings.ToLower(note.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(note.Content), needle) {
		return true
	}
	if options.IncludeTags && len(note.Tags) > 0 {
		return strings.Contains(strings.ToLower(strings.Join(note.Tags, " ")), needle)
	}
	return false
}

// Draft is the editor form: an empty ID means a new note.
type Draft struct {
	ID      string
	Title   string
	Content string
	Tags    []string
}

// Payload is the body sent to a source on create and update.
type Payload struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ValidateDraft trims the draft and rejects one without content.
func ValidateDraft(draft Draft) (Draft, error) {
	draft.ID = strings.TrimSpace(draft.ID)
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Content = strings.TrimSpace(draft.Content)
	draft.Tags = notes.NormalizeTags(draft.Tags)
	if draft.Content == "" {
		return Draft{}, ErrContentRequired
	}
	return draft, nil
}

// BuildPatch converts a validated draft into a request payload.
func BuildPatch(draft Draft) Payload {
	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	return Payload{
		Title:   draft.Title,
		Content: draft.Content,
		Tags:    tags,
	}
}

// Find returns the note with id and whether it was present.
func (s State) Find(id string) (Note, bool) {
	for _, note := range s.Notes {
		if note.ID == id {
			return note, true
		}
	}
	return Note{}, false
}

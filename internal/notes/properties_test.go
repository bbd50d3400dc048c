package notes

import (
	"context"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

func titleGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9 ]{0,40}`)
}

func contentGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9 .,!?]{1,120}`)
}

func newPropertyService(t *testing.T) *Service {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "notes.json"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	service, err := NewService(ServiceConfig{Store: store, IDProvider: NewUUIDProvider()})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestCreatePropertiesFreshIDAndEqualTimestamps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		service := newPropertyService(t)
		ctx := context.Background()

		count := rapid.IntRange(1, 6).Draw(rt, "count")
		seen := make(map[string]struct{}, count)
		for index := 0; index < count; index++ {
			created, err := service.CreateNote(ctx, NewNote{
				Title:   titleGenerator().Draw(rt, "title"),
				Content: contentGenerator().Draw(rt, "content"),
			})
			if err != nil {
				rt.Fatalf("create failed: %v", err)
			}
			if _, duplicate := seen[created.ID]; duplicate {
				rt.Fatalf("id %s reused", created.ID)
			}
			seen[created.ID] = struct{}{}
			if !created.CreatedAt.Equal(created.UpdatedAt) {
				rt.Fatalf("created_at %v != updated_at %v", created.CreatedAt, created.UpdatedAt)
			}
		}

		listed, err := service.ListNotes(ctx)
		if err != nil {
			rt.Fatalf("list failed: %v", err)
		}
		if len(listed) != count {
			rt.Fatalf("expected %d notes, got %d", count, len(listed))
		}
	})
}

func TestTitleOnlyUpdatePreservesContent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		service := newPropertyService(t)
		ctx := context.Background()

		content := contentGenerator().Draw(rt, "content")
		created, err := service.CreateNote(ctx, NewNote{Content: content})
		if err != nil {
			rt.Fatalf("create failed: %v", err)
		}

		previous := created
		updates := rapid.IntRange(1, 4).Draw(rt, "updates")
		for index := 0; index < updates; index++ {
			title := titleGenerator().Draw(rt, "new_title")
			updated, err := service.UpdateNote(ctx, created.ID, Patch{Title: &title})
			if err != nil {
				rt.Fatalf("update failed: %v", err)
			}
			if updated.Content != content {
				rt.Fatalf("content changed from %q to %q", content, updated.Content)
			}
			if updated.Title != title {
				rt.Fatalf("title not applied")
			}
			if updated.UpdatedAt.Before(previous.UpdatedAt) {
				rt.Fatalf("updated_at decreased: %v -> %v", previous.UpdatedAt, updated.UpdatedAt)
			}
			if updated.UpdatedAt.Before(updated.CreatedAt) {
				rt.Fatalf("updated_at precedes created_at")
			}
			previous = updated
		}
	})
}

func TestNormalizeTagsProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.SliceOf(rapid.StringMatching(`[ a-z]{0,8}`)).Draw(rt, "tags")
		normalized := NormalizeTags(raw)
		if len(normalized) > len(raw) {
			rt.Fatalf("normalization added tags")
		}
		for _, tag := range normalized {
			if tag == "" {
				rt.Fatalf("empty tag survived normalization")
			}
			if tag[0] == ' ' || tag[len(tag)-1] == ' ' {
				rt.Fatalf("tag %q not trimmed", tag)
			}
		}
		again := NormalizeTags(normalized)
		if len(again) != len(normalized) {
			rt.Fatalf("normalization is not idempotent")
		}
	})
}

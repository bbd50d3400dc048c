package notebook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequenceIDs struct {
	next int
}

func (s *sequenceIDs) NewID() (string, error) {
	s.next++
	return "local-" + string(rune('0'+s.next)), nil
}

func newTestLocalSource(t *testing.T) (*LocalSource, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slot.json")
	clockValue := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	local, err := NewLocalSource(LocalConfig{
		Path:       path,
		IDProvider: &sequenceIDs{},
		Clock: func() time.Time {
			clockValue = clockValue.Add(time.Second)
			return clockValue
		},
	})
	require.NoError(t, err)
	return local, path
}

func readSlot(t *testing.T, path string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	slot := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(data, &slot))
	return slot
}

func TestLocalSourceRequiresPath(t *testing.T) {
	_, err := NewLocalSource(LocalConfig{})
	assert.ErrorIs(t, err, errMissingSlotPath)
}

func TestLocalSourceInsertsAtFront(t *testing.T) {
	ctx := context.Background()
	local, path := newTestLocalSource(t)

	listed, err := local.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	first, err := local.Create(ctx, Payload{Title: "one", Content: "first"})
	require.NoError(t, err)
	second, err := local.Create(ctx, Payload{Title: "two", Content: "second"})
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	listed, err = local.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids(listed))

	var persisted []Note
	require.NoError(t, json.Unmarshal(readSlot(t, path)[slotKeyNotes], &persisted))
	assert.Equal(t, []string{second.ID, first.ID}, ids(persisted))
}

func TestLocalSourceUpdateKeepsPosition(t *testing.T) {
	ctx := context.Background()
	local, _ := newTestLocalSource(t)

	first, err := local.Create(ctx, Payload{Content: "first"})
	require.NoError(t, err)
	_, err = local.Create(ctx, Payload{Content: "second"})
	require.NoError(t, err)

	updated, err := local.Update(ctx, first.ID, Payload{Title: "edited", Content: "first!", Tags: []string{" x "}})
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, []string{"x"}, updated.Tags)

	listed, err := local.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[1].ID)
	assert.Equal(t, "edited", listed[1].Title)
}

func TestLocalSourceUnknownIDs(t *testing.T) {
	ctx := context.Background()
	local, _ := newTestLocalSource(t)

	_, err := local.Update(ctx, "ghost", Payload{Content: "x"})
	assert.ErrorIs(t, err, ErrNoteNotFound)
	assert.True(t, IsNotFound(local.Delete(ctx, "ghost")))
}

func TestLocalSourceDelete(t *testing.T) {
	ctx := context.Background()
	local, _ := newTestLocalSource(t)

	doomed, err := local.Create(ctx, Payload{Content: "doomed"})
	require.NoError(t, err)
	kept, err := local.Create(ctx, Payload{Content: "kept"})
	require.NoError(t, err)

	require.NoError(t, local.Delete(ctx, doomed.ID))
	listed, err := local.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{kept.ID}, ids(listed))
}

func TestLocalSourcePreservesOtherSlotKeys(t *testing.T) {
	ctx := context.Background()
	local, path := newTestLocalSource(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark","notes":[]}`), 0o644))

	_, err := local.Create(ctx, Payload{Content: "hello"})
	require.NoError(t, err)

	slot := readSlot(t, path)
	assert.JSONEq(t, `"dark"`, string(slot["theme"]))
}

func TestLocalSourceMalformedSlot(t *testing.T) {
	ctx := context.Background()
	local, path := newTestLocalSource(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"notes":`), 0o644))

	_, err := local.List(ctx)
	assert.Error(t, err)
	_, err = local.Create(ctx, Payload{Content: "x"})
	assert.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, `{"notes":`, string(data), "malformed slot must not be rewritten")
}

func TestLocalSourceWatchReportsOutsideWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	local, path := newTestLocalSource(t)

	_, err := local.Create(ctx, Payload{Content: "mine"})
	require.NoError(t, err)

	changes, err := local.Watch(ctx)
	require.NoError(t, err)

	_, err = local.Create(ctx, Payload{Content: "also mine"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"notes":[]}`), 0o644))

	select {
	case change := <-changes:
		assert.Equal(t, OperationExternal, change.Operation)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for external change")
	}

	listed, err := local.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

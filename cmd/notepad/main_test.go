package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/notepad/internal/notebook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func createdID(t *testing.T, output string) string {
	t.Helper()
	const prefix = "Note created: "
	require.True(t, strings.HasPrefix(output, prefix), "unexpected output %q", output)
	return strings.TrimSpace(strings.TrimPrefix(output, prefix))
}

func TestCLILocalLifecycle(t *testing.T) {
	slot := filepath.Join(t.TempDir(), "slot.json")

	output, err := runCLI(t, "--local-file", slot, "list")
	require.NoError(t, err)
	assert.Equal(t, "No notes.\n", output)

	output, err = runCLI(t, "--local-file", slot, "add", "--title", "Groceries", "--content", "milk", "--tag", "home")
	require.NoError(t, err)
	first := createdID(t, output)

	output, err = runCLI(t, "--local-file", slot, "add", "--content", "call dentist")
	require.NoError(t, err)
	second := createdID(t, output)

	output, err = runCLI(t, "--local-file", slot, "list", "--json")
	require.NoError(t, err)
	var listed []notebook.Note
	require.NoError(t, json.Unmarshal([]byte(output), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, second, listed[0].ID)
	assert.Equal(t, first, listed[1].ID)

	output, err = runCLI(t, "--local-file", slot, "list", "--query", "HOME")
	require.NoError(t, err)
	assert.Contains(t, output, first)
	assert.NotContains(t, output, second)

	output, err = runCLI(t, "--local-file", slot, "--no-tags", "list", "--query", "home")
	require.NoError(t, err)
	assert.Equal(t, "No notes.\n", output)

	_, err = runCLI(t, "--local-file", slot, "edit", first, "--content", "oat milk")
	require.NoError(t, err)

	output, err = runCLI(t, "--local-file", slot, "show", first)
	require.NoError(t, err)
	assert.Contains(t, output, "Groceries")
	assert.Contains(t, output, "oat milk")
	assert.Contains(t, output, "tags: home")

	output, err = runCLI(t, "--local-file", slot, "show", second)
	require.NoError(t, err)
	assert.Contains(t, output, "Untitled")

	_, err = runCLI(t, "--local-file", slot, "delete", first)
	require.NoError(t, err)
	_, err = runCLI(t, "--local-file", slot, "show", first)
	assert.True(t, notebook.IsNotFound(err))
}

func TestCLIRejectsMissingContent(t *testing.T) {
	slot := filepath.Join(t.TempDir(), "slot.json")

	_, err := runCLI(t, "--local-file", slot, "add", "--title", "empty")
	assert.ErrorIs(t, err, notebook.ErrContentRequired)
}

func TestCLIRejectsConflictingSources(t *testing.T) {
	_, err := runCLI(t, "--local-file", "a.json", "--api-url", "http://localhost:4000/api", "list")
	assert.Error(t, err)
}

package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/triage-cli/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Load triggers lazy init
	_, err = store.Load(driven.PromptAssessorSystem)
	require.NoError(t, err)

	files := []string{
		"assessor_system.txt",
		"assessor_user.txt",
		"finalize.txt",
		"README.md",
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		_, err := os.Stat(path)
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	system, err := store.Load(driven.PromptAssessorSystem)
	require.NoError(t, err)
	assert.Contains(t, system, "NG12")

	finalize, err := store.Load(driven.PromptFinalize)
	require.NoError(t, err)
	assert.Contains(t, finalize, "Do NOT call any tools")
}

func TestPromptStore_AssessorUserPlaceholders(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	template, err := store.Load(driven.PromptAssessorUser)
	require.NoError(t, err)

	// The template must accept patient id then top_k, in that order.
	rendered := fmt.Sprintf(template, "P001", 8)
	assert.Contains(t, rendered, `"P001"`)
	assert.Contains(t, rendered, "top_k=8")
	assert.NotContains(t, rendered, "%!")
}

func TestPromptStore_Load_CustomFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Init creates the defaults; overwrite one on disk.
	_, err = store.Load(driven.PromptFinalize)
	require.NoError(t, err)
	custom := "Answer now with what you have."
	path := filepath.Join(dir, "finalize.txt")
	require.NoError(t, os.WriteFile(path, []byte(custom+"\n"), 0600))

	// Cached value persists until Reload.
	prompt, err := store.Load(driven.PromptFinalize)
	require.NoError(t, err)
	assert.NotEqual(t, custom, prompt)

	store.Reload()

	prompt, err = store.Load(driven.PromptFinalize)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("does_not_exist")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "does_not_exist"))
}

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportPath(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	assert.Equal(t, filepath.Join("backups", "entries-20240309-140506.yaml"), exportPath("backups", "yaml", at))
}

func TestExportCommand_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "backup.json")

	_, err := execute(t, "export", "--out", out, "--force")
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"about": "entries"`)
}

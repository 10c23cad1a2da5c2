package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leca/photex/internal/config"
	"github.com/leca/photex/internal/storage"
	"github.com/leca/photex/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTagsCommand(t *testing.T) {
	out, err := run(t, "tags")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 19)
	assert.Contains(t, out, "271")
	assert.Contains(t, out, "0x8825")
}

func TestInspectCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, testutil.JPEG(t, 8, 8), 0o600))

	out, err := run(t, "inspect", path)
	require.NoError(t, err)

	var decoded struct {
		Metadata map[string]map[string]string `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded.Metadata, "JFIF")
}

func TestInspectCommand_NotJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	_, err := run(t, "inspect", path)
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	cfg := &config.Config{StorageBackend: config.BackendFilesystem, StoragePath: t.TempDir()}
	store, err := openStore(t.Context(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.FileSystem{}, store)
	require.NoError(t, store.Close())

	cfg = &config.Config{StorageBackend: config.BackendBadger, StoragePath: t.TempDir()}
	store, err = openStore(t.Context(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &storage.Badger{}, store)
	require.NoError(t, store.Close())
}

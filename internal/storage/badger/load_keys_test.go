package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	db := newTestDB(t)
	logger := arbor.NewLogger()
	return &Manager{
		db:     db,
		kv:     NewKVStorage(db, logger),
		logger: logger,
	}
}

func TestParseKeyFile_WithSections(t *testing.T) {
	tmpDir := t.TempDir()

	testTOML := `[gemini_api_key]
value = "AIzaSyABC123TestKey"
description = "Gemini API key"

[anthropic_api_key]
value = "sk-ant-xyz789TestKey"
description = "Claude API key"

[company_name]
value = "Acme Corp"
description = "Display name for the chat widget"
`

	testFile := filepath.Join(tmpDir, "test-keys.toml")
	err := os.WriteFile(testFile, []byte(testTOML), 0644)
	require.NoError(t, err)

	sections, err := parseKeyFile(testFile)
	require.NoError(t, err)
	assert.Len(t, sections, 3)

	geminiKey, ok := sections["gemini_api_key"]
	require.True(t, ok, "gemini_api_key section should exist")
	assert.Equal(t, "AIzaSyABC123TestKey", geminiKey.Value)
	assert.Equal(t, "Gemini API key", geminiKey.Description)

	anthropicKey, ok := sections["anthropic_api_key"]
	require.True(t, ok, "anthropic_api_key section should exist")
	assert.Equal(t, "sk-ant-xyz789TestKey", anthropicKey.Value)
	assert.Equal(t, "Claude API key", anthropicKey.Description)

	companyName, ok := sections["company_name"]
	require.True(t, ok, "company_name section should exist")
	assert.Equal(t, "Acme Corp", companyName.Value)
	assert.Equal(t, "Display name for the chat widget", companyName.Description)
}

func TestLoadKeysFromFiles_StoresInKV(t *testing.T) {
	tmpDir := t.TempDir()

	testTOML := `[test-key-1]
value = "secret-value-1"
description = "Test key 1"

[test-key-2]
value = "secret-value-2"
description = "Test key 2"

[test-key-3]
value = "secret-value-3"
description = "Test key 3"
`

	testFile := filepath.Join(tmpDir, "test-keys.toml")
	err := os.WriteFile(testFile, []byte(testTOML), 0644)
	require.NoError(t, err)

	mgr := newTestManager(t)

	err = mgr.LoadKeysFromFiles(context.Background(), tmpDir)
	require.NoError(t, err)

	key1, err := mgr.kv.Get(context.Background(), "test-key-1")
	require.NoError(t, err)
	assert.Equal(t, "secret-value-1", key1)

	key2, err := mgr.kv.Get(context.Background(), "test-key-2")
	require.NoError(t, err)
	assert.Equal(t, "secret-value-2", key2)

	key3, err := mgr.kv.Get(context.Background(), "test-key-3")
	require.NoError(t, err)
	assert.Equal(t, "secret-value-3", key3)

	// Verify description metadata
	entries, err := mgr.kv.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	var found1, found2, found3 bool
	for _, entry := range entries {
		if entry.Key == "test-key-1" {
			assert.Equal(t, "Test key 1", entry.Description)
			found1 = true
		}
		if entry.Key == "test-key-2" {
			assert.Equal(t, "Test key 2", entry.Description)
			found2 = true
		}
		if entry.Key == "test-key-3" {
			assert.Equal(t, "Test key 3", entry.Description)
			found3 = true
		}
	}
	assert.True(t, found1, "test-key-1 should exist in KV store")
	assert.True(t, found2, "test-key-2 should exist in KV store")
	assert.True(t, found3, "test-key-3 should exist in KV store")
}

func TestLoadKeysFromFiles_DirectoryNotFound(t *testing.T) {
	mgr := newTestManager(t)

	// Keys on disk are optional, so a missing directory is not an error
	err := mgr.LoadKeysFromFiles(context.Background(), "/nonexistent/directory/path")
	require.NoError(t, err)

	entries, err := mgr.kv.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 0, "No keys should be stored when directory doesn't exist")
}

func TestLoadKeysFromFiles_SkipsNonTOML(t *testing.T) {
	tmpDir := t.TempDir()

	tomlContent := `[valid-key]
value = "valid-value"
description = "Valid key from TOML"
`
	err := os.WriteFile(filepath.Join(tmpDir, "keys.toml"), []byte(tomlContent), 0644)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(tmpDir, "readme.txt"), []byte("This is a text file"), 0644)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{"key": "value"}`), 0644)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(tmpDir, "docs.md"), []byte("# Documentation"), 0644)
	require.NoError(t, err)

	mgr := newTestManager(t)

	err = mgr.LoadKeysFromFiles(context.Background(), tmpDir)
	require.NoError(t, err)

	entries, err := mgr.kv.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1, "Only TOML file should be processed")

	assert.Equal(t, "valid-key", entries[0].Key)
	assert.Equal(t, "valid-value", entries[0].Value)
	assert.Equal(t, "Valid key from TOML", entries[0].Description)
}

func TestLoadKeysFromFiles_LaterFileWins(t *testing.T) {
	tmpDir := t.TempDir()

	// ReadDir processes files in name order, so z-keys.toml loads after
	// a-keys.toml and its value should win. Section name case must not
	// create a second key.
	err := os.WriteFile(filepath.Join(tmpDir, "a-keys.toml"), []byte(`[Gemini_API_Key]
value = "from-first-file"
`), 0644)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(tmpDir, "z-keys.toml"), []byte(`[gemini_api_key]
value = "from-second-file"
`), 0644)
	require.NoError(t, err)

	mgr := newTestManager(t)

	err = mgr.LoadKeysFromFiles(context.Background(), tmpDir)
	require.NoError(t, err)

	value, err := mgr.kv.Get(context.Background(), "gemini_api_key")
	require.NoError(t, err)
	assert.Equal(t, "from-second-file", value)

	entries, err := mgr.kv.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "Colliding section names should resolve to one key")
}

func TestLoadKeysFromFiles_SkipsSectionsWithoutValue(t *testing.T) {
	tmpDir := t.TempDir()

	testTOML := `[good-key]
value = "present"

[bad-key]
description = "No value here"
`
	err := os.WriteFile(filepath.Join(tmpDir, "keys.toml"), []byte(testTOML), 0644)
	require.NoError(t, err)

	mgr := newTestManager(t)

	err = mgr.LoadKeysFromFiles(context.Background(), tmpDir)
	require.NoError(t, err)

	value, err := mgr.kv.Get(context.Background(), "good-key")
	require.NoError(t, err)
	assert.Equal(t, "present", value)

	entries, err := mgr.kv.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "Section without a value should be skipped")
}

func TestLoadKeysFromFiles_DefaultDescription(t *testing.T) {
	tmpDir := t.TempDir()

	err := os.WriteFile(filepath.Join(tmpDir, "keys.toml"), []byte(`[bare-key]
value = "just-a-value"
`), 0644)
	require.NoError(t, err)

	mgr := newTestManager(t)

	err = mgr.LoadKeysFromFiles(context.Background(), tmpDir)
	require.NoError(t, err)

	entries, err := mgr.kv.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Loaded from file", entries[0].Description)
}

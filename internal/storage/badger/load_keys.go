// -----------------------------------------------------------------------
// Key/value seeding - loads API keys and secrets from TOML files
// -----------------------------------------------------------------------
//
// Each *.toml file in the keys directory holds one or more sections:
//
//   [anthropic_api_key]
//   value = "sk-ant-..."
//   description = "Claude API key"
//
// Section names become KV store keys and feed {key-name} replacement in
// configuration values.

package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// keyFileSection is one [section] in a keys TOML file
type keyFileSection struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// LoadKeysFromFiles seeds the KV store from TOML files in dir. Later files
// override earlier ones when section names collide (case-insensitive). A
// missing directory is not an error; keys on disk are optional.
func (m *Manager) LoadKeysFromFiles(ctx context.Context, dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		m.logger.Debug().Str("path", dirPath).Msg("Keys directory not found, skipping file loading")
		return nil
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read keys directory: %w", err)
	}

	loaded := 0
	skipped := 0
	seen := make(map[string]string) // normalized key -> source file

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}

		sections, err := parseKeyFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			m.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to load keys file")
			skipped++
			continue
		}

		for name, section := range sections {
			if name == "" || section.Value == "" {
				m.logger.Warn().Str("file", entry.Name()).Str("section", name).Msg("Keys file section missing value, skipping")
				skipped++
				continue
			}

			normalized := strings.ToLower(strings.TrimSpace(name))
			if prev, ok := seen[normalized]; ok {
				m.logger.Warn().
					Str("key", name).
					Str("file", entry.Name()).
					Str("previous_file", prev).
					Msg("Duplicate key in keys files, later file wins")
			}

			description := section.Description
			if description == "" {
				description = "Loaded from file"
			}

			created, err := m.kv.Upsert(ctx, name, section.Value, description)
			if err != nil {
				m.logger.Error().Err(err).Str("file", entry.Name()).Str("key", name).Msg("Failed to store key/value pair")
				skipped++
				continue
			}

			seen[normalized] = entry.Name()
			if created {
				m.logger.Info().Str("key", name).Str("file", entry.Name()).Msg("Created key/value pair from file")
			} else {
				m.logger.Info().Str("key", name).Str("file", entry.Name()).Msg("Updated key/value pair from file")
			}
			loaded++
		}
	}

	m.logger.Info().
		Int("loaded", loaded).
		Int("skipped", skipped).
		Str("dir", dirPath).
		Msg("Finished loading key/value pairs from files")

	return nil
}

// parseKeyFile reads one TOML keys file into its named sections
func parseKeyFile(path string) (map[string]*keyFileSection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sections map[string]*keyFileSection
	if err := toml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return sections, nil
}

package badger

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// VariableFile represents one variable in a TOML file:
//
//	[eodhd_api_key]
//	value = "..."
//	description = "optional description"
type VariableFile struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// LoadVariablesFromFile loads API keys and {key} substitutions from a TOML
// file into KV storage. A missing file is not an error.
func (m *Manager) LoadVariablesFromFile(ctx context.Context, filePath string) (loaded int, err error) {
	content, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		m.logger.Debug().Str("file", filePath).Msg("Variables file not found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var variables map[string]VariableFile
	if err := toml.Unmarshal(content, &variables); err != nil {
		return 0, err
	}

	fileName := filepath.Base(filePath)
	for key, variable := range variables {
		if variable.Value == "" {
			m.logger.Warn().Str("file", fileName).Str("key", key).Msg("Skipping variable with empty value")
			continue
		}

		description := variable.Description
		if description == "" {
			description = "Loaded from " + fileName
		}

		if err := m.kv.Set(ctx, key, variable.Value, description); err != nil {
			m.logger.Error().Err(err).Str("key", key).Msg("Failed to store variable")
			continue
		}
		loaded++
	}

	m.logger.Debug().Str("file", fileName).Int("loaded", loaded).Msg("Loaded variables")
	return loaded, nil
}

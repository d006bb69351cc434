package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings mirrors config.yaml. Every field is optional; empty values fall
// back to the environment-derived defaults.
type Settings struct {
	WorkspaceDir string `yaml:"workspace_dir"`
	LegacyDir    string `yaml:"legacy_dir"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	Journal      *bool  `yaml:"journal"`
}

// LoadSettings reads the settings file at path. A missing file is not an
// error and yields the defaults.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	if path == "" {
		path = GetSettingsPath()
	}

	//nolint:gosec // G304: settings path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.withDefaults(), nil
		}
		return Settings{}, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return s.withDefaults(), nil
}

// JournalEnabled reports whether operations should be recorded.
func (s Settings) JournalEnabled() bool {
	return s.Journal == nil || *s.Journal
}

func (s Settings) withDefaults() Settings {
	if s.WorkspaceDir == "" {
		s.WorkspaceDir = GetWorkspaceDir()
	}
	if s.LegacyDir == "" {
		if os.Getenv("WSCTL_LEGACY_DIR") != "" {
			s.LegacyDir = GetLegacyDir()
		} else {
			s.LegacyDir = s.WorkspaceDir
		}
	}
	if env := os.Getenv("WSCTL_LOG_LEVEL"); env != "" {
		s.LogLevel = env
	}
	if s.LogLevel == "" {
		s.LogLevel = "warn"
	}
	if s.LogFormat == "" {
		s.LogFormat = "text"
	}
	return s
}

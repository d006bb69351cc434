// Package config resolves where wsctl keeps its workspace tree and loads the
// optional user settings file.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appName = "wsctl"

// GetWorkspaceDir resolves the base directory for the registry and every
// profile tree. WSCTL_DIR wins, then the XDG data home, and finally the user's
// home directory.
func GetWorkspaceDir() string {
	if explicit := os.Getenv("WSCTL_DIR"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), appName)
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, appName)
}

// GetLegacyDir returns the directory holding a pre-profile flat layout. Older
// installs kept their cache files directly in the workspace directory, so that
// is the default.
func GetLegacyDir() string {
	if explicit := os.Getenv("WSCTL_LEGACY_DIR"); explicit != "" {
		return explicit
	}
	return GetWorkspaceDir()
}

// GetJournalPath returns the absolute path to the SQLite operation journal.
func GetJournalPath() string {
	return filepath.Join(GetWorkspaceDir(), "journal.db")
}

// GetSettingsPath returns the location of the optional YAML settings file.
func GetSettingsPath() string {
	if explicit := os.Getenv("WSCTL_CONFIG"); explicit != "" {
		return explicit
	}

	xdg.Reload()

	configHome := xdg.ConfigHome
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), appName, "config.yaml")
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, "config.yaml")
}

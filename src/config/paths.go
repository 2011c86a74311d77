package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under every XDG base directory.
const AppName = "mydrawer"

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	LogPath      string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// Conversations are state, not configuration
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, AppName, AppName+".db"),
		LogPath:      filepath.Join(xdg.StateHome, AppName, AppName+".log"),
	}
}

// GetUserConfigPath returns the per-user config file path
func GetUserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.json")
}

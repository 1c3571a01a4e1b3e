package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application state
type StoragePaths struct {
	DatabasePath string
	LogDir       string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// XDG_STATE_HOME holds data that should persist between restarts
	// but is not important enough for XDG_DATA_HOME
	base := filepath.Join(xdg.StateHome, "gemchat")

	return StoragePaths{
		DatabasePath: filepath.Join(base, "archive.db"),
		LogDir:       filepath.Join(base, "logs"),
	}
}

package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// GetAppsmithStateHome returns a directory path for storing user-specific
// appsmith state data (logs etc). If needed, it also creates the necessary
// directories for storing state data according to the XDG spec. Can be
// overridden by setting the SMITH_STATE_HOME environment variable.
func GetAppsmithStateHome() (string, error) {
	stateDir := os.Getenv("SMITH_STATE_HOME")
	if stateDir != "" {
		err := os.MkdirAll(stateDir, 0755)
		if err != nil {
			return "", fmt.Errorf("failed to create appsmith state directory from SMITH_STATE_HOME: %w", err)
		}
		return stateDir, nil
	}

	stateDir = filepath.Join(xdg.StateHome, "appsmith")
	err := os.MkdirAll(stateDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create appsmith state directory: %w", err)
	}
	return stateDir, nil
}

// GetAppsmithConfigHome returns the directory appsmith reads its optional
// local configuration file from. Can be overridden by setting the
// SMITH_CONFIG_HOME environment variable.
func GetAppsmithConfigHome() (string, error) {
	configDir := os.Getenv("SMITH_CONFIG_HOME")
	if configDir != "" {
		return configDir, nil
	}

	configDir = filepath.Join(xdg.ConfigHome, "appsmith")
	err := os.MkdirAll(configDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create appsmith config directory: %w", err)
	}
	return configDir, nil
}

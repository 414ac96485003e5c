package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.gujimcp/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".gujimcp", "logs")
	}
	return filepath.Join(home, ".gujimcp", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

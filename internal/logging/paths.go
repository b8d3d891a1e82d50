package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.qmdsync/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".qmdsync", "logs")
	}
	return filepath.Join(home, ".qmdsync", "logs")
}

// DefaultLogPath returns the default sync log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "sync.log")
}

// FindLogFile resolves the log file to view: explicit if given, otherwise
// the default path. Returns an error if the file does not exist.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("no log file found. Run 'qmdsync serve' or any command with --debug first.\nExpected at: %s", path)
}

package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.amansearch/logs, or a directory under the
// system temp dir when there is no home directory.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amansearch", "logs")
	}
	return filepath.Join(home, ".amansearch", "logs")
}

// DefaultLogPath returns the CLI log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "amansearch.log")
}

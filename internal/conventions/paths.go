package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default planner data directory name (relative to home).
	DefaultDataDir = ".hte-planner"
	// DBFile is the SQLite database filename.
	DBFile = "planner.db"
	// ConfigFile is the optional configuration filename.
	ConfigFile = "config.yaml"
)

// DBPath returns the database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// ConfigPath returns the configuration path inside a data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFile)
}

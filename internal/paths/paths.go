// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DirName is the data directory created next to the working directory.
const DirName = ".clanbot"

// File names inside the data directory.
const (
	DatabaseFile = "clanbot.db"
	StateFile    = "state.json"
	LogDir       = "logs"
	TracesFile   = "traces.jsonl"
	RedirectFile = "redirect"
	ConfigFile   = "config.yaml"
)

// ResolveDataDir resolves the bot's data directory from user input.
//
// Input normalization:
//   - "/srv/bot" -> "/srv/bot/.clanbot"
//   - "/srv/bot/.clanbot" -> "/srv/bot/.clanbot"
//   - "/srv/data" (containing clanbot.db) -> "/srv/data"
//   - "" -> "./.clanbot"
//
// A redirect file inside the directory points at the real location, so
// several checkouts can share one database.
func ResolveDataDir(path string) string {
	if path == "" {
		path = "."
	}
	path = filepath.Clean(path)

	if filepath.Base(path) == DirName {
		return followRedirect(path)
	}

	if _, err := os.Stat(filepath.Join(path, DatabaseFile)); err == nil {
		return followRedirect(path)
	}

	return followRedirect(filepath.Join(path, DirName))
}

func followRedirect(dir string) string {
	content, err := os.ReadFile(filepath.Join(dir, RedirectFile)) //nolint:gosec // redirect path is within the data dir
	if err != nil {
		return dir
	}

	target := strings.TrimSpace(string(content))
	if target == "" {
		return dir
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(dir, target))
}

// DatabasePath returns the sqlite file under dataDir.
func DatabasePath(dataDir string) string { return filepath.Join(dataDir, DatabaseFile) }

// StatePath returns the state file under dataDir.
func StatePath(dataDir string) string { return filepath.Join(dataDir, StateFile) }

// LogsPath returns the daily log directory under dataDir.
func LogsPath(dataDir string) string { return filepath.Join(dataDir, LogDir) }

// TracesPath returns the trace export file under dataDir.
func TracesPath(dataDir string) string { return filepath.Join(dataDir, "traces", TracesFile) }

// UserConfigPath returns ~/.config/clanbot/config.yaml, or "" without a
// home directory.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "clanbot", ConfigFile)
}

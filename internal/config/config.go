// Package config resolves runtime configuration from viper and expands
// filesystem paths.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when a key is absent from the config file, environment
// and flags.
const (
	DefaultDataDir     = "~/.local/share/kitscan"
	DefaultHistoryPath = "~/.local/share/kitscan/history.db"
	DefaultSettleDelay = 300 * time.Millisecond
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Settings is the resolved runtime configuration for one command run.
type Settings struct {
	DataDir        string
	HistoryPath    string
	LogLevel       string
	LogFormat      string
	SettleDelay    time.Duration
	HistoryEnabled bool
	ReviewEnabled  bool
	DryRun         bool
}

// SetDefaults registers every known key's default on the global viper.
// Called before the config file is read so bool and duration keys resolve
// correctly when absent.
func SetDefaults() {
	viper.SetDefault("storage.data_dir", DefaultDataDir)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", DefaultHistoryPath)
	viper.SetDefault("checkout.review", true)
	viper.SetDefault("scanner.settle_delay", DefaultSettleDelay)
	viper.SetDefault("logging.level", DefaultLogLevel)
	viper.SetDefault("logging.format", DefaultLogFormat)
}

// Load resolves settings from the global viper state. Paths come back
// expanded.
func Load() Settings {
	settle := viper.GetDuration("scanner.settle_delay")
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	return Settings{
		DataDir:        ExpandPath(viper.GetString("storage.data_dir")),
		HistoryPath:    ExpandPath(viper.GetString("history.path")),
		LogLevel:       viper.GetString("logging.level"),
		LogFormat:      viper.GetString("logging.format"),
		SettleDelay:    settle,
		HistoryEnabled: viper.GetBool("history.enabled"),
		ReviewEnabled:  viper.GetBool("checkout.review"),
		DryRun:         viper.GetBool("dry_run"),
	}
}

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

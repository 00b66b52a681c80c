package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

func homeDirOrFallback() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Config holds all user-configurable settings.
type Config struct {
	// DataDir holds the catalog file and temporary archives.
	DataDir string `json:"data_dir"`
	// ContentDir is where installed games are extracted, one directory per record.
	ContentDir string `json:"content_dir"`
	// CacheDir holds downloaded screenshots.
	CacheDir string `json:"cache_dir"`
	// CatalogURL points to the gzipped catalog file.
	CatalogURL string `json:"catalog_url"`
	// ScreenshotURL is the base URL that screenshot paths from the catalog are appended to.
	ScreenshotURL string `json:"screenshot_url"`
	// ArchiveURL is the base URL that archive paths from the catalog are appended to.
	ArchiveURL string `json:"archive_url"`
	// CatalogEncoding is the character set label of the catalog file.
	CatalogEncoding string `json:"catalog_encoding"`
	// MaxConcurrentFetches is how many screenshots are fetched in parallel.
	MaxConcurrentFetches int `json:"max_concurrent_fetches"`
	// RequestsPerSecond rate-limits HTTP requests.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	home := homeDirOrFallback()
	data := filepath.Join(home, ".local", "share", "gamebase")
	return &Config{
		DataDir:              data,
		ContentDir:           filepath.Join(data, "games"),
		CacheDir:             filepath.Join(home, ".cache", "gamebase"),
		CatalogURL:           "http://badda.de/vice3ds/gb64/gb64.db.gz",
		ScreenshotURL:        "http://www.gb64.com/Screenshots/",
		ArchiveURL:           "http://badda.de/vice3ds/gb64/index.php/",
		CatalogEncoding:      "iso-8859-1",
		MaxConcurrentFetches: 2,
		RequestsPerSecond:    5.0,
	}
}

// ConfigDir returns the directory where config and state files are stored.
func ConfigDir() string {
	if dir := os.Getenv("GAMEBASE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home := homeDirOrFallback()
	return filepath.Join(home, ".config", "gamebase")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// SettingsPath returns the path to the SQLite settings database.
func SettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.db")
}

// LogPath returns the path of the log file written while the TUI is running.
func LogPath() string {
	return filepath.Join(ConfigDir(), "gamebase.log")
}

// CatalogPath returns the path of the local catalog file.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "gb64.db")
}

// Load reads config from disk, returning defaults if the file doesn't exist.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Save(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentFetches < 1 {
		cfg.MaxConcurrentFetches = 1
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}

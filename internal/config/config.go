package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the name of both the global (~/.reqtab) and repo (.reqtab) config directories.
const DirName = ".reqtab"

// Config holds application configuration.
type Config struct {
	// MaxTabs is the maximum number of tabs that may be open at once.
	MaxTabs int `json:"max_tabs"`

	// SaveDebounceMs coalesces session snapshot writes. Negative disables automatic writes.
	SaveDebounceMs int `json:"save_debounce_ms"`

	// DefaultTimeoutMs is given to requests created without a timeout and applies
	// when a draft with no timeout runs.
	DefaultTimeoutMs int `json:"default_timeout_ms"`

	// TabNameMaxChars is the display width tab names are truncated to in listings.
	TabNameMaxChars int `json:"tab_name_max_chars"`

	// ExecRateLimitRPS caps outgoing request executions per second. 0 means unlimited.
	ExecRateLimitRPS float64 `json:"exec_rate_limit_rps,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "tab", "request", "collection", "session".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// LogLevel is one of trace, debug, info, warn, error. Empty means info.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "console" or "json". Empty means console.
	LogFormat string `json:"log_format,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxTabs:          20,
		SaveDebounceMs:   300,
		DefaultTimeoutMs: 30000,
		TabNameMaxChars:  24,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.reqtab.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.reqtab) and repo (.reqtab) directories.
// Repo config is found by walking upward from startDir to find the nearest .reqtab/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	// The global directory is itself a ".reqtab" dir; don't apply it twice.
	if repoConfigPath == filepath.Join(globalDir, "config.json") {
		repoConfigPath = ""
	}
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .reqtab/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.MaxTabs = pickInt(overlay.MaxTabs, base.MaxTabs)
	result.SaveDebounceMs = pickInt(overlay.SaveDebounceMs, base.SaveDebounceMs)
	result.DefaultTimeoutMs = pickInt(overlay.DefaultTimeoutMs, base.DefaultTimeoutMs)
	result.TabNameMaxChars = pickInt(overlay.TabNameMaxChars, base.TabNameMaxChars)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.ExecRateLimitRPS = overlay.ExecRateLimitRPS
	if result.ExecRateLimitRPS == 0 {
		result.ExecRateLimitRPS = base.ExecRateLimitRPS
	}

	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if s := strings.TrimSpace(overlay); s != "" {
		return s
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

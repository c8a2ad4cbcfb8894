package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"plexhush/internal/library"
	"plexhush/internal/policy"
)

//go:embed sample_config.toml
var sampleConfig string

// Sentinel errors carried by Load so the CLI can map failures to distinct
// exit codes.
var (
	// ErrNotFound means no configuration file exists at any known location.
	ErrNotFound = errors.New("config file not found")
	// ErrInvalid means the file exists but could not be parsed or holds
	// out-of-range values.
	ErrInvalid = errors.New("config invalid")
	// ErrMissingSetting means a required setting is absent or still carries
	// its sample placeholder value.
	ErrMissingSetting = errors.New("required setting missing")
)

// Plex contains server connection settings.
type Plex struct {
	URL       string   `toml:"url"`
	Token     string   `toml:"token"`
	ClientID  string   `toml:"client_identifier"`
	Libraries []string `toml:"libraries"`
}

// Hide controls which fields are hidden and how hidden fields are marked.
type Hide struct {
	Summaries  bool `toml:"summaries"`
	Titles     bool `toml:"titles"`
	Thumbnails bool `toml:"thumbnails"`

	SummaryMarker    string `toml:"hidden_summary_marker"`
	TitleMarker      string `toml:"hidden_title_marker"`
	InProgressMarker string `toml:"in_progress_marker"`

	LockEditedFields bool `toml:"lock_edited_fields"`

	// IgnoredItems lists show names and movie titles that are never hidden,
	// matched case-insensitively.
	IgnoredItems []string `toml:"ignored_items"`
}

// Run contains timing and persistence settings for a maintenance run.
type Run struct {
	QuiescenceSeconds float64 `toml:"quiescence_seconds"`
	MaxQuiesceSeconds float64 `toml:"max_quiesce_seconds"`
	RetryRounds       int     `toml:"retry_rounds"`
	CachePath         string  `toml:"cache_path"`
	LockPath          string  `toml:"lock_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for plexhush.
type Config struct {
	Plex          Plex          `toml:"plex"`
	Hide          Hide          `toml:"hide"`
	Run           Run           `toml:"run"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`

	// Warnings collects non-fatal findings from Load (unknown keys, likely
	// typos) for the CLI to surface once a logger exists.
	Warnings []string `toml:"-"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/plexhush/config.toml")
}

// Load locates, parses, and validates a configuration file. path may be empty
// to search the default locations. The returned path names the file that was
// read.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if !exists {
		return nil, resolvedPath, fmt.Errorf("%w: %s (create with 'plexhush config init')", ErrNotFound, resolvedPath)
	}

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("read config: %w", err)
	}

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if !errors.As(err, &strict) {
			return nil, "", fmt.Errorf("%w: parse %s: %v", ErrInvalid, resolvedPath, err)
		}
		// Unknown keys are warnings, not failures: a misspelled option must
		// not silently disable a scheduled run, but an old config with extra
		// keys should still work.
		cfg = Default()
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", fmt.Errorf("%w: parse %s: %v", ErrInvalid, resolvedPath, err)
		}
		for _, derr := range strict.Errors {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown config key %q", strings.Join(derr.Key(), ".")))
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, resolvedPath, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("plexhush.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// Markers returns the hidden-field sentinel strings.
func (c *Config) Markers() library.Markers {
	return library.Markers{
		Summary:    c.Hide.SummaryMarker,
		Title:      c.Hide.TitleMarker,
		InProgress: c.Hide.InProgressMarker,
	}
}

// Policy builds the evaluation policy from the hide settings.
func (c *Config) Policy() policy.Policy {
	return policy.Policy{
		HideSummaries:    c.Hide.Summaries,
		HideTitles:       c.Hide.Titles,
		HideThumbnails:   c.Hide.Thumbnails,
		Markers:          c.Markers(),
		ExemptNames:      policy.NewExemptSet(c.Hide.IgnoredItems),
		LockEditedFields: c.Hide.LockEditedFields,
	}
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

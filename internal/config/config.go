package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/bethropolis/proofsync/internal/logger"
)

// Config holds the application's combined configuration.
type Config struct {
	Logger      logger.Config     `toml:"logger"`
	Session     SessionConfig     `toml:"session"`
	Annotations AnnotationsConfig `toml:"annotations"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Editor      EditorConfig      `toml:"editor"`

	// Undecoded lists keys in the file that matched no field. The logger is
	// not running while the file is read, so callers report these later.
	Undecoded []string `toml:"-"`
}

// SessionConfig tunes the prover connection.
type SessionConfig struct {
	// InputDelay is the flush debounce used when the backend supplies none.
	InputDelay time.Duration `toml:"input_delay"`
	// StepDelay is the local backend's processing tick.
	StepDelay time.Duration `toml:"step_delay"`
}

// AnnotationsConfig controls how analysis results are shown.
type AnnotationsConfig struct {
	// Markers routes messages to the persistent marker store instead of
	// inline decorations.
	Markers bool `toml:"markers"`
	// MarkerStore is the badger directory. Empty keeps markers in memory.
	MarkerStore string `toml:"marker_store"`
	// ThemeFile is a TOML file of decoration styles.
	ThemeFile string `toml:"theme_file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the HTTP address. Empty disables the endpoint.
	Listen string `toml:"listen"`
}

// EditorConfig holds terminal editor settings.
type EditorConfig struct {
	TabWidth        int  `toml:"tab_width"`
	ScrollOff       int  `toml:"scroll_off"`
	SystemClipboard bool `toml:"system_clipboard"`
	StatusBarHeight int  `toml:"status_bar_height"`
}

var (
	loadedConfig *Config
	loadOnce     sync.Once
	loadErr      error
)

// NewDefaultConfig creates a Config struct with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Logger: logger.NewConfig(),
		Session: SessionConfig{
			InputDelay: DefaultInputDelay,
			StepDelay:  DefaultStepDelay,
		},
		Editor: EditorConfig{
			TabWidth:        DefaultTabWidth,
			ScrollOff:       DefaultScrollOff,
			SystemClipboard: SystemClipboard,
			StatusBarHeight: StatusBarHeight,
		},
	}
}

// DefaultPath is the config file used when none is given, or "" when the
// user config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ConfigDirName, DefaultConfigFileName)
}

// loadFromFile decodes filePath over cfg. A missing file is not an error.
func loadFromFile(cfg *Config, filePath string) error {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error checking config file '%s': %w", filePath, err)
	}
	metadata, err := toml.DecodeFile(filePath, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", filePath, err)
	}
	for _, key := range metadata.Undecoded() {
		cfg.Undecoded = append(cfg.Undecoded, key.String())
	}
	return nil
}

// validate resets invalid values to defaults.
func (c *Config) validate() {
	defaults := NewDefaultConfig()

	if c.Editor.TabWidth <= 0 {
		c.Editor.TabWidth = defaults.Editor.TabWidth
	}
	if c.Editor.ScrollOff < 0 {
		c.Editor.ScrollOff = defaults.Editor.ScrollOff
	}
	if c.Editor.StatusBarHeight <= 0 {
		c.Editor.StatusBarHeight = defaults.Editor.StatusBarHeight
	}
	if c.Logger.LogLevel == "" {
		c.Logger.LogLevel = defaults.Logger.LogLevel
	}
	if c.Session.InputDelay < 0 {
		c.Session.InputDelay = defaults.Session.InputDelay
	}
	if c.Session.StepDelay <= 0 {
		c.Session.StepDelay = defaults.Session.StepDelay
	}
	c.Annotations.MarkerStore = expandHome(c.Annotations.MarkerStore)
	c.Annotations.ThemeFile = expandHome(c.Annotations.ThemeFile)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// Load builds a configuration from defaults, the file at path (or the
// default location when path is empty) and flag overrides.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		path = DefaultPath()
	}
	var err error
	if path != "" {
		err = loadFromFile(cfg, path)
	}
	if flags != nil {
		flags.ApplyOverrides(cfg)
	}
	cfg.validate()
	return cfg, err
}

// LoadConfig runs Load once for the process. The configuration is usable
// even when an error is returned.
func LoadConfig(configFilePath string, flags *Flags) (*Config, error) {
	loadOnce.Do(func() {
		loadedConfig, loadErr = Load(configFilePath, flags)
	})
	return loadedConfig, loadErr
}

// Get returns the loaded application configuration. Panics if LoadConfig wasn't called.
func Get() *Config {
	if loadedConfig == nil {
		panic("config.Get() called before config.LoadConfig()")
	}
	return loadedConfig
}

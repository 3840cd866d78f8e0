package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/angelospk/subdivx-dl/internal/constants"
)

// Configuration keys.
const (
	KeyLocation     = "location"
	KeySeason       = "season"
	KeyNoRename     = "no_rename"
	KeyFast         = "fast"
	KeyOrderBy      = "order_by"
	KeyLines        = "lines"
	KeyComments     = "comments"
	KeyLayout       = "layout"
	KeyStyle        = "style"
	KeyDisableHelp  = "disable_help"
	KeyNoExit       = "no_exit"
	KeyNewSession   = "new_session"
	KeyUserAgent    = "user_agent"
	KeyLanguageCode = "language_code"
	KeyVerbose      = "verbose"

	KeySearchAttempts = "search_attempts"
	KeySearchBackoff  = "search_backoff"
	KeyMirrorCount    = "mirror_count"
	KeySessionTTL     = "session_ttl"
	KeyCommentTTL     = "comment_ttl"
	KeyHTTPTimeout    = "http_timeout"
	KeyBaseURL        = "base_url"
)

// EnvPrefix prefixes every environment override (SUBDIVX_LOCATION, ...).
const EnvPrefix = "SUBDIVX"

// Layouts of the results table.
const (
	LayoutDefault     = ""
	LayoutMinimal     = "minimal"
	LayoutCompact     = "compact"
	LayoutAlternative = "alternative"
)

// Config holds the effective options of one run.
type Config struct {
	Location     string `mapstructure:"location" json:"location,omitempty"`
	Season       bool   `mapstructure:"season" json:"season,omitempty"`
	NoRename     bool   `mapstructure:"no_rename" json:"no_rename,omitempty"`
	Fast         bool   `mapstructure:"fast" json:"fast,omitempty"`
	OrderBy      string `mapstructure:"order_by" json:"order_by,omitempty"`
	Lines        int    `mapstructure:"lines" json:"lines,omitempty"`
	Comments     bool   `mapstructure:"comments" json:"comments,omitempty"`
	Layout       string `mapstructure:"layout" json:"layout,omitempty"`
	Style        string `mapstructure:"style" json:"style,omitempty"`
	DisableHelp  bool   `mapstructure:"disable_help" json:"disable_help,omitempty"`
	NoExit       bool   `mapstructure:"no_exit" json:"no_exit,omitempty"`
	NewSession   bool   `mapstructure:"new_session" json:"-"`
	UserAgent    string `mapstructure:"user_agent" json:"user_agent,omitempty"`
	LanguageCode string `mapstructure:"language_code" json:"language_code,omitempty"`
	Verbose      bool   `mapstructure:"verbose" json:"-"`

	SearchAttempts int           `mapstructure:"search_attempts" json:"-"`
	SearchBackoff  time.Duration `mapstructure:"search_backoff" json:"-"`
	MirrorCount    int           `mapstructure:"mirror_count" json:"-"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" json:"-"`
	CommentTTL     time.Duration `mapstructure:"comment_ttl" json:"-"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout" json:"-"`
	BaseURL        string        `mapstructure:"base_url" json:"-"`
}

// SetDefaults registers the default of every key on v and enables
// environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLocation, ".")
	v.SetDefault(KeySeason, false)
	v.SetDefault(KeyNoRename, false)
	v.SetDefault(KeyFast, false)
	v.SetDefault(KeyOrderBy, "")
	v.SetDefault(KeyLines, 0)
	v.SetDefault(KeyComments, false)
	v.SetDefault(KeyLayout, LayoutDefault)
	v.SetDefault(KeyStyle, "rounded_grid")
	v.SetDefault(KeyDisableHelp, false)
	v.SetDefault(KeyNoExit, false)
	v.SetDefault(KeyNewSession, false)
	v.SetDefault(KeyUserAgent, constants.DefaultUserAgent)
	v.SetDefault(KeyLanguageCode, "")
	v.SetDefault(KeyVerbose, false)

	v.SetDefault(KeySearchAttempts, constants.DefaultSearchAttempts)
	v.SetDefault(KeySearchBackoff, constants.DefaultSearchBackoff)
	v.SetDefault(KeyMirrorCount, constants.DefaultMirrorCount)
	v.SetDefault(KeySessionTTL, constants.DefaultSessionTTL)
	v.SetDefault(KeyCommentTTL, constants.DefaultCommentTTL)
	v.SetDefault(KeyHTTPTimeout, constants.DefaultHTTPTimeout)
	v.SetDefault(KeyBaseURL, constants.DefaultBaseURL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// DefaultPath is config.json in the user's configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return filepath.Join(dir, constants.AppName, "config.json"), nil
}

// ReadFile merges the JSON config file at path into v. When required is
// false a missing file is ignored.
func ReadFile(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// FromViper builds the effective Config.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated options.
func (c Config) Validate() error {
	switch c.OrderBy {
	case "", "downloads", "dates":
	default:
		return fmt.Errorf("invalid order_by %q", c.OrderBy)
	}
	switch c.Layout {
	case LayoutDefault, LayoutMinimal, LayoutCompact, LayoutAlternative:
	default:
		return fmt.Errorf("invalid layout %q", c.Layout)
	}
	switch c.LanguageCode {
	case "", "en", "es":
	default:
		return fmt.Errorf("invalid language_code %q", c.LanguageCode)
	}
	if c.Lines < 0 {
		return fmt.Errorf("lines must be greater than zero")
	}
	return nil
}

// Save writes the persistable options of cfg to path.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// Dump writes the config file contents to w. It reports false when the
// file does not exist.
func Dump(w io.Writer, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	_, err = w.Write(data)
	return true, err
}

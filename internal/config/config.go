// Package config loads the application settings.
//
// Sources, highest precedence first:
//  1. Environment variables (DATA_PATH, GITHUB_CLIENT_ID, ...)
//  2. A .env file in the working directory, loaded into the environment
//     without overriding variables that are already set
//  3. An optional YAML file passed with --config, using the same keys
//     (data_path: /var/lib/notes)
//  4. Defaults
//
// Which settings are required depends on the command: the server needs the
// GitHub credentials, `notes import` needs the CalDAV ones. Validate checks
// a chosen set and reports every missing key at once.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sakif/notes/internal/apperror"
)

// Config holds every setting the application reads.
//
// The validate tags describe a setting when it is checked; Validate decides
// which fields are checked for a given command.
type Config struct {
	DataPath string `mapstructure:"DATA_PATH" validate:"required"`

	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"     validate:"required"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET" validate:"required"`

	CalDAVURL      string `mapstructure:"CALDAV_URL"      validate:"required,url"`
	CalDAVUsername string `mapstructure:"CALDAV_USERNAME" validate:"required"`
	CalDAVPassword string `mapstructure:"CALDAV_PASSWORD" validate:"required"`
	CalDAVCalendar string `mapstructure:"CALDAV_CALENDAR" validate:"required"`

	// Optional. An empty secret means a random one per process.
	StateSecret string `mapstructure:"STATE_SECRET" validate:"omitempty,min=16"`
	// Optional public URL of the app, used to build the OAuth callback URL.
	BaseURL         string        `mapstructure:"BASE_URL"         validate:"omitempty,url"`
	SecureCookies   bool          `mapstructure:"SECURE_COOKIES"`
	ProviderTimeout time.Duration `mapstructure:"PROVIDER_TIMEOUT" validate:"gt=0"`
}

// Purpose selects the settings a command needs.
type Purpose int

const (
	// Storage covers commands that only touch the database (add, list,
	// export, db backup).
	Storage Purpose = iota
	// Server additionally needs the GitHub OAuth app credentials.
	Server
	// Import additionally needs the CalDAV account and calendar name.
	Import
)

var requiredFields = map[Purpose][]string{
	Storage: {"DataPath"},
	Server:  {"DataPath", "GitHubClientID", "GitHubClientSecret"},
	Import:  {"DataPath", "CalDAVURL", "CalDAVUsername", "CalDAVPassword", "CalDAVCalendar"},
}

// Optional settings are checked for every purpose, so a malformed value
// never goes unnoticed.
var optionalFields = []string{"StateSecret", "BaseURL", "ProviderTimeout"}

// keys lists every environment variable the application reads.
var keys = []string{
	"DATA_PATH",
	"GITHUB_CLIENT_ID",
	"GITHUB_CLIENT_SECRET",
	"CALDAV_URL",
	"CALDAV_USERNAME",
	"CALDAV_PASSWORD",
	"CALDAV_CALENDAR",
	"STATE_SECRET",
	"BASE_URL",
	"SECURE_COOKIES",
	"PROVIDER_TIMEOUT",
}

// Load reads the configuration. configPath may be empty.
//
// Load does not validate; call Validate with the command's Purpose.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("PROVIDER_TIMEOUT", "10s")
	v.SetDefault("SECURE_COOKIES", false)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding settings: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &cfg, nil
}

// Validate checks the settings needed for purpose. The returned error wraps
// apperror.ErrConfiguration and names every offending key.
func (c *Config) Validate(purpose Purpose) error {
	fields := append(append([]string{}, requiredFields[purpose]...), optionalFields...)

	err := newValidator().StructPartial(c, fields...)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: validating: %w", err)
	}

	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return apperror.Configuration(missing...)
}

// newValidator reports fields by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}

// DBPath is the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataPath, "notes.db")
}

// BackupDir is where `notes db backup` writes by default.
func (c *Config) BackupDir() string {
	return filepath.Join(c.DataPath, "backups")
}

// ExportPath is where `notes export` writes by default.
func (c *Config) ExportPath() string {
	return filepath.Join(c.DataPath, "notes.json")
}

// CallbackURL is the OAuth redirect URL sent to GitHub. Empty when BASE_URL
// is unset, in which case GitHub uses the one registered for the app.
func (c *Config) CallbackURL() string {
	if c.BaseURL == "" {
		return ""
	}
	return c.BaseURL + "/callbacks/github"
}

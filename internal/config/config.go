// Package config merges defaults, REMOTE_* environment variables, and flag
// overrides into the validated run configuration.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
	"github.com/HarrisonTotty/remote-framework/internal/logging"
)

// EnvPrefix is the prefix of all recognized environment variables.
const EnvPrefix = "REMOTE"

// DefaultParallelWidth bounds parallel execution when no width is given.
const DefaultParallelWidth = 4

// Config is the run configuration after merging all sources. Flags override
// environment variables, which override defaults.
type Config struct {
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Cert     string `mapstructure:"cert"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`

	Timeout        time.Duration `mapstructure:"timeout" validate:"min=0"`
	AuthTimeout    time.Duration `mapstructure:"auth-timeout" validate:"min=0"`
	CommandTimeout time.Duration `mapstructure:"command-timeout" validate:"min=0"`

	ConfigFile string `mapstructure:"config-file" validate:"required"`

	LogFile   string `mapstructure:"log-file"`
	LogLevel  string `mapstructure:"log-level" validate:"oneof=info debug"`
	LogMode   string `mapstructure:"log-mode" validate:"oneof=append overwrite"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"`

	ParallelWidth int `mapstructure:"parallel-width" validate:"min=1"`
}

// Manager loads and validates configuration.
type Manager struct {
	v        *viper.Viper
	validate *validator.Validate
}

// NewManager creates a configuration manager.
func NewManager() *Manager {
	return &Manager{
		v:        viper.New(),
		validate: validator.New(),
	}
}

// SetDefaults establishes default values for every key.
func (m *Manager) SetDefaults() {
	m.v.SetDefault("user", currentUser())
	m.v.SetDefault("password", "")
	m.v.SetDefault("cert", "")
	m.v.SetDefault("port", 22)
	m.v.SetDefault("timeout", 5*time.Second)
	m.v.SetDefault("auth-timeout", 5*time.Second)
	m.v.SetDefault("command-timeout", time.Duration(0))
	m.v.SetDefault("config-file", homePath("remote.yaml"))
	m.v.SetDefault("log-file", homePath("remote.log"))
	m.v.SetDefault("log-level", logging.LevelInfo)
	m.v.SetDefault("log-mode", logging.ModeAppend)
	m.v.SetDefault("log-format", "text")
	m.v.SetDefault("parallel-width", DefaultParallelWidth)
}

// Load merges defaults and environment variables into a validated Config.
// Flag overrides are applied by the caller via Set before Load.
func (m *Manager) Load() (*Config, error) {
	m.SetDefaults()

	m.v.SetEnvPrefix(EnvPrefix)
	m.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.v.AutomaticEnv()

	var config Config
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(errors.Setup, "unable to parse configuration", err)
	}
	if err := m.Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Set overrides one key, taking precedence over environment and defaults.
// Used to apply explicitly-changed CLI flags.
func (m *Manager) Set(key string, value any) {
	m.v.Set(key, value)
}

// Validate checks config against its constraints, reporting the first
// offending field by its flag name.
func (m *Manager) Validate(config *Config) error {
	err := m.validate.Struct(config)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.Wrap(errors.Setup, "invalid configuration", err)
	}
	fe := verrs[0]
	return errors.Newf(errors.Setup, "invalid value for %s: fails constraint %q",
		flagName(fe.Field()), fe.Tag())
}

// flagName maps a Config struct field to the flag/env key it came from.
func flagName(field string) string {
	names := map[string]string{
		"User":           "user",
		"Password":       "password",
		"Cert":           "cert",
		"Port":           "port",
		"Timeout":        "timeout",
		"AuthTimeout":    "auth-timeout",
		"CommandTimeout": "command-timeout",
		"ConfigFile":     "config-file",
		"LogFile":        "log-file",
		"LogLevel":       "log-level",
		"LogMode":        "log-mode",
		"LogFormat":      "log-format",
		"ParallelWidth":  "parallel-width",
	}
	if name, ok := names[field]; ok {
		return name
	}
	return field
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func homePath(name string) string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, name)
	}
	return name
}

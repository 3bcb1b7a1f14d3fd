package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults applied when neither a flag nor the environment sets a value
const (
	DefaultEnvFile           = ".env"
	DefaultServiceNowTimeout = 30 * time.Second
	DefaultGeminiModel       = "gemini-1.5-flash"
	DefaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultLogLevel          = "INFO"
)

// Environment variable names
const (
	EnvServiceNowInstance = "SERVICENOW_INSTANCE"
	EnvServiceNowUsername = "SERVICENOW_USERNAME"
	EnvServiceNowPassword = "SERVICENOW_PASSWORD"
	EnvServiceNowTimeout  = "SERVICENOW_TIMEOUT"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvGeminiModel        = "GEMINI_MODEL"
	EnvGeminiBaseURL      = "GEMINI_BASE_URL"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFile            = "LOG_FILE"
	EnvMetricsAddr        = "METRICS_ADDR"
)

// Flag names bound onto configuration keys
const (
	FlagLogLevel    = "log-level"
	FlagLogFile     = "log-file"
	FlagMetricsAddr = "metrics-addr"
	FlagEnvFile     = "env-file"
)

// Settings is the immutable configuration snapshot handed to every component
type Settings struct {
	ServiceNow ServiceNowSettings `mapstructure:"servicenow"`
	Gemini     GeminiSettings     `mapstructure:"gemini"`
	Log        LogSettings        `mapstructure:"log"`
	Metrics    MetricsSettings    `mapstructure:"metrics"`
}

// ServiceNowSettings holds the Table API connection settings
type ServiceNowSettings struct {
	Instance string        `mapstructure:"instance"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GeminiSettings holds the generative API settings
type GeminiSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// LogSettings controls the logging manager
type LogSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MetricsSettings controls the optional Prometheus listener
type MetricsSettings struct {
	Addr string `mapstructure:"addr"`
}

// Configured reports whether all three connection settings are present
func (s ServiceNowSettings) Configured() bool {
	return s.Instance != "" && s.Username != "" && s.Password != ""
}

// Configured reports whether an API key is present
func (s GeminiSettings) Configured() bool {
	return s.APIKey != ""
}

// Missing lists the environment variables that are unset, for startup warnings
func (s *Settings) Missing() []string {
	var missing []string
	if s.ServiceNow.Instance == "" {
		missing = append(missing, EnvServiceNowInstance)
	}
	if s.ServiceNow.Username == "" {
		missing = append(missing, EnvServiceNowUsername)
	}
	if s.ServiceNow.Password == "" {
		missing = append(missing, EnvServiceNowPassword)
	}
	if s.Gemini.APIKey == "" {
		missing = append(missing, EnvGeminiAPIKey)
	}
	return missing
}

// Summary returns loggable settings; secrets are reduced to presence flags
func (s *Settings) Summary() map[string]interface{} {
	return map[string]interface{}{
		"servicenow_instance":   s.ServiceNow.Instance,
		"servicenow_configured": s.ServiceNow.Configured(),
		"servicenow_timeout":    s.ServiceNow.Timeout.String(),
		"gemini_configured":     s.Gemini.Configured(),
		"gemini_model":          s.Gemini.Model,
		"log_level":             s.Log.Level,
		"metrics_addr":          s.Metrics.Addr,
	}
}

var envBindings = map[string]string{
	"servicenow.instance": EnvServiceNowInstance,
	"servicenow.username": EnvServiceNowUsername,
	"servicenow.password": EnvServiceNowPassword,
	"servicenow.timeout":  EnvServiceNowTimeout,
	"gemini.api_key":      EnvGeminiAPIKey,
	"gemini.model":        EnvGeminiModel,
	"gemini.base_url":     EnvGeminiBaseURL,
	"log.level":           EnvLogLevel,
	"log.file":            EnvLogFile,
	"metrics.addr":        EnvMetricsAddr,
}

var flagBindings = map[string]string{
	"log.level":    FlagLogLevel,
	"log.file":     FlagLogFile,
	"metrics.addr": FlagMetricsAddr,
}

// Loader builds Settings from flags, the process environment and an optional env file
type Loader struct {
	v       *viper.Viper
	envFile string
}

// NewLoader binds configuration keys to environment variables and, when flags
// is non-nil, to the matching command-line flags
func NewLoader(flags *pflag.FlagSet, envFile string) (*Loader, error) {
	v := viper.New()

	v.SetDefault("servicenow.timeout", DefaultServiceNowTimeout)
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.base_url", DefaultGeminiBaseURL)
	v.SetDefault("log.level", DefaultLogLevel)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}

	return &Loader{v: v, envFile: envFile}, nil
}

// EnvFile returns the env file path, empty when none is used
func (l *Loader) EnvFile() string {
	return l.envFile
}

// Load reads the env file without overriding variables already present in the
// process environment, then resolves Settings
func (l *Loader) Load() (*Settings, error) {
	if err := l.readEnvFile(godotenv.Load); err != nil {
		return nil, err
	}
	return l.resolve()
}

// Reload re-reads the env file, letting its values replace earlier ones, and
// resolves a fresh Settings snapshot
func (l *Loader) Reload() (*Settings, error) {
	if err := l.readEnvFile(godotenv.Overload); err != nil {
		return nil, err
	}
	return l.resolve()
}

func (l *Loader) readEnvFile(load func(...string) error) error {
	if l.envFile == "" {
		return nil
	}
	if err := load(l.envFile); err != nil {
		// A missing env file is normal; variables may come from the environment.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", l.envFile, err)
	}
	return nil
}

func (l *Loader) resolve() (*Settings, error) {
	settings := &Settings{}
	if err := l.v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	settings.ServiceNow.Instance = strings.TrimRight(strings.TrimSpace(settings.ServiceNow.Instance), "/")
	if settings.ServiceNow.Timeout <= 0 {
		settings.ServiceNow.Timeout = DefaultServiceNowTimeout
	}
	if settings.Gemini.Model == "" {
		settings.Gemini.Model = DefaultGeminiModel
	}
	if settings.Gemini.BaseURL == "" {
		settings.Gemini.BaseURL = DefaultGeminiBaseURL
	}
	return settings, nil
}

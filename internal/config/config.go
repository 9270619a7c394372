package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSharedSecret is the shipped shared password. Startup logs a warning
// while it is still in use.
const DefaultSharedSecret = "changeme"

// FeedConfig describes a single ICS subscription source whose events are
// imported into the choir schedule.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// StorageConfig selects the persistence backend. When SupabaseURL or
// SupabaseKey is empty the local snapshot file is used instead.
type StorageConfig struct {
	SupabaseURL string `yaml:"supabase_url" json:"supabase_url" env:"CHOIRDESK_SUPABASE_URL"`
	SupabaseKey string `yaml:"supabase_key" json:"-" env:"CHOIRDESK_SUPABASE_KEY"`
	// Schema is the Postgres schema the realtime feed listens on.
	Schema string `yaml:"schema" json:"schema" env:"CHOIRDESK_SUPABASE_SCHEMA"`
	// LocalPath is the SQLite file holding the local snapshot.
	LocalPath string `yaml:"local_path" json:"local_path" env:"CHOIRDESK_LOCAL_PATH"`
}

// Remote reports whether the hosted backend is configured.
func (s StorageConfig) Remote() bool {
	return s.SupabaseURL != "" && s.SupabaseKey != ""
}

// AssistantConfig configures the generative-AI backend.
type AssistantConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint" env:"CHOIRDESK_AI_ENDPOINT"`
	Model    string `yaml:"model" json:"model" env:"CHOIRDESK_AI_MODEL"`
	APIKey   string `yaml:"api_key" json:"-" env:"CHOIRDESK_AI_KEY"`
	// Persona is the fixed system instruction sent with every prompt.
	Persona string `yaml:"persona" json:"persona"`
	// RequestsPerMinute caps outgoing prompts across all sessions.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	// Grounding asks the backend to use web retrieval and return citations.
	Grounding bool `yaml:"grounding" json:"grounding"`
}

// AccountConfig is one registered account and the choir it belongs to.
type AccountConfig struct {
	Account     string `yaml:"account" json:"account"`
	Unit        string `yaml:"unit" json:"unit"`
	DisplayName string `yaml:"display_name" json:"display_name"`
}

// AuthConfig holds the static account table and the shared password.
type AuthConfig struct {
	SharedSecret string          `yaml:"shared_secret" json:"-" env:"CHOIRDESK_SHARED_SECRET"`
	Accounts     []AccountConfig `yaml:"accounts" json:"accounts"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"CHOIRDESK_LISTEN"`

	// Timezone is the IANA timezone used for "today" and ICS export.
	Timezone string `yaml:"timezone" json:"timezone" env:"CHOIRDESK_TIMEZONE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" env:"CHOIRDESK_LOG_LEVEL"`

	// RefreshCron is a cron-style schedule string (e.g. "*/30 * * * *")
	// used for periodic ICS feed import.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Feeds are parish or diocesan ICS calendars imported into the schedule.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// CacheDir holds the ICS fetch cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Assistant AssistantConfig `yaml:"assistant" json:"assistant"`
	Auth      AuthConfig      `yaml:"auth" json:"auth"`
}

const defaultPersona = "You are the assistant of a Catholic parish choir. " +
	"Answer questions about liturgy, hymn selection, rehearsal planning and choir administration. " +
	"Be concise and answer in the language of the question."

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "UTC",
		LogLevel:    "info",
		RefreshCron: "*/30 * * * *",
		Feeds:       []FeedConfig{},
		CacheDir:    "./var/ics-cache",
		Storage: StorageConfig{
			Schema:    "public",
			LocalPath: "./var/choirdesk.db",
		},
		Assistant: AssistantConfig{
			Endpoint:          "https://generativelanguage.googleapis.com/v1beta",
			Model:             "gemini-2.5-flash",
			Persona:           defaultPersona,
			RequestsPerMinute: 10,
			Grounding:         true,
		},
		Auth: AuthConfig{
			SharedSecret: DefaultSharedSecret,
			Accounts: []AccountConfig{
				{Account: "admin", Unit: "Parish Choir", DisplayName: "Choir Administrator"},
			},
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}

	c.Storage.SupabaseURL = strings.TrimSuffix(strings.TrimSpace(c.Storage.SupabaseURL), "/")
	if c.Storage.Schema == "" {
		c.Storage.Schema = def.Storage.Schema
	}
	if c.Storage.LocalPath == "" {
		c.Storage.LocalPath = def.Storage.LocalPath
	}

	if c.Assistant.Endpoint == "" {
		c.Assistant.Endpoint = def.Assistant.Endpoint
	}
	c.Assistant.Endpoint = strings.TrimSuffix(c.Assistant.Endpoint, "/")
	if c.Assistant.Model == "" {
		c.Assistant.Model = def.Assistant.Model
	}
	if c.Assistant.Persona == "" {
		c.Assistant.Persona = def.Assistant.Persona
	}
	if c.Assistant.RequestsPerMinute <= 0 {
		c.Assistant.RequestsPerMinute = def.Assistant.RequestsPerMinute
	}

	if c.Auth.SharedSecret == "" {
		c.Auth.SharedSecret = def.Auth.SharedSecret
	}
	if len(c.Auth.Accounts) == 0 {
		c.Auth.Accounts = def.Auth.Accounts
	}
}

// ApplyEnv loads an optional .env file and overlays CHOIRDESK_* variables
// onto cfg. A missing .env file is not an error.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := envdecode.Decode(c); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return err
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".choirdesk-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

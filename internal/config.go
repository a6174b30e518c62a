package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// DefaultUserID is the single fixed demo account. All records are scoped
// to one account identifier; multi-user auth is out of scope.
const DefaultUserID = "00000000-0000-0000-0000-000000000000"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Account AccountConfig     `yaml:"account"`
	Voice   VoiceConfig       `yaml:"voice"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Account.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the record store backend.
//
// Backend controls persistence:
//   - "memory" (default): volatile in-process store, suitable for demos.
//   - "sqlite": durable store; Path must be non-empty.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	// Normalise empty backend to "memory".
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendSQLite)),
	); err != nil {
		return err
	}
	if c.Backend == BackendSQLite && c.Path == "" {
		return fmt.Errorf("store: backend is %q but path is empty", BackendSQLite)
	}
	return nil
}

// AccountConfig holds the account identifier all records are owned by.
type AccountConfig struct {
	UserID string `yaml:"user_id"`
}

// Validate validates the account configuration.
func (c *AccountConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.UserID, validation.Required),
	)
}

// VoiceConfig holds voice-agent integration settings. AgentID identifies
// the hosted conversational agent; Vocabulary, when set, points to a YAML
// file overriding the interpreter's trigger phrases, hot-reloaded on change.
type VoiceConfig struct {
	AgentID    string `yaml:"agent_id"`
	Vocabulary string `yaml:"vocabulary"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3000,
			},
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    "./ansuz.db",
		},
		Account: AccountConfig{
			UserID: DefaultUserID,
		},
	}
}

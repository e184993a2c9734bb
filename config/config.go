// Package config provides configuration loading and management for execoach.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/execoach/model"
	"github.com/c360studio/execoach/processor/orchestrator"
)

// Endpoint names registered by Registry.
const (
	DefaultEndpoint  = "default"
	AnalysisEndpoint = "analysis"
)

// Providers lists the accepted model.provider values.
var Providers = []string{"anthropic", "azure", "gemini", "ollama", "openai"}

// Config represents the complete execoach configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model" toml:"model"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// ModelConfig configures the language model endpoint.
type ModelConfig struct {
	// Provider is one of Providers.
	Provider string `yaml:"provider" toml:"provider"`
	// Name is the model id, or the deployment name for Azure.
	Name string `yaml:"name" toml:"name"`
	// Endpoint is the API base URL. Empty uses the provider default.
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	// APIVersion is only used by Azure.
	APIVersion string `yaml:"api_version,omitempty" toml:"api_version,omitempty"`
	// APIKey is normally supplied through the environment.
	APIKey string `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	// Temperature controls randomness (0.0-1.0, default: 0.7)
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	// MaxTokens limits completion length. 0 uses the provider default.
	MaxTokens int `yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	// Timeout bounds a single model call.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	// Analysis optionally routes deviation analysis to a different model.
	Analysis *AnalysisConfig `yaml:"analysis,omitempty" toml:"analysis,omitempty"`
}

// AnalysisConfig overrides the model used for reviewing reality checks.
// Empty fields inherit from the main model section.
type AnalysisConfig struct {
	Provider string `yaml:"provider,omitempty" toml:"provider,omitempty"`
	Name     string `yaml:"name,omitempty" toml:"name,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty" toml:"api_key,omitempty"`
}

// StorageConfig configures where state is kept.
type StorageConfig struct {
	DataDir   string `yaml:"data_dir" toml:"data_dir"`
	StateFile string `yaml:"state_file" toml:"state_file"`
	// CallLog is the SQLite file for model calls. Empty disables the log.
	CallLog string `yaml:"call_log" toml:"call_log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "azure",
			Name:        "gpt-4",
			APIVersion:  "2024-02-15-preview",
			Temperature: 0.7,
			Timeout:     3 * time.Minute,
		},
		Storage: StorageConfig{
			DataDir:   "./data",
			StateFile: "state.json",
			CallLog:   "calls.db",
		},
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid. Missing credentials are
// not an error here: commands that never call the model still work, and
// ModelConfigured reports the gap.
func (c *Config) Validate() error {
	if !slices.Contains(Providers, c.Model.Provider) {
		return fmt.Errorf("model.provider must be one of %s, got %q", strings.Join(Providers, ", "), c.Model.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Model.MaxTokens < 0 {
		return fmt.Errorf("model.max_tokens must be >= 0")
	}
	if c.Model.Timeout < 0 {
		return fmt.Errorf("model.timeout must be >= 0")
	}
	if a := c.Model.Analysis; a != nil && a.Provider != "" && !slices.Contains(Providers, a.Provider) {
		return fmt.Errorf("model.analysis.provider must be one of %s, got %q", strings.Join(Providers, ", "), a.Provider)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if c.Storage.StateFile == "" {
		return fmt.Errorf("storage.state_file is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ModelConfigured reports whether the main endpoint has the credentials its
// provider needs.
func (c *Config) ModelConfigured() bool {
	switch c.Model.Provider {
	case "ollama":
		return true
	case "azure":
		return c.Model.APIKey != "" && c.Model.Endpoint != ""
	default:
		return c.Model.APIKey != ""
	}
}

// StatePath returns the state document path.
func (c *Config) StatePath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.StateFile)
}

// CallLogPath returns the call log path, or "" when the log is disabled.
func (c *Config) CallLogPath() string {
	if c.Storage.CallLog == "" {
		return ""
	}
	if filepath.IsAbs(c.Storage.CallLog) {
		return c.Storage.CallLog
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.CallLog)
}

// Registry builds the capability registry. Planning always uses the main
// endpoint; reviewing uses the analysis override when one is set.
func (c *Config) Registry() *model.Registry {
	main := &model.EndpointConfig{
		Provider:   c.Model.Provider,
		URL:        c.Model.Endpoint,
		Model:      c.Model.Name,
		APIVersion: c.Model.APIVersion,
		APIKey:     c.Model.APIKey,
		MaxTokens:  c.Model.MaxTokens,
	}
	endpoints := map[string]*model.EndpointConfig{DefaultEndpoint: main}
	reg := model.NewRegistry(DefaultEndpoint, endpoints)

	if a := c.Model.Analysis; a != nil {
		analysis := *main
		if a.Provider != "" && a.Provider != main.Provider {
			// A different provider never shares the main endpoint or key.
			analysis.Provider = a.Provider
			analysis.URL = ""
			analysis.APIKey = ""
		}
		if a.Name != "" {
			analysis.Model = a.Name
		}
		if a.Endpoint != "" {
			analysis.URL = a.Endpoint
		}
		if a.APIKey != "" {
			analysis.APIKey = a.APIKey
		}
		reg.SetEndpoint(AnalysisEndpoint, &analysis)
		reg.SetCapability(model.CapabilityReviewing, AnalysisEndpoint)
	}
	return reg
}

// Orchestrator returns the orchestrator settings derived from c.
func (c *Config) Orchestrator() orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.Temperature = c.Model.Temperature
	return oc
}

// LoadFromFile loads configuration from a YAML or TOML file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// decodeFile decodes path onto config. Keys absent from the file keep their
// current values. The format follows the file extension.
func decodeFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file. API keys are never written.
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := *c
	out.Model.APIKey = ""
	if c.Model.Analysis != nil {
		a := *c.Model.Analysis
		a.APIKey = ""
		out.Model.Analysis = &a
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "execoach.yaml"
	// ProjectConfigFileTOML is the TOML alternative to ProjectConfigFile
	ProjectConfigFileTOML = "execoach.toml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/execoach"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger  *slog.Logger
	homeDir string
	workDir string
	getenv  func(string) string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHomeDir overrides the directory the user config is resolved against.
func WithHomeDir(dir string) LoaderOption {
	return func(l *Loader) { l.homeDir = dir }
}

// WithWorkDir overrides the directory the project config search starts from.
func WithWorkDir(dir string) LoaderOption {
	return func(l *Loader) { l.workDir = dir }
}

// WithEnv replaces os.Getenv for environment overrides.
func WithEnv(getenv func(string) string) LoaderOption {
	return func(l *Loader) { l.getenv = getenv }
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, getenv: os.Getenv}
	for _, opt := range opts {
		opt(l)
	}
	if l.homeDir == "" {
		l.homeDir, _ = os.UserHomeDir()
	}
	if l.workDir == "" {
		l.workDir, _ = os.Getwd()
	}
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/execoach/config.yaml)
// 3. Project config (execoach.yaml or execoach.toml in current or parent directories)
// 4. explicit, when non-empty (a missing or broken file is an error)
// 5. Environment variables
func (l *Loader) Load(explicit string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if err := decodeFile(userConfigPath, config); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if err := decodeFile(projectConfigPath, config); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if explicit != "" {
		if err := decodeFile(explicit, config); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", explicit))
	}

	l.applyEnv(config)

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv applies environment overrides. Provider credentials apply only to
// the provider they belong to. EXECOACH_* variables win over everything.
func (l *Loader) applyEnv(c *Config) {
	set := func(dst *string, key string) {
		if v := l.getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Model.Provider, "EXECOACH_MODEL_PROVIDER")

	switch c.Model.Provider {
	case "openai":
		set(&c.Model.APIKey, "OPENAI_API_KEY")
	case "azure":
		set(&c.Model.APIKey, "AZURE_OPENAI_API_KEY")
		set(&c.Model.Endpoint, "AZURE_OPENAI_ENDPOINT")
		set(&c.Model.Name, "AZURE_OPENAI_DEPLOYMENT_NAME")
		set(&c.Model.APIVersion, "AZURE_OPENAI_API_VERSION")
	case "anthropic":
		set(&c.Model.APIKey, "ANTHROPIC_API_KEY")
	case "gemini":
		set(&c.Model.APIKey, "GEMINI_API_KEY")
	}

	set(&c.Model.Name, "EXECOACH_MODEL_NAME")
	set(&c.Model.Endpoint, "EXECOACH_MODEL_ENDPOINT")
	set(&c.Storage.DataDir, "EXECOACH_DATA_DIR")
	set(&c.Server.Addr, "EXECOACH_ADDR")
	set(&c.Log.Level, "EXECOACH_LOG_LEVEL")

	if v := l.getenv("EXECOACH_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Model.Timeout = d
		} else {
			l.logger.Warn("Ignoring invalid EXECOACH_MODEL_TIMEOUT", slog.String("value", v))
		}
	}
	if v := l.getenv("EXECOACH_MODEL_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Model.Temperature = f
		} else {
			l.logger.Warn("Ignoring invalid EXECOACH_MODEL_TEMPERATURE", slog.String("value", v))
		}
	}
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil
	}

	if err := DefaultConfig().SaveToFile(userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return userConfigPath, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.homeDir == "" {
		return ""
	}
	return filepath.Join(l.homeDir, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for a project config in the working directory
// and its parents. YAML wins over TOML in the same directory.
func (l *Loader) findProjectConfig() string {
	if l.workDir == "" {
		return ""
	}

	dir := l.workDir
	for {
		for _, name := range []string{ProjectConfigFile, ProjectConfigFileTOML} {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

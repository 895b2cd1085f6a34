package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration for a project: defaults, then the project
// config file, then .env and the process environment. Flags are applied
// later by the commands.
func Load(projectPath string) (*Config, error) {
	cfg := New()
	if projectPath != "" {
		cfg.ProjectPath = projectPath
	}

	path := cfg.GetConfigFilePath()
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("error loading project config from %s: %w", path, err)
		}
	}

	// .env is optional, a missing file leaves the process environment as is
	_ = godotenv.Load(filepath.Join(cfg.ProjectPath, ".env"))

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the non-zero fields of a YAML file onto c
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	c.merge(file)
	return nil
}

func (c *Config) merge(overlay Config) {
	setString(&c.Transport, overlay.Transport)
	setString(&c.RunnerPath, overlay.RunnerPath)
	setString(&c.Endpoint, overlay.Endpoint)
	setString(&c.Delimiter, overlay.Delimiter)
	setString(&c.StorageDriver, overlay.StorageDriver)
	setString(&c.OutputJSONDir, overlay.OutputJSONDir)
	setString(&c.OutputJSONFile, overlay.OutputJSONFile)
	setString(&c.ServeAddr, overlay.ServeAddr)
	setString(&c.LogLevel, overlay.LogLevel)
	setString(&c.Database.Host, overlay.Database.Host)
	setString(&c.Database.Port, overlay.Database.Port)
	setString(&c.Database.User, overlay.Database.User)
	setString(&c.Database.Password, overlay.Database.Password)
	setString(&c.Database.Name, overlay.Database.Name)

	if len(overlay.RunnerArgs) > 0 {
		c.RunnerArgs = overlay.RunnerArgs
	}
	if len(overlay.SourceExtensions) > 0 {
		c.SourceExtensions = overlay.SourceExtensions
	}
	if len(overlay.PathsToIgnore) > 0 {
		c.PathsToIgnore = overlay.PathsToIgnore
	}
	if len(overlay.AllowedOrigins) > 0 {
		c.AllowedOrigins = overlay.AllowedOrigins
	}
	if overlay.CancelTimeout > 0 {
		c.CancelTimeout = overlay.CancelTimeout
	}
	if overlay.CancelPollInterval > 0 {
		c.CancelPollInterval = overlay.CancelPollInterval
	}
	if overlay.ExitGrace > 0 {
		c.ExitGrace = overlay.ExitGrace
	}
	if overlay.HistoryLimit > 0 {
		c.HistoryLimit = overlay.HistoryLimit
	}
}

func (c *Config) applyEnv() error {
	envStrings := map[string]*string{
		"PTRUN_TRANSPORT": &c.Transport,
		"PTRUN_RUNNER":    &c.RunnerPath,
		"PTRUN_ENDPOINT":  &c.Endpoint,
		"PTRUN_DELIMITER": &c.Delimiter,
		"PTRUN_STORAGE":   &c.StorageDriver,
		"PTRUN_LOG_LEVEL": &c.LogLevel,
		"DB_HOST":         &c.Database.Host,
		"DB_PORT":         &c.Database.Port,
		"DB_USERNAME":     &c.Database.User,
		"DB_PASSWORD":     &c.Database.Password,
		"PTRUN_DB_NAME":   &c.Database.Name,
	}
	for key, dst := range envStrings {
		if v, ok := getenv(key); ok {
			*dst = v
		}
	}

	if v, ok := getenv("PTRUN_CANCEL_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PTRUN_CANCEL_TIMEOUT: %w", err)
		}
		c.CancelTimeout = d
	}
	if v, ok := getenv("PTRUN_HISTORY_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PTRUN_HISTORY_LIMIT: %w", err)
		}
		c.HistoryLimit = n
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

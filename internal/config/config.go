package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Transport kinds
const (
	TransportProcess = "process"
	TransportStream  = "stream"
)

// Storage drivers
const (
	StorageJSON  = "json"
	StorageMySQL = "mysql"
)

var (
	ErrUnknownTransport = errors.New("unknown transport")
	ErrUnknownStorage   = errors.New("unknown storage driver")
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath      string   `yaml:"project_path"`
	SourceExtensions []string `yaml:"source_extensions"`
	PathsToIgnore    []string `yaml:"paths_to_ignore"`

	// Transport settings
	Transport  string   `yaml:"transport"`
	RunnerPath string   `yaml:"runner_path"`
	RunnerArgs []string `yaml:"runner_args"`
	Endpoint   string   `yaml:"endpoint"`
	Delimiter  string   `yaml:"delimiter"`

	// Run control
	CancelTimeout      time.Duration `yaml:"cancel_timeout"`
	CancelPollInterval time.Duration `yaml:"cancel_poll_interval"`
	ExitGrace          time.Duration `yaml:"exit_grace"`

	// History settings
	StorageDriver  string   `yaml:"storage"`
	OutputJSONDir  string   `yaml:"output_dir"`
	OutputJSONFile string   `yaml:"output_file"`
	HistoryLimit   int      `yaml:"history_limit"`
	Database       Database `yaml:"database"`

	// Bridge settings
	ServeAddr      string   `yaml:"serve_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	LogLevel string `yaml:"log_level"`

	// Command flags
	Flags Flags `yaml:"-"`
}

// Database holds the MySQL connection used by the mysql storage driver
type Database struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Flags holds command-line flags
type Flags struct {
	Tests       []string
	Functions   []string
	RequestFile string
	All         bool
	NameFilter  string
	Transport   string
	Endpoint    string
	RunnerPath  string
	NoProgress  bool
	Plain       bool
	Limit       int
	ServeAddr   string
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:        DefaultProjectPath,
		Transport:          DefaultTransport,
		RunnerPath:         DefaultRunnerPath,
		Delimiter:          DefaultDelimiter,
		CancelTimeout:      DefaultCancelTimeout,
		CancelPollInterval: DefaultCancelPollInterval,
		ExitGrace:          DefaultExitGrace,
		StorageDriver:      DefaultStorageDriver,
		OutputJSONDir:      DefaultStateDir,
		OutputJSONFile:     DefaultOutputJSONFile,
		HistoryLimit:       DefaultHistoryLimit,
		ServeAddr:          DefaultServeAddr,
		LogLevel:           DefaultLogLevel,
		Database: Database{
			Host: "127.0.0.1",
			Port: "3306",
			User: "root",
			Name: DefaultDatabaseName,
		},
	}
	// Copy default slices so callers can't mutate the package defaults
	cfg.SourceExtensions = append([]string(nil), DefaultSourceExtensions...)
	cfg.PathsToIgnore = append([]string(nil), DefaultPathsToIgnore...)
	cfg.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	return cfg
}

// ApplyFlags applies command-line overrides
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags
	if flags.Transport != "" {
		c.Transport = flags.Transport
	}
	if flags.Endpoint != "" {
		c.Endpoint = flags.Endpoint
	}
	if flags.RunnerPath != "" {
		c.RunnerPath = flags.RunnerPath
	}
	if flags.ServeAddr != "" {
		c.ServeAddr = flags.ServeAddr
	}
}

// Validate checks the settings a run depends on
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportProcess:
		if c.RunnerPath == "" {
			return errors.New("runner path is required for the process transport")
		}
	case TransportStream:
		if c.Endpoint == "" {
			return errors.New("endpoint is required for the stream transport")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
	switch c.StorageDriver {
	case StorageJSON, StorageMySQL:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, c.StorageDriver)
	}
	if c.CancelTimeout <= 0 || c.CancelPollInterval <= 0 {
		return errors.New("cancel timeout and poll interval must be positive")
	}
	return nil
}

// GetOutputPath returns the absolute path of the run history file, so every
// command reads and writes the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	dir := c.OutputJSONDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.ProjectPath, dir)
	}
	p := filepath.Join(dir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetConfigFilePath returns the project config file path
func (c *Config) GetConfigFilePath() string {
	return filepath.Join(c.ProjectPath, DefaultStateDir, DefaultConfigFile)
}

// GetRunnerDir returns the directory the runner is started in
func (c *Config) GetRunnerDir() string {
	if abs, err := filepath.Abs(c.ProjectPath); err == nil {
		return abs
	}
	return c.ProjectPath
}

// GetDSN returns the MySQL DSN. Without a database name it addresses the
// server only, which is how the database gets created.
func (c *Config) GetDSN(withDatabase bool) string {
	db := c.Database
	name := ""
	if withDatabase {
		name = db.Name
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", db.User, db.Password, db.Host, db.Port, name)
}

func getenv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Database Database `yaml:"database"`
	Server   Server   `yaml:"server"`
	Workflow Workflow `yaml:"workflow"`
	Notify   Notify   `yaml:"notify"`
	Intake   Intake   `yaml:"intake"`
	Logging  Logging  `yaml:"logging"`
	Output   Output   `yaml:"output"`
}

type Database struct {
	Path string `yaml:"path"`
}

type Server struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	PrincipalHeader string `yaml:"principal_header"`
	BaseURL         string `yaml:"base_url"`
}

type Workflow struct {
	RereviewOnEdit bool `yaml:"rereview_on_edit"`
	CompareAndSet  bool `yaml:"compare_and_set"`
}

type Notify struct {
	WebhookURL    string        `yaml:"webhook_url"`
	Timeout       time.Duration `yaml:"timeout"`
	ExcerptLength int           `yaml:"excerpt_length"`
}

type Intake struct {
	FetchFullText bool          `yaml:"fetch_full_text"`
	MaxItems      int           `yaml:"max_items"`
	Timeout       time.Duration `yaml:"timeout"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsdesk.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsdesk")
}

// DataDir returns the XDG data directory for newsdesk.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsdesk")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsdesk/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsdesk init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Host:            "127.0.0.1",
			Port:            8000,
			PrincipalHeader: "X-Newsdesk-User",
		},
		Workflow: Workflow{CompareAndSet: true},
		Notify: Notify{
			Timeout:       5 * time.Second,
			ExcerptLength: 200,
		},
		Intake: Intake{
			FetchFullText: true,
			MaxItems:      20,
			Timeout:       15 * time.Second,
		},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.PrincipalHeader == "" {
		return fmt.Errorf("server.principal_header must not be empty")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be positive")
	}
	if c.Intake.MaxItems < 0 {
		return fmt.Errorf("intake.max_items must not be negative")
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the configured database file, defaulting to
// newsdesk.db in the data directory.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.GetDataDir(), "newsdesk.db")
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

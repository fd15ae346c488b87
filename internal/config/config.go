// Package config handles YAML configuration for casper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the matching flag is absent.
const (
	EnvBucket = "CASPER_BUCKET"
	EnvConfig = "CASPER_CONFIG"
)

// Config is the root configuration structure.
type Config struct {
	AWS       AWSConfig       `yaml:"aws"`
	State     StateConfig     `yaml:"state"`
	Terraform TerraformConfig `yaml:"terraform"`
	Scan      ScanConfig      `yaml:"scan"`
	Log       LogConfig       `yaml:"log"`
	OTEL      OTELConfig      `yaml:"otel"`
}

// AWSConfig holds AWS provider settings.
type AWSConfig struct {
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}

// StateConfig describes where the tracked inventory comes from and goes to.
type StateConfig struct {
	RootDir       string   `yaml:"root_dir"`
	Bucket        string   `yaml:"bucket"`
	File          string   `yaml:"file"`
	Backend       string   `yaml:"backend"`
	ExcludeDirs   []string `yaml:"exclude_dirs"`
	ExcludeGroups []string `yaml:"exclude_groups"`
}

// TerraformConfig holds the commands run in every project directory.
type TerraformConfig struct {
	ListCommand string        `yaml:"list_command"`
	ShowCommand string        `yaml:"show_command"`
	InitCommand string        `yaml:"init_command"`
	TimeoutStr  string        `yaml:"timeout"`
	Timeout     time.Duration `yaml:"-"`
}

// ScanConfig holds scan settings.
type ScanConfig struct {
	Services         []string `yaml:"services"`
	ExcludeResources []string `yaml:"exclude_resources"`
	Policy           string   `yaml:"policy"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
	MetricsFile string  `yaml:"metrics_file"`
}

// Local state backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	_ = parseTimeout(cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := parseTimeout(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Find looks for .casper.yaml or .casper.yml in dir. It returns the
// defaults when neither exists.
func Find(dir string) (*Config, error) {
	for _, name := range []string{".casper.yaml", ".casper.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
		return Load(path)
	}
	return Default(), nil
}

func applyDefaults(cfg *Config) {
	if cfg.State.RootDir == "" {
		cfg.State.RootDir = "."
	}
	if cfg.State.File == "" {
		cfg.State.File = "terraform_state"
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = BackendFile
	}
	if cfg.Terraform.ListCommand == "" {
		cfg.Terraform.ListCommand = "terraform state list"
	}
	if cfg.Terraform.ShowCommand == "" {
		cfg.Terraform.ShowCommand = "terraform state show -no-color"
	}
	if cfg.Terraform.InitCommand == "" {
		cfg.Terraform.InitCommand = "terraform init -input=false"
	}
	if cfg.Terraform.TimeoutStr == "" {
		cfg.Terraform.TimeoutStr = "300s"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "casper"
	}
	if cfg.OTEL.SampleRate == 0 {
		cfg.OTEL.SampleRate = 1.0
	}
}

func parseTimeout(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Terraform.TimeoutStr)
	if err != nil {
		return fmt.Errorf("parse terraform timeout %q: %w", cfg.Terraform.TimeoutStr, err)
	}
	cfg.Terraform.Timeout = d
	return nil
}

// ApplyEnv fills unset values from the environment.
func (c *Config) ApplyEnv() {
	if c.State.Bucket == "" {
		c.State.Bucket = os.Getenv(EnvBucket)
	}
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.State.Backend != BackendFile && c.State.Backend != BackendBolt {
		return fmt.Errorf("state: backend must be %q or %q (got %q)", BackendFile, BackendBolt, c.State.Backend)
	}
	if c.Terraform.Timeout <= 0 {
		return fmt.Errorf("terraform: timeout must be positive (got %v)", c.Terraform.Timeout)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.OTEL.SampleRate < 0.0 || c.OTEL.SampleRate > 1.0 {
		return fmt.Errorf("otel: sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.SampleRate)
	}
	return nil
}

package app

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/kinobot/core/config"
	coredatabase "github.com/m3rciful/kinobot/core/database"
)

// AdminConfig holds operator panel settings.
type AdminConfig struct {
	Password string `yaml:"password" envconfig:"ADMIN_PASSWORD"`
}

// BroadcastConfig tunes mass-delivery pacing.
type BroadcastConfig struct {
	SendDelayMS   int `yaml:"send_delay_ms" envconfig:"BROADCAST_SEND_DELAY_MS"`
	ProgressBatch int `yaml:"progress_batch" envconfig:"BROADCAST_PROGRESS_BATCH"`
}

// Config is the full application configuration: the shared core config
// inlined at the top level plus bot-specific sections.
type Config struct {
	Core      coreconfig.Config   `yaml:",inline"`
	Database  coredatabase.Config `yaml:"database"`
	Admin     AdminConfig         `yaml:"admin"`
	Broadcast BroadcastConfig     `yaml:"broadcast"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// SendDelay returns the configured inter-send pause.
func (c *Config) SendDelay() time.Duration {
	return time.Duration(c.Broadcast.SendDelayMS) * time.Millisecond
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if cfg.Admin.Password == "" {
		cfg.Admin.Password = "2008"
	}
	if cfg.Broadcast.SendDelayMS <= 0 {
		cfg.Broadcast.SendDelayMS = 50
	}
	if cfg.Broadcast.ProgressBatch <= 0 {
		cfg.Broadcast.ProgressBatch = 10
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	return &cfg, nil
}

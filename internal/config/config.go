// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	Database struct {
		URL string `yaml:"url" validate:"required"`
	} `yaml:"database"`

	RabbitMQ struct {
		URL string `yaml:"url"`
	} `yaml:"rabbitmq"`

	Auth struct {
		SessionSecret string `yaml:"session_secret" validate:"required"`
	} `yaml:"auth"`

	Tenants []string `yaml:"tenants" validate:"required,min=1,dive,len=4,numeric"`

	Store struct {
		ReconnectInterval time.Duration `yaml:"reconnect_interval"`
		OpTimeout         time.Duration `yaml:"op_timeout"`
	} `yaml:"store"`

	Queue struct {
		WarnDepth int `yaml:"warn_depth"`
	} `yaml:"queue"`

	Upload struct {
		MaxBytes int64 `yaml:"max_bytes"`
	} `yaml:"upload"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Store.ReconnectInterval <= 0 {
		c.Store.ReconnectInterval = 10 * time.Second
	}
	if c.Store.OpTimeout <= 0 {
		c.Store.OpTimeout = 10 * time.Second
	}
	if c.Queue.WarnDepth <= 0 {
		c.Queue.WarnDepth = 1000
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 10 << 20
	}
}

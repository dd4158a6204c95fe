package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/prefetchkit/dataset"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/prefetch"
	"github.com/kbukum/prefetchkit/sampler/redissource"
	"github.com/kbukum/prefetchkit/validation"
)

// Environments lists the accepted values of Config.Environment.
var Environments = []string{"development", "staging", "production"}

// Source kinds.
const (
	SourceRange = "range"
	SourceRedis = "redis"
)

// Config is the full prefetchctl configuration.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`

	Logging   logger.Config          `yaml:"logging" mapstructure:"logging"`
	Loader    prefetch.Config        `yaml:"loader" mapstructure:"loader"`
	Retry     dataset.RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Throttle  dataset.ThrottleConfig `yaml:"throttle" mapstructure:"throttle"`
	Source    SourceConfig           `yaml:"source" mapstructure:"source"`
	Telemetry observability.Config   `yaml:"telemetry" mapstructure:"telemetry"`
	Status    StatusConfig           `yaml:"status" mapstructure:"status"`
}

// SourceConfig selects and shapes the key source.
type SourceConfig struct {
	// Kind is "range" (keys 0..Keys-1) or "redis" (keys popped from a list).
	Kind string `yaml:"kind" mapstructure:"kind" validate:"oneof=range redis"`
	// Keys is the number of keys a range source yields.
	Keys int `yaml:"keys" mapstructure:"keys" validate:"gte=0"`
	// Shuffle permutes the keys deterministically by Seed.
	Shuffle bool   `yaml:"shuffle" mapstructure:"shuffle"`
	Seed    uint64 `yaml:"seed" mapstructure:"seed"`

	Redis redissource.Config `yaml:"redis" mapstructure:"redis"`
}

// StatusConfig configures the HTTP status endpoint. An empty Addr disables it.
type StatusConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "prefetchctl"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceRange
	}
	c.Logging.ApplyDefaults()
	c.Loader.ApplyDefaults()
	c.Retry.ApplyDefaults()
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = c.Environment
	}
	c.Telemetry.ApplyDefaults()
	if c.Source.Kind == SourceRedis {
		c.Source.Redis.ApplyDefaults()
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	v := validation.New()
	v.Check(c.Name != "", "name", "is required")
	v.Check(slices.Contains(Environments, c.Environment), "environment",
		fmt.Sprintf("must be one of %v (got: %s)", Environments, c.Environment))

	v.Merge("logging", c.Logging.Validate())
	v.Merge("loader", c.Loader.Validate())
	v.Merge("source", validation.ValidateStruct(&c.Source))
	if c.Source.Kind == SourceRedis {
		v.Merge("source.redis", c.Source.Redis.Validate())
	}
	v.Merge("telemetry", validation.ValidateStruct(&c.Telemetry))
	v.Merge("throttle", validation.ValidateStruct(&c.Throttle))
	v.Merge("status", validation.ValidateStruct(&c.Status))
	v.Check(c.Retry.MaxAttempts >= 1, "retry.max_attempts", "must be at least 1")

	return v.Error()
}

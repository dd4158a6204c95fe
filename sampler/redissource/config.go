package redissource

import (
	"fmt"
	"time"
)

// Config holds the connection and list settings of a Source.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr" mapstructure:"addr"`

	// Password is the Redis server password.
	Password string `yaml:"password" mapstructure:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db" mapstructure:"db"`

	// List is the name of the list keys are popped from.
	List string `yaml:"list" mapstructure:"list"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `yaml:"pool_size" mapstructure:"pool_size"`

	// DialTimeout is the timeout for establishing new connections (e.g. "5s").
	DialTimeout string `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// BlockTimeout makes Next wait this long for a key before reporting
	// exhaustion (e.g. "2s"). Empty means never wait.
	BlockTimeout string `yaml:"block_timeout" mapstructure:"block_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.List == "" {
		return fmt.Errorf("redis list is required")
	}
	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf("invalid dial_timeout %q: %w", c.DialTimeout, err)
	}
	if c.BlockTimeout != "" {
		if _, err := time.ParseDuration(c.BlockTimeout); err != nil {
			return fmt.Errorf("invalid block_timeout %q: %w", c.BlockTimeout, err)
		}
	}
	return nil
}

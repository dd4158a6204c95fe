package prefetch

import (
	"time"

	"github.com/kbukum/prefetchkit/validation"
)

// Config configures a Loader.
type Config struct {
	// Workers is the size of the worker pool.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"min=1"`
	// PrefetchFactor multiplies Workers to give the window of outstanding tasks.
	PrefetchFactor int `yaml:"prefetch_factor" mapstructure:"prefetch_factor" validate:"min=1"`
	// TaskTimeout bounds each task's run time. Zero disables it.
	TaskTimeout time.Duration `yaml:"task_timeout" mapstructure:"task_timeout" validate:"gte=0"`
}

// DefaultConfig returns a single worker with a prefetch factor of two.
func DefaultConfig() Config {
	return Config{
		Workers:        1,
		PrefetchFactor: 2,
	}
}

// ApplyDefaults replaces unset (zero) sizes with the defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.PrefetchFactor == 0 {
		c.PrefetchFactor = d.PrefetchFactor
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c)
}

// Window returns the number of tasks kept outstanding between retrievals.
func (c Config) Window() int {
	return c.Workers * c.PrefetchFactor
}

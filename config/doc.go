// Package config loads prefetchctl configuration.
//
// Values come from, in increasing precedence: defaults, a YAML file, a .env
// file, and PREFETCH_-prefixed environment variables. Environment keys map
// onto nested fields by underscore, so PREFETCH_LOADER_WORKERS sets
// loader.workers and PREFETCH_LOADER_PREFETCH_FACTOR sets
// loader.prefetch_factor.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.Load("prefetchctl", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
package config

// Package logger provides structured logging for prefetchkit using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("prefetch")
//	log.Info("session started", logger.Fields("window", 8))
package logger

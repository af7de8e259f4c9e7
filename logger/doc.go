// Package logger provides structured logging for cachekit using zerolog.
//
// It supports JSON and console output, level configuration, component-scoped
// loggers and request-scoped enrichment from a context.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("client").WithContext(ctx)
//	log.Debug("retrying", logger.RetryFields(2, 200*time.Millisecond, err))
package logger

// Package logging provides structured logging for the MyQ bridge.
//
// It wraps the standard library's log/slog with bridge defaults: every record
// carries service and version fields, output format and level come from
// configuration, and component loggers are derived with With().
//
// # Usage
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("server listening", "port", cfg.Server.Port)
//
//	discoveryLog := log.With("component", "discovery")
package logging

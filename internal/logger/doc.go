// Package logger is the project's thin layer over zap. The process has
// one sugared logger with console output and an atomic level; contexts
// carry loggers derived from it.
//
// Components never hold a logger. They pass contexts, name them with
// WithName, stamp fields with WithKV and log through the package
// functions (Infof, WarnKV, ...), which read the logger back from the
// context.
package logger

// Package logging configures structured logging on top of log/slog.
package logging

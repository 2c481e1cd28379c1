// Package logging assembles structured slog loggers and formatting helpers used
// across Convoy.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run ids, thread ids, channel ids and request correlation ids.
// NewFromConfig writes human-readable lines to stdout and a daily JSON file
// under the configured log directory. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging

// Package services defines shared utilities consumed by the pipeline and its
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, thread IDs, channel IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and StatusCode to turn
//     a marked error into an HTTP status.
//
// Integrations with outside systems live in subpackages: llm for chat models
// and slack for the chat workspace API.
package services

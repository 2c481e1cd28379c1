// Package config loads, normalizes, and validates Convoy configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and SLACK_TOKEN. The Config type centralizes every knob
// the server and CLI need: where the database lives, which model extracts
// tasks, how strict grounding is, and how the Slack client paces itself.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

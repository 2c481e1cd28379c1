// Package store persists Convoy data in SQLite.
//
// Four tables live in one database file under the data directory:
//   - conversations: synced chat messages keyed by message id (the Slack ts)
//   - users: workspace members, used to resolve display names
//   - saved_tasks: merged tasks a user kept, with kanban column, position
//     and a permalink to the parent thread
//   - prompts: extraction prompt templates, one of them the built-in system
//     default
//
// The schema is embedded and versioned in schema.go. A database written by a
// different schema version is rejected with ErrSchemaMismatch rather than
// migrated; move the file aside and sync again.
//
// Writes retry while SQLite reports the database as busy, so the CLI and a
// running server can share the file.
package store

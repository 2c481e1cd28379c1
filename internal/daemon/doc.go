// Package daemon runs the long-lived Convoy API process.
//
// It wires configuration, the SQLite store and the HTTP handler into a single
// lifecycle with flock-based locking so two processes never serve the same
// data directory. Start seeds the built-in extraction prompt, prunes log
// files past the retention window and begins serving; Stop shuts the server
// down with a short grace period and releases the lock.
//
// Request handling lives in the api package; the daemon only owns startup,
// shutdown and the listener.
package daemon

// Package taskgen wires the pipeline together.
//
// Sync pulls a channel's messages, replies and members from Slack into the
// store. Prepare reads a date range back out and arranges it into threads.
// Generate runs one extraction per thread, strictly in sequence, then merges
// every surviving candidate with the chosen strategy and optionally saves
// the result. Each Generate call gets a fresh run id that tags its log lines.
package taskgen

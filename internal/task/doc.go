// Package task defines the candidate, evidence, and merged-task types that
// flow through extraction and consolidation, along with tolerant JSON
// decoding for model output that rarely matches its schema exactly.
package task

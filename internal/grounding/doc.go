// Package grounding decides whether an extracted task is supported by the
// thread it came from.
//
// Three checks live here:
//   - ValidateEvidence: the task's evidence must point at this thread and
//     name only message ids that exist in it. No partial credit.
//   - InferEvidenceMessageIDs: when evidence is missing or wrong, pick the
//     messages with the highest token overlap as replacement evidence.
//   - IsGrounded: the task's title and description must share enough
//     vocabulary with the thread text, by count or by ratio.
//
// Token overlap comes from textutil; thresholds are passed in so callers can
// tune them from configuration.
package grounding

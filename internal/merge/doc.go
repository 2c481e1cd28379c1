// Package merge consolidates task candidates from many threads into one
// deduplicated list while keeping every message that supports each task.
//
// Three strategies are available:
//   - title-normalize: candidates whose normalized titles match collapse
//     into one task. The longest description wins.
//   - title-normalize+fuzzy: as above, but a new title also joins an existing
//     task when their content words overlap by at least the fuzzy threshold.
//   - threadId-one-task: one task per evidence thread, chosen by score, then
//     an exact title and description collapse across threads.
//
// Sources are always folded to one entry per thread id holding the union of
// message ids, in first-seen order. Merge is pure and safe for concurrent use.
package merge

// Package extraction turns one chat thread into a short list of grounded
// tasks.
//
// ExtractThreadTasks renders the extraction prompt for the thread and sends
// it to an llm.Provider. The reply goes through parser.Parse. The candidates
// that come back are then filtered in a fixed order:
//
//  1. drop code and pull request review chores
//  2. pin evidence to the thread and repair it from token overlap when the
//     model cited unknown messages
//  3. drop tasks whose wording is not supported by the thread text
//  4. rank by scoring.Score and keep the best MaxTasksPerThread
//
// Stage counts are returned in Stats and logged; they are not part of the
// contract. Nothing here retries: one call, one thread, and the caller
// decides what a failure means for the rest of its batch.
package extraction

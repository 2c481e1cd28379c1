// Package thread models chat threads and assembles them from stored messages.
//
// A Thread is the unit of extraction: one parent message plus its replies,
// or a single standalone message. Assemble turns the flat rows persisted by
// the store into threads, and ResolveUserNames swaps raw user ids for
// display names before anything reaches a prompt.
package thread

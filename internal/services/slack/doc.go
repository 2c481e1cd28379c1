// Package slack reads channel history, thread replies and the member list
// from the Slack Web API.
//
// Requests authenticate with a Bearer token and, for browser-session
// tokens, the matching d cookie. A token bucket from golang.org/x/time/rate
// paces every call. Pagination follows response_metadata.next_cursor.
// Responses with ok=false surface as *APIError; there is no retry loop.
package slack

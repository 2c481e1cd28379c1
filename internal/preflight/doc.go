// Package preflight provides readiness checks for the directories and
// external services Convoy depends on.
//
// The CLI "convoy status" command runs RunAll and renders each Result as a
// table row. Checks never return errors; a failure is a Result with Passed
// unset and a Detail a person can act on.
package preflight

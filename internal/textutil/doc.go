// Package textutil provides the token-level text helpers shared by grounding,
// scoring, and merging.
//
// The primary use cases are:
//   - Tokenizing free text into the overlap vocabulary (lowercase, stopwords
//     removed, tokens of three or more characters)
//   - Counting and ratioing token overlap between two texts
//   - Token-set Jaccard similarity for fuzzy title matching
//   - Coercing loosely typed JSON scalars into strings
//
// Everything here is pure and allocation-light; none of it touches the
// network or disk.
package textutil

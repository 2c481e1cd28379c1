package textutil

import (
	"regexp"
	"strings"
)

// overlapSplitPattern matches runs of characters outside the overlap alphabet.
// Dots are kept so version numbers like 2.4 survive as one token.
var overlapSplitPattern = regexp.MustCompile(`[^a-z0-9.]+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "can": {}, "could": {}, "did": {}, "do": {}, "does": {}, "done": {},
	"for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "he": {}, "her": {},
	"hers": {}, "him": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "just": {}, "let": {}, "like": {},
	"me": {}, "my": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "our": {},
	"ours": {}, "out": {}, "please": {}, "should": {}, "so": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "to": {}, "too": {}, "up": {}, "us": {}, "was": {},
	"we": {}, "were": {}, "what": {}, "when": {}, "where": {}, "who": {}, "why": {},
	"will": {}, "with": {}, "you": {}, "your": {}, "yours": {},
}

// IsStopword reports whether token is in the overlap stopword list.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// Tokenize splits text into the overlap vocabulary: lowercase tokens drawn
// from [a-z0-9.], longer than two characters, with stopwords removed.
// Duplicates are preserved; callers that need set semantics use TokenSet.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	spaced := overlapSplitPattern.ReplaceAllString(lowered, " ")
	raw := strings.Fields(spaced)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) <= 2 || IsStopword(token) {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// TokenSet returns the distinct members of tokens.
func TokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

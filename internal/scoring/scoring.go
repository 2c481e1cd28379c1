// Package scoring ranks extracted tasks. Titles earn points for specific
// vocabulary; descriptions earn points for narrative structure and lose
// points for template artifacts.
package scoring

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"convoy/internal/textutil"
)

var (
	titleSeparatorPattern = regexp.MustCompile(`[^a-z0-9]+`)
	sentenceEndPattern    = regexp.MustCompile(`[.!?](\s|$)`)
	outcomePattern        = regexp.MustCompile(`(?i)\b(so that|so we|in order to|as a result|next step|we should)\b`)
	bulletLinePattern     = regexp.MustCompile(`\n-\s`)
	criteriaPattern       = regexp.MustCompile(`(?i)acceptance criteria`)
	leakedEvidencePattern = regexp.MustCompile(`evidence:\s*\[`)
	boilerplatePattern    = regexp.MustCompile(`(?i)needs to be (fixed|checked|updated)`)
)

var genericTitleWords = map[string]struct{}{
	"fix": {}, "bug": {}, "issue": {}, "update": {}, "validation": {},
	"logic": {}, "check": {}, "broken": {}, "problem": {}, "thing": {},
}

const maxCountedTitleTokens = 12

// NormalizeTitle lowercases title, collapses every non-alphanumeric run to a
// single space, and trims. It is the merge key for titles.
func NormalizeTitle(title string) string {
	lowered := strings.ToLower(title)
	return strings.TrimSpace(titleSeparatorPattern.ReplaceAllString(lowered, " "))
}

// TitleSpecificity scores a title by how many of its words carry meaning.
// Titles made only of generic words score below zero.
func TitleSpecificity(title string) int {
	tokens := strings.Fields(NormalizeTitle(title))
	nonGeneric := 0
	for _, token := range tokens {
		if _, generic := genericTitleWords[token]; !generic {
			nonGeneric++
		}
	}
	score := min(len(tokens), maxCountedTitleTokens) + nonGeneric*2
	if nonGeneric == 0 {
		score -= 100
	}
	return score
}

// ContentWords returns the words of the normalized title that are neither
// generic title words nor stopwords, in order. "Fix the login bug" and
// "Fix login bug issue" both reduce to [login].
func ContentWords(title string) []string {
	tokens := strings.Fields(NormalizeTitle(title))
	words := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, generic := genericTitleWords[token]; generic {
			continue
		}
		if textutil.IsStopword(token) {
			continue
		}
		words = append(words, token)
	}
	return words
}

// DescriptionQuality scores a description, starting from its trimmed length.
func DescriptionQuality(desc string) int {
	trimmed := strings.TrimSpace(desc)
	score := utf8.RuneCountInString(trimmed)

	sentences := CountSentences(trimmed)
	if sentences >= 2 {
		score += 40
	}
	if sentences >= 3 {
		score += 20
	}
	if sentences > 6 {
		score -= 50
	}

	if outcomePattern.MatchString(desc) {
		score += 25
	}
	if bulletLinePattern.MatchString(desc) {
		score -= 30
	}
	if criteriaPattern.MatchString(desc) {
		score -= 80
	}
	if leakedEvidencePattern.MatchString(desc) {
		score -= 80
	}
	if boilerplatePattern.MatchString(desc) {
		score -= 200
	}
	return score
}

// CountSentences counts sentence terminators followed by whitespace or the
// end of text. Non-empty text without a terminator is one sentence.
func CountSentences(text string) int {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	matches := sentenceEndPattern.FindAllStringIndex(t, -1)
	if len(matches) == 0 {
		return 1
	}
	return len(matches)
}

// Score is the combined rank used when choosing between tasks.
func Score(title, description string) int {
	return TitleSpecificity(title) + DescriptionQuality(description)
}

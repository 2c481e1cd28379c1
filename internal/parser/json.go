package parser

import (
	"regexp"

	"convoy/internal/task"
)

var (
	fencedArrayPattern = regexp.MustCompile("```(?:json)?\\s*(\\[[\\s\\S]*?\\])\\s*```")
	firstArrayPattern  = regexp.MustCompile(`\[[\s\S]*?\]`)
)

// directStrategy accepts a response that is nothing but a JSON array.
type directStrategy struct{}

func (directStrategy) Name() string { return "direct" }

func (directStrategy) Try(text string) Result {
	return decodeArray(text)
}

// fencedStrategy reads the first fenced code block holding an array.
type fencedStrategy struct{}

func (fencedStrategy) Name() string { return "fenced" }

func (fencedStrategy) Try(text string) Result {
	match := fencedArrayPattern.FindStringSubmatch(text)
	if match == nil {
		return fail("no fenced array block")
	}
	return decodeArray(match[1])
}

// bracketStrategy reads the shortest bracketed span starting at the first
// '['. Nested arrays end the span early and fail to decode.
type bracketStrategy struct{}

func (bracketStrategy) Name() string { return "bracket" }

func (bracketStrategy) Try(text string) Result {
	span := firstArrayPattern.FindString(text)
	if span == "" {
		return fail("no bracketed span")
	}
	return decodeArray(span)
}

func decodeArray(text string) Result {
	tasks, err := task.DecodeCandidates([]byte(text))
	if err != nil {
		return fail(err.Error())
	}
	return ok(tasks)
}

package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"convoy/internal/task"
)

var (
	numberedHeadPattern = regexp.MustCompile(`(\d+)\.\s*\*\*([^*]+)\*\*[:-]?\s*([^\n]+)`)
	bulletHeadPattern   = regexp.MustCompile(`\*\s*\*\*([^*]+)\*\*[:-]?\s*([^\n]+)`)
	actionLinePattern   = regexp.MustCompile(`(?m)(?:^|\n)(?:-|\*)\s*([A-Z][^:]+?):\s*([^\n]+)`)
	numberedLinePattern = regexp.MustCompile(`^\d+\.`)
)

// actionKeywords gates plain "- Title: description" lines, which are too
// common in prose to accept without a hint that they describe work.
var actionKeywords = []string{"api", "filter", "issue", "fix", "export", "feature"}

const minNarrativeTitleLen = 4

// narrativeStrategy scans markdown-style task lists when no JSON is present.
type narrativeStrategy struct{}

func (narrativeStrategy) Name() string { return "narrative" }

func (narrativeStrategy) Try(text string) Result {
	var tasks []task.Candidate
	seen := make(map[string]struct{})
	add := func(title, description string) {
		tasks = append(tasks, task.Candidate{Title: title, Description: description})
		seen[title] = struct{}{}
	}

	for _, item := range scanItems(text, numberedHeadPattern, isNumberedLine) {
		if item.title != "" && item.description != "" && longEnough(item.title) {
			add(item.title, item.description)
		}
	}

	for _, item := range scanItems(text, bulletHeadPattern, isBulletLine) {
		if _, dup := seen[item.title]; dup {
			continue
		}
		if item.title != "" && item.description != "" && longEnough(item.title) {
			add(item.title, item.description)
		}
	}

	for _, match := range actionLinePattern.FindAllStringSubmatch(text, -1) {
		title := strings.TrimSpace(match[1])
		description := strings.TrimSpace(match[2])
		if title == "" || description == "" || !longEnough(title) {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		if !hasActionKeyword(title) {
			continue
		}
		add(title, description)
	}

	if len(tasks) == 0 {
		return fail("no task-like list items")
	}
	return ok(tasks)
}

type narrativeItem struct {
	title       string
	description string
}

// scanItems finds every head match in text and extends its description over
// following non-empty lines until one satisfies stop. The title is the last
// capture group before the description.
func scanItems(text string, head *regexp.Regexp, stop func(line string) bool) []narrativeItem {
	var items []narrativeItem
	pos := 0
	for pos < len(text) {
		loc := head.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		groups := len(loc)/2 - 1
		titleStart, titleEnd := pos+loc[2*(groups-1)], pos+loc[2*(groups-1)+1]
		descStart, descEnd := pos+loc[2*groups], pos+loc[2*groups+1]
		descEnd = extendLines(text, descEnd, stop)
		items = append(items, narrativeItem{
			title:       strings.TrimSpace(text[titleStart:titleEnd]),
			description: strings.TrimSpace(text[descStart:descEnd]),
		})
		pos = descEnd
	}
	return items
}

func extendLines(text string, end int, stop func(line string) bool) int {
	for end < len(text) && text[end] == '\n' {
		rest := text[end+1:]
		lineLen := strings.IndexByte(rest, '\n')
		if lineLen < 0 {
			lineLen = len(rest)
		}
		line := rest[:lineLen]
		if line == "" || stop(line) {
			break
		}
		end += 1 + lineLen
	}
	return end
}

func isNumberedLine(line string) bool {
	return numberedLinePattern.MatchString(line)
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "*")
}

func longEnough(title string) bool {
	return utf8.RuneCountInString(title) >= minNarrativeTitleLen
}

func hasActionKeyword(title string) bool {
	lowered := strings.ToLower(title)
	for _, keyword := range actionKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

package merge

import (
	"errors"
	"strings"
	"unicode/utf8"

	"convoy/internal/scoring"
	"convoy/internal/task"
	"convoy/internal/textutil"
)

// Strategy names a merge algorithm.
type Strategy string

const (
	TitleNormalize      Strategy = "title-normalize"
	TitleNormalizeFuzzy Strategy = "title-normalize+fuzzy"
	ThreadIDOneTask     Strategy = "threadId-one-task"
)

// DefaultFuzzyThreshold is the minimum content-word Jaccard similarity at
// which two titles are treated as the same task.
const DefaultFuzzyThreshold = 0.8

// ErrCandidatesRequired reports a nil candidate list.
var ErrCandidatesRequired = errors.New("candidates must be an array")

// Strategies lists the supported strategy names.
func Strategies() []Strategy {
	return []Strategy{TitleNormalize, TitleNormalizeFuzzy, ThreadIDOneTask}
}

// ParseStrategy maps a name to a Strategy. Blank and unknown names select
// TitleNormalize; ok is false only for unknown non-blank names.
func ParseStrategy(name string) (Strategy, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return TitleNormalize, true
	}
	for _, s := range Strategies() {
		if string(s) == trimmed {
			return s, true
		}
	}
	return TitleNormalize, false
}

// Options configures MergeWithOptions.
type Options struct {
	Strategy       Strategy
	FuzzyThreshold float64
}

// Merge consolidates candidates with the given strategy and the default
// fuzzy threshold.
func Merge(candidates []task.Candidate, strategy Strategy) ([]task.Merged, error) {
	return MergeWithOptions(candidates, Options{Strategy: strategy})
}

// MergeWithOptions consolidates candidates. An empty slice yields an empty
// result; a nil slice is ErrCandidatesRequired.
func MergeWithOptions(candidates []task.Candidate, opts Options) ([]task.Merged, error) {
	if candidates == nil {
		return nil, ErrCandidatesRequired
	}
	threshold := opts.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	strategy, _ := ParseStrategy(string(opts.Strategy))
	switch strategy {
	case ThreadIDOneTask:
		return mergeOnePerThread(candidates), nil
	case TitleNormalizeFuzzy:
		return mergeByTitle(candidates, true, threshold), nil
	default:
		return mergeByTitle(candidates, false, threshold), nil
	}
}

type draft struct {
	title       string
	description string
	sources     []task.Source
}

func (d *draft) addEvidence(c task.Candidate) {
	if c.Evidence == nil {
		return
	}
	ids := nonEmpty(c.Evidence.MessageIDs)
	if c.Evidence.ThreadID == "" && len(ids) == 0 {
		return
	}
	d.sources = append(d.sources, task.Source{ThreadID: c.Evidence.ThreadID, MessageIDs: ids})
}

func (d *draft) keepLongerDescription(description string) {
	if utf8.RuneCountInString(description) > utf8.RuneCountInString(d.description) {
		d.description = description
	}
}

func (d *draft) finish() task.Merged {
	return task.Merged{
		Title:       d.title,
		Description: d.description,
		Sources:     dedupeSources(d.sources),
	}
}

func mergeByTitle(candidates []task.Candidate, fuzzy bool, threshold float64) []task.Merged {
	byKey := make(map[string]*draft)
	var keys []string
	for _, c := range candidates {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			continue
		}
		key := scoring.NormalizeTitle(title)
		if fuzzy {
			if _, exact := byKey[key]; !exact {
				key = fuzzyKey(keys, key, threshold)
			}
		}

		existing, found := byKey[key]
		if !found {
			d := &draft{title: title, description: c.Description}
			d.addEvidence(c)
			byKey[key] = d
			keys = append(keys, key)
			continue
		}
		existing.keepLongerDescription(c.Description)
		existing.addEvidence(c)
	}

	out := make([]task.Merged, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key].finish())
	}
	return out
}

// fuzzyKey returns the existing key most similar to key when the similarity
// reaches threshold, or key itself. Earlier keys win ties.
func fuzzyKey(keys []string, key string, threshold float64) string {
	content := strings.Join(scoring.ContentWords(key), " ")
	bestKey := key
	bestScore := 0.0
	for _, existing := range keys {
		score := textutil.WordJaccard(strings.Join(scoring.ContentWords(existing), " "), content)
		if score > bestScore {
			bestScore = score
			bestKey = existing
		}
	}
	if bestScore >= threshold {
		return bestKey
	}
	return key
}

func mergeOnePerThread(candidates []task.Candidate) []task.Merged {
	groups := make(map[string][]task.Candidate)
	var order []string
	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" || c.Evidence == nil {
			continue
		}
		threadID := strings.TrimSpace(c.Evidence.ThreadID)
		if threadID == "" {
			continue
		}
		if _, ok := groups[threadID]; !ok {
			order = append(order, threadID)
		}
		groups[threadID] = append(groups[threadID], c)
	}

	merged := make([]task.Merged, 0, len(order))
	for _, threadID := range order {
		group := groups[threadID]
		best := pickBest(group)
		d := &draft{title: strings.TrimSpace(best.Title), description: best.Description}
		// Every candidate in the thread contributes evidence, including the
		// ones that lost on score.
		for _, c := range group {
			d.addEvidence(c)
		}
		merged = append(merged, d.finish())
	}
	return dedupeExact(merged)
}

// pickBest returns the highest scoring candidate. The first one wins ties.
func pickBest(group []task.Candidate) task.Candidate {
	best := group[0]
	bestScore := scoring.Score(best.Title, best.Description)
	for _, c := range group[1:] {
		if score := scoring.Score(c.Title, c.Description); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// dedupeExact collapses tasks with the same normalized title and
// description, unioning their sources.
func dedupeExact(tasks []task.Merged) []task.Merged {
	byKey := make(map[string]*draft)
	var keys []string
	for _, t := range tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		key := scoring.NormalizeTitle(title) + "\n" + normalizeDescription(t.Description)
		existing, found := byKey[key]
		if !found {
			byKey[key] = &draft{title: title, description: t.Description, sources: t.Sources}
			keys = append(keys, key)
			continue
		}
		existing.keepLongerDescription(t.Description)
		existing.sources = append(existing.sources, t.Sources...)
	}

	out := make([]task.Merged, 0, len(keys))
	for _, key := range keys {
		out = append(out, byKey[key].finish())
	}
	return out
}

func normalizeDescription(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// dedupeSources folds sources to one entry per thread id, in first-seen
// order, with the union of message ids in first-seen order.
func dedupeSources(sources []task.Source) []task.Source {
	out := make([]task.Source, 0, len(sources))
	index := make(map[string]int, len(sources))
	seen := make(map[string]map[string]struct{}, len(sources))
	for _, src := range sources {
		i, ok := index[src.ThreadID]
		if !ok {
			i = len(out)
			index[src.ThreadID] = i
			seen[src.ThreadID] = make(map[string]struct{})
			out = append(out, task.Source{ThreadID: src.ThreadID, MessageIDs: []string{}})
		}
		for _, id := range src.MessageIDs {
			if id == "" {
				continue
			}
			if _, dup := seen[src.ThreadID][id]; dup {
				continue
			}
			seen[src.ThreadID][id] = struct{}{}
			out[i].MessageIDs = append(out[i].MessageIDs, id)
		}
	}
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

package grounding

import (
	"sort"

	"convoy/internal/task"
	"convoy/internal/textutil"
	"convoy/internal/thread"
)

// Options tunes the grounding check. A task is grounded when it shares at
// least MinOverlapTokens distinct tokens with the source text, or when at
// least MinOverlapRatio of its own distinct tokens appear there.
type Options struct {
	MinOverlapRatio  float64
	MinOverlapTokens int
}

// InferOptions tunes evidence inference.
type InferOptions struct {
	MaxIDs           int
	MinOverlapTokens int
}

// DefaultOptions returns the grounding thresholds used by extraction.
func DefaultOptions() Options {
	return Options{MinOverlapRatio: 0.06, MinOverlapTokens: 2}
}

// DefaultInferOptions returns the evidence inference limits used by extraction.
func DefaultInferOptions() InferOptions {
	return InferOptions{MaxIDs: 3, MinOverlapTokens: 1}
}

func taskTokens(c task.Candidate) []string {
	return textutil.Tokenize(c.Title + " " + c.Description)
}

// IsGrounded reports whether the candidate's title and description share
// enough vocabulary with sourceText. An empty side never grounds.
func IsGrounded(c task.Candidate, sourceText string, opts Options) bool {
	tokens := taskTokens(c)
	source := textutil.Tokenize(sourceText)
	if len(tokens) == 0 || len(source) == 0 {
		return false
	}
	if textutil.OverlapCount(tokens, source) >= opts.MinOverlapTokens {
		return true
	}
	return textutil.OverlapRatio(tokens, source) >= opts.MinOverlapRatio
}

type scoredMessage struct {
	id    string
	count int
}

// InferEvidenceMessageIDs picks the thread messages that best support the
// candidate, by distinct token overlap with the candidate's title and
// description. Messages without an id are ignored. Ties keep thread order.
func InferEvidenceMessageIDs(c task.Candidate, th thread.Thread, opts InferOptions) []string {
	tokens := taskTokens(c)
	if len(tokens) == 0 {
		return nil
	}
	scored := make([]scoredMessage, 0, len(th.Messages))
	for _, msg := range th.Messages {
		if msg.MessageID == "" {
			continue
		}
		count := textutil.OverlapCount(tokens, textutil.Tokenize(msg.Text))
		if count < opts.MinOverlapTokens {
			continue
		}
		scored = append(scored, scoredMessage{id: msg.MessageID, count: count})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].count > scored[j].count
	})

	seen := make(map[string]struct{}, len(scored))
	var ids []string
	for _, s := range scored {
		if _, dup := seen[s.id]; dup {
			continue
		}
		seen[s.id] = struct{}{}
		ids = append(ids, s.id)
		if len(ids) >= opts.MaxIDs {
			break
		}
	}
	return ids
}

// ValidateEvidence reports whether the candidate's evidence points at the
// given thread and names only messages that exist in it. At least one id is
// required; a single unknown id fails the whole check.
func ValidateEvidence(c task.Candidate, th thread.Thread) bool {
	if c.Evidence == nil {
		return false
	}
	if c.Evidence.ThreadID != th.ThreadID {
		return false
	}
	ids := nonEmpty(c.Evidence.MessageIDs)
	if len(ids) == 0 {
		return false
	}
	known := th.MessageIDs()
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return false
		}
	}
	return true
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

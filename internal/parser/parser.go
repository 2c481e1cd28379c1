// Package parser recovers a task array from free-form model output.
//
// Models are asked for a bare JSON array but routinely wrap it in prose or
// code fences, or answer with a markdown list instead. Parse tries a fixed
// chain of strategies and returns the first one that succeeds. Parsing never
// fails loudly: the worst outcome is a Result with no tasks and a reason.
package parser

import (
	"strings"

	"convoy/internal/task"
)

// Result is the outcome of one strategy, or of the whole chain.
type Result struct {
	OK       bool
	Tasks    []task.Candidate
	Strategy string
	Reason   string
}

// Strategy is one way of pulling tasks out of a response.
type Strategy interface {
	Name() string
	Try(text string) Result
}

func ok(tasks []task.Candidate) Result {
	if tasks == nil {
		tasks = []task.Candidate{}
	}
	return Result{OK: true, Tasks: tasks}
}

func fail(reason string) Result {
	return Result{Reason: reason}
}

// Strategies returns the fixed chain in priority order.
func Strategies() []Strategy {
	return []Strategy{
		directStrategy{},
		fencedStrategy{},
		bracketStrategy{},
		narrativeStrategy{},
	}
}

// Parse runs the strategy chain over text and returns the first successful
// result, tagged with the strategy name. When every strategy fails, the
// returned reasons are joined in chain order.
func Parse(text string) Result {
	if strings.TrimSpace(text) == "" {
		return fail("empty response")
	}
	reasons := make([]string, 0, 4)
	for _, strategy := range Strategies() {
		res := strategy.Try(text)
		if res.OK {
			res.Strategy = strategy.Name()
			return res
		}
		reasons = append(reasons, strategy.Name()+": "+res.Reason)
	}
	return fail(strings.Join(reasons, "; "))
}

// Tasks returns the candidates recovered from text, or an empty slice.
func Tasks(text string) []task.Candidate {
	res := Parse(text)
	if !res.OK {
		return []task.Candidate{}
	}
	return res.Tasks
}

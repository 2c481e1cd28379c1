package task

import (
	"bytes"
	"encoding/json"
	"fmt"

	"convoy/internal/textutil"
)

// Evidence ties a candidate to the messages it was extracted from.
type Evidence struct {
	ThreadID   string   `json:"threadId"`
	MessageIDs []string `json:"messageIds"`
}

// UnmarshalJSON coerces scalar ids to strings and treats a non-array
// messageIds as empty.
func (e *Evidence) UnmarshalJSON(data []byte) error {
	var raw struct {
		ThreadID   json.RawMessage `json:"threadId"`
		MessageIDs json.RawMessage `json:"messageIds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode evidence: %w", err)
	}
	*e = Evidence{
		ThreadID:   textutil.ScalarString(raw.ThreadID),
		MessageIDs: textutil.ScalarStrings(raw.MessageIDs),
	}
	return nil
}

// Candidate is an untrusted task proposal, usually straight from model output.
type Candidate struct {
	Title       string    `json:"task_title"`
	Description string    `json:"task_description"`
	Evidence    *Evidence `json:"evidence,omitempty"`
}

// UnmarshalJSON accepts titles and descriptions of any scalar type and drops
// evidence that is not a JSON object.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title       json.RawMessage `json:"task_title"`
		Description json.RawMessage `json:"task_description"`
		Evidence    json.RawMessage `json:"evidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}
	*c = Candidate{
		Title:       textutil.ScalarString(raw.Title),
		Description: textutil.ScalarString(raw.Description),
	}
	if ev := bytes.TrimSpace(raw.Evidence); len(ev) > 0 && ev[0] == '{' {
		var evidence Evidence
		if err := json.Unmarshal(ev, &evidence); err == nil {
			c.Evidence = &evidence
		}
	}
	return nil
}

// Source records one thread that contributed to a merged task.
type Source struct {
	ThreadID   string   `json:"threadId"`
	MessageIDs []string `json:"messageIds"`
}

// Merged is a consolidated task with the provenance of every candidate folded
// into it.
type Merged struct {
	Title       string   `json:"task_title"`
	Description string   `json:"task_description"`
	Sources     []Source `json:"sources"`
}

// DecodeCandidates decodes a JSON array of candidates. Elements that are not
// objects are skipped; a payload that is not an array is an error.
func DecodeCandidates(data []byte) ([]Candidate, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("decode candidates: not an array")
	}
	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		trimmed := bytes.TrimSpace(item)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			continue
		}
		var c Candidate
		if err := json.Unmarshal(trimmed, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

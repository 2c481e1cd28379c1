package task

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeCandidatesSkipsNonObjects(t *testing.T) {
	payload := `[
		{"task_title": "Fix CSV export", "task_description": "Export drops rows.", "evidence": {"threadId": 17.5, "messageIds": [17.5, "17.6", null]}},
		"stray string",
		42,
		{"task_title": 12345, "task_description": null, "evidence": "bogus"}
	]`
	got, err := DecodeCandidates([]byte(payload))
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	want := []Candidate{
		{
			Title:       "Fix CSV export",
			Description: "Export drops rows.",
			Evidence:    &Evidence{ThreadID: "17.5", MessageIDs: []string{"17.5", "17.6"}},
		},
		{Title: "12345"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCandidatesRejectsNonArray(t *testing.T) {
	for _, payload := range []string{`{"task_title":"x"}`, `null`, `"[]"`, `not json`} {
		if _, err := DecodeCandidates([]byte(payload)); err == nil {
			t.Fatalf("expected error for %s", payload)
		}
	}
}

func TestDecodeCandidatesEmptyArray(t *testing.T) {
	got, err := DecodeCandidates([]byte(`[]`))
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestEvidenceNonArrayMessageIDs(t *testing.T) {
	var ev Evidence
	if err := json.Unmarshal([]byte(`{"threadId":"t1","messageIds":"m1"}`), &ev); err != nil {
		t.Fatalf("unmarshal evidence: %v", err)
	}
	if ev.ThreadID != "t1" || len(ev.MessageIDs) != 0 {
		t.Fatalf("unexpected evidence: %+v", ev)
	}
}

func TestMergedMarshalShape(t *testing.T) {
	m := Merged{Title: "Fix export", Description: "d", Sources: []Source{{ThreadID: "t1", MessageIDs: []string{"m1"}}}}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal merged: %v", err)
	}
	want := `{"task_title":"Fix export","task_description":"d","sources":[{"threadId":"t1","messageIds":["m1"]}]}`
	if string(data) != want {
		t.Fatalf("marshal = %s, want %s", data, want)
	}
}

package grounding

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"convoy/internal/task"
	"convoy/internal/thread"
)

func exportThread() thread.Thread {
	return thread.Thread{
		ThreadID:     "T1",
		MessageCount: 3,
		Messages: []thread.Message{
			{Role: thread.RoleParent, MessageID: "m1", Text: "The CSV export drops the last row"},
			{Role: thread.RoleReply, MessageID: "m2", Text: "Confirmed, export of invoices is missing the final CSV row"},
			{Role: thread.RoleReply, MessageID: "m3", Text: "thanks"},
		},
	}
}

func TestEmptyTaskNeverGrounds(t *testing.T) {
	opts := Options{MinOverlapRatio: 0, MinOverlapTokens: 0}
	empty := task.Candidate{}
	if IsGrounded(empty, "anything at all about exports", opts) {
		t.Fatal("empty candidate must not ground even with zero thresholds")
	}
	stopwordsOnly := task.Candidate{Title: "do it", Description: "we should"}
	if IsGrounded(stopwordsOnly, "do it now", DefaultOptions()) {
		t.Fatal("candidate with no overlap tokens must not ground")
	}
	real := task.Candidate{Title: "Fix CSV export"}
	if IsGrounded(real, "", opts) {
		t.Fatal("empty source text must not ground")
	}
}

func TestIsGroundedByCountOrRatio(t *testing.T) {
	source := exportThread().Text()
	byCount := task.Candidate{Title: "Fix CSV export", Description: "Restore the final row"}
	if !IsGrounded(byCount, source, DefaultOptions()) {
		t.Fatal("expected grounded candidate by token count")
	}

	// One shared token out of two distinct tokens: count 1 < 2, ratio 0.5 >= 0.06.
	byRatio := task.Candidate{Title: "invoices dashboard"}
	if !IsGrounded(byRatio, source, DefaultOptions()) {
		t.Fatal("expected grounded candidate by ratio")
	}

	unrelated := task.Candidate{Title: "Migrate kubernetes cluster", Description: "Upgrade nodes."}
	if IsGrounded(unrelated, source, DefaultOptions()) {
		t.Fatal("expected unrelated candidate to fail grounding")
	}
}

func TestValidateEvidenceIsExactSubset(t *testing.T) {
	th := exportThread()
	tests := []struct {
		name     string
		evidence *task.Evidence
		want     bool
	}{
		{"nil evidence", nil, false},
		{"wrong thread", &task.Evidence{ThreadID: "T2", MessageIDs: []string{"m1"}}, false},
		{"empty ids", &task.Evidence{ThreadID: "T1"}, false},
		{"only blank ids", &task.Evidence{ThreadID: "T1", MessageIDs: []string{""}}, false},
		{"one unknown id", &task.Evidence{ThreadID: "T1", MessageIDs: []string{"m1", "m9"}}, false},
		{"subset", &task.Evidence{ThreadID: "T1", MessageIDs: []string{"m1", "m2"}}, true},
		{"subset with blank", &task.Evidence{ThreadID: "T1", MessageIDs: []string{"m3", ""}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := task.Candidate{Title: "x", Evidence: tt.evidence}
			if got := ValidateEvidence(c, th); got != tt.want {
				t.Fatalf("ValidateEvidence = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferEvidenceMessageIDsRanksByOverlap(t *testing.T) {
	c := task.Candidate{Title: "Fix CSV export final row", Description: "Invoices export is missing a row."}
	got := InferEvidenceMessageIDs(c, exportThread(), DefaultInferOptions())
	// m2 shares csv/export/invoices/missing/final/row; m1 shares csv/export/row.
	if diff := cmp.Diff([]string{"m2", "m1"}, got); diff != "" {
		t.Fatalf("inferred ids mismatch (-want +got):\n%s", diff)
	}
}

func TestInferEvidenceMessageIDsCapsAndSkipsBlankIDs(t *testing.T) {
	th := thread.Thread{
		ThreadID: "T",
		Messages: []thread.Message{
			{MessageID: "", Text: "export export"},
			{MessageID: "a", Text: "export"},
			{MessageID: "b", Text: "export"},
			{MessageID: "a", Text: "export"},
			{MessageID: "c", Text: "export"},
		},
	}
	got := InferEvidenceMessageIDs(task.Candidate{Title: "export"}, th, InferOptions{MaxIDs: 2, MinOverlapTokens: 1})
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("inferred ids mismatch (-want +got):\n%s", diff)
	}
}

func TestInferEvidenceMessageIDsEmptyTask(t *testing.T) {
	if got := InferEvidenceMessageIDs(task.Candidate{}, exportThread(), DefaultInferOptions()); len(got) != 0 {
		t.Fatalf("expected no ids for empty task, got %v", got)
	}
}

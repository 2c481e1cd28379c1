package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"convoy/internal/logging"
	"convoy/internal/services"
	"convoy/internal/services/llm"
	"convoy/internal/task"
	"convoy/internal/thread"
)

type fakeProvider struct {
	reply    string
	err      error
	requests []llm.CompletionRequest
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func newTestExtractor(p llm.Provider) *Extractor {
	return New(p, DefaultOptions(), logging.NewNop())
}

func loginThread() thread.Thread {
	return thread.Thread{
		ThreadID: "T1",
		Messages: []thread.Message{
			{MessageID: "m1", Text: "Can someone fix the login page redirect bug?"},
		},
	}
}

func invoiceThread() thread.Thread {
	return thread.Thread{
		ThreadID:     "T2",
		MessageCount: 2,
		Messages: []thread.Message{
			{Role: thread.RoleParent, MessageID: "m1", Text: "The invoices export job drops rows for customer accounts during nightly sync"},
			{Role: thread.RoleReply, MessageID: "m2", Text: "Seeing the same with the billing dashboard totals"},
		},
	}
}

func TestEndToEndSingleThread(t *testing.T) {
	reply := `[{"task_title":"Fix login redirect bug","task_description":"Login page redirects to wrong URL after auth; needs a fix so users land on the dashboard.","evidence":{"threadId":"T1","messageIds":["m1"]}}]`
	provider := &fakeProvider{reply: reply}

	res, err := newTestExtractor(provider).ExtractThreadTasks(context.Background(), loginThread(), Request{Model: "test/model"})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	want := []task.Candidate{{
		Title:       "Fix login redirect bug",
		Description: "Login page redirects to wrong URL after auth; needs a fix so users land on the dashboard.",
		Evidence:    &task.Evidence{ThreadID: "T1", MessageIDs: []string{"m1"}},
	}}
	if diff := cmp.Diff(want, res.Tasks); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
	if res.ThreadID != "T1" || res.ParseStrategy != "direct" {
		t.Fatalf("unexpected result metadata: %+v", res)
	}
	wantStats := Stats{Parsed: 1, Kept: 1, Returned: 1}
	if diff := cmp.Diff(wantStats, res.Stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestComposition(t *testing.T) {
	provider := &fakeProvider{reply: "[]"}
	ex := newTestExtractor(provider)
	if _, err := ex.ExtractThreadTasks(context.Background(), loginThread(), Request{Model: " m "}); err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("expected one provider call, got %d", len(provider.requests))
	}
	req := provider.requests[0]
	if req.Model != "m" || req.Temperature != 0 || req.MaxTokens != 3000 {
		t.Fatalf("unexpected generation settings: %+v", req)
	}
	wantSystem := strings.TrimSpace(DefaultGroundingRules + "\n" + DefaultSystemMessage)
	if req.SystemMessage != wantSystem {
		t.Fatalf("system message mismatch:\n%s", req.SystemMessage)
	}
	for _, fragment := range []string{SchemaDescription, `"threadId": "T1"`, `"messageId": "m1"`, "Thread (JSON):"} {
		if !strings.Contains(req.UserPrompt, fragment) {
			t.Fatalf("prompt missing %q:\n%s", fragment, req.UserPrompt)
		}
	}

	temp := 0.4
	_, err := ex.ExtractThreadTasks(context.Background(), loginThread(), Request{
		SystemPrompt:   "Be brief.",
		GroundingRules: "RULES",
		Temperature:    &temp,
		MaxTokens:      500,
	})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	req = provider.requests[1]
	if req.SystemMessage != "RULES\nBe brief." || req.Temperature != 0.4 || req.MaxTokens != 500 {
		t.Fatalf("overrides not applied: %+v", req)
	}
}

func TestPerThreadCapKeepsHighestScored(t *testing.T) {
	// Titles score the same; descriptions grow with i, so higher i ranks higher.
	order := []int{3, 9, 0, 7, 1, 8, 2, 6, 4, 5}
	items := make([]string, 0, len(order))
	for _, i := range order {
		desc := "Invoices export drops rows for customer accounts" + strings.Repeat(" nightly", i)
		items = append(items, fmt.Sprintf(`{"task_title":"Repair invoices export %c","task_description":%q,"evidence":{"threadId":"T2","messageIds":["m1"]}}`, 'a'+i, desc))
	}
	provider := &fakeProvider{reply: "[" + strings.Join(items, ",") + "]"}

	res, err := newTestExtractor(provider).ExtractThreadTasks(context.Background(), invoiceThread(), Request{})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	var titles []string
	for _, c := range res.Tasks {
		titles = append(titles, c.Title)
	}
	want := []string{"Repair invoices export j", "Repair invoices export i", "Repair invoices export h"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Fatalf("capped titles mismatch (-want +got):\n%s", diff)
	}
	if res.Stats.Parsed != 10 || res.Stats.Kept != 10 || res.Stats.Returned != 3 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}
}

func TestConfiguredCap(t *testing.T) {
	reply := `[
		{"task_title":"Repair invoices export","task_description":"Export drops rows.","evidence":{"messageIds":["m1"]}},
		{"task_title":"Check billing dashboard totals","task_description":"Dashboard totals look wrong too.","evidence":{"messageIds":["m2"]}}
	]`
	opts := DefaultOptions()
	opts.MaxTasksPerThread = 1
	res, err := New(&fakeProvider{reply: reply}, opts, nil).ExtractThreadTasks(context.Background(), invoiceThread(), Request{})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	if len(res.Tasks) != 1 || res.Stats.Kept != 2 {
		t.Fatalf("expected cap of one from two kept, got %+v", res)
	}
}

func TestPRReviewCandidatesAreExcluded(t *testing.T) {
	reply := `[
		{"task_title":"Review PR #42","task_description":"Invoices export rows fix needs eyes.","evidence":{"threadId":"T2","messageIds":["m1"]}},
		{"task_title":"Invoices export follow-up","task_description":"Do a code review of the customer accounts sync.","evidence":{"threadId":"T2","messageIds":["m1"]}},
		{"task_title":"Repair invoices export job","task_description":"Nightly sync drops rows for customer accounts.","evidence":{"threadId":"T2","messageIds":["m1"]}}
	]`
	res, err := newTestExtractor(&fakeProvider{reply: reply}).ExtractThreadTasks(context.Background(), invoiceThread(), Request{})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	if len(res.Tasks) != 1 || res.Tasks[0].Title != "Repair invoices export job" {
		t.Fatalf("expected only the non-review task, got %+v", res.Tasks)
	}
	if res.Stats.FilteredPRReview != 2 {
		t.Fatalf("expected two review candidates filtered, got %+v", res.Stats)
	}
}

func TestIsPRReview(t *testing.T) {
	tests := []struct {
		title, desc string
		want        bool
	}{
		{"Review PR #42", "", true},
		{"Please review the pull request", "", true},
		{"PR 17 needs a review", "", true},
		{"Schedule code review", "", true},
		{"Update docs", "review this soon", false},
		{"Preview the export", "print the report", false},
		{"Review the quarterly roadmap", "", false},
	}
	for _, tt := range tests {
		if got := IsPRReview(task.Candidate{Title: tt.title, Description: tt.desc}); got != tt.want {
			t.Errorf("IsPRReview(%q, %q) = %v, want %v", tt.title, tt.desc, got, tt.want)
		}
	}
}

func TestEvidenceIsPinnedRepairedOrDropped(t *testing.T) {
	reply := `[
		{"task_title":"Repair invoices export job","task_description":"Nightly sync drops rows.","evidence":{"threadId":"OTHER","messageIds":["m1"]}},
		{"task_title":"Check billing dashboard totals","task_description":"Billing totals look wrong.","evidence":{"threadId":"T2","messageIds":["m9"]}},
		{"task_title":"Billing dashboard totals audit","task_description":"Totals on the billing dashboard disagree."},
		{"task_title":"Plan offsite","task_description":"Book venue catering travel.","evidence":{"threadId":"T2","messageIds":["zz"]}}
	]`
	res, err := newTestExtractor(&fakeProvider{reply: reply}).ExtractThreadTasks(context.Background(), invoiceThread(), Request{})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	got := make(map[string]*task.Evidence, len(res.Tasks))
	for _, c := range res.Tasks {
		got[c.Title] = c.Evidence
	}
	want := map[string]*task.Evidence{
		"Repair invoices export job":     {ThreadID: "T2", MessageIDs: []string{"m1"}},
		"Check billing dashboard totals": {ThreadID: "T2", MessageIDs: []string{"m2"}},
		"Billing dashboard totals audit": {ThreadID: "T2", MessageIDs: []string{"m2"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("evidence mismatch (-want +got):\n%s", diff)
	}
	if res.Stats.RepairedEvidence != 2 || res.Stats.FilteredBadEvidence != 1 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}
}

func TestUngroundedCandidateIsDropped(t *testing.T) {
	reply := `[{"task_title":"Migrate kubernetes cluster","task_description":"Upgrade nodes.","evidence":{"threadId":"T2","messageIds":["m1"]}}]`
	res, err := newTestExtractor(&fakeProvider{reply: reply}).ExtractThreadTasks(context.Background(), invoiceThread(), Request{})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	if len(res.Tasks) != 0 || res.Stats.FilteredNotGrounded != 1 {
		t.Fatalf("expected ungrounded task to be dropped, got %+v", res)
	}
}

func TestUnparseableReplyYieldsNoTasks(t *testing.T) {
	res, err := newTestExtractor(&fakeProvider{reply: "I could not find any tasks, sorry."}).
		ExtractThreadTasks(context.Background(), invoiceThread(), Request{})
	if err != nil {
		t.Fatalf("unparseable reply must not be an error: %v", err)
	}
	if res.Tasks == nil || len(res.Tasks) != 0 || res.ParseStrategy != "" {
		t.Fatalf("expected empty non-nil task list, got %+v", res)
	}
}

func TestFencedReplyIsParsed(t *testing.T) {
	reply := "Here you go:\n```json\n[{\"task_title\":\"Repair invoices export job\",\"task_description\":\"Nightly sync drops rows.\",\"evidence\":{\"messageIds\":[\"m1\"]}}]\n```"
	res, err := newTestExtractor(&fakeProvider{reply: reply}).ExtractThreadTasks(context.Background(), invoiceThread(), Request{})
	if err != nil {
		t.Fatalf("ExtractThreadTasks: %v", err)
	}
	if res.ParseStrategy != "fenced" || len(res.Tasks) != 1 {
		t.Fatalf("expected one task via fenced strategy, got %+v", res)
	}
}

func TestBadTemplateIsConfigError(t *testing.T) {
	for _, tmpl := range []string{
		"Extract tasks from ${conversationText}",
		"Extract tasks from ${threadJson} using ${conversationText}",
	} {
		provider := &fakeProvider{reply: "[]"}
		_, err := newTestExtractor(provider).ExtractThreadTasks(context.Background(), loginThread(), Request{PromptTemplate: tmpl})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("template %q: expected ConfigError, got %v", tmpl, err)
		}
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration marker, got %v", err)
		}
		if len(provider.requests) != 0 {
			t.Fatal("provider must not be called with a bad template")
		}
	}
}

func TestProviderErrorsAreClassified(t *testing.T) {
	statusErr := &llm.HTTPStatusError{StatusCode: 429, Body: `{"error":{"message":"rate limited"}}`, Message: "rate limited"}
	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{"http status", statusErr, func(t *testing.T, err error) {
			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Status != 429 || pe.Message != "rate limited" || !strings.Contains(pe.Body, "rate limited") {
				t.Fatalf("unexpected provider error fields: %+v", pe)
			}
			if !strings.HasPrefix(err.Error(), "extraction failed: http 429") {
				t.Fatalf("unexpected message %q", err.Error())
			}
			if services.StatusCode(err) != 502 {
				t.Fatalf("expected 502 mapping, got %d", services.StatusCode(err))
			}
		}},
		{"api error", &llm.APIError{Message: "model overloaded"}, func(t *testing.T, err error) {
			var pe *ProviderError
			if !errors.As(err, &pe) || pe.Status != 0 || pe.Message != "model overloaded" {
				t.Fatalf("expected ProviderError without status, got %v", err)
			}
		}},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), func(t *testing.T, err error) {
			if !errors.Is(err, ErrTimedOut) || !errors.Is(err, services.ErrTimeout) {
				t.Fatalf("expected ErrTimedOut, got %v", err)
			}
		}},
		{"other", errors.New("connection refused"), func(t *testing.T, err error) {
			if !strings.HasPrefix(err.Error(), "extraction request failed: ") || !strings.Contains(err.Error(), "connection refused") {
				t.Fatalf("unexpected message %q", err.Error())
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestExtractor(&fakeProvider{err: tt.err}).ExtractThreadTasks(context.Background(), loginThread(), Request{})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

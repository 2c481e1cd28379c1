package thread

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestThreadUnmarshalCoercesScalars(t *testing.T) {
	payload := `{
		"threadId": 1712.5,
		"messages": [
			{"role": "parent", "messageId": 1712.5, "timestamp": "2024-04-01T10:00:00Z", "user": "ana", "text": "Export is broken"},
			{"role": "reply", "messageId": "1713.1", "user": null, "text": "confirmed"}
		]
	}`
	var th Thread
	if err := json.Unmarshal([]byte(payload), &th); err != nil {
		t.Fatalf("unmarshal thread: %v", err)
	}
	if th.ThreadID != "1712.5" {
		t.Fatalf("ThreadID = %q, want 1712.5", th.ThreadID)
	}
	if th.MessageCount != 0 {
		t.Fatalf("MessageCount = %d, want 0 when absent", th.MessageCount)
	}
	if th.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", th.Count())
	}
	if th.Messages[0].MessageID != "1712.5" || th.Messages[1].User != "" {
		t.Fatalf("unexpected messages: %+v", th.Messages)
	}
}

func TestThreadTextJoinsWithNewlines(t *testing.T) {
	th := Thread{Messages: []Message{{Text: "one"}, {Text: "two"}, {Text: ""}}}
	if got := th.Text(); got != "one\ntwo\n" {
		t.Fatalf("Text() = %q", got)
	}
}

func TestMessageIDsSkipsEmpty(t *testing.T) {
	th := Thread{Messages: []Message{{MessageID: "m1"}, {MessageID: ""}, {MessageID: "m2"}}}
	ids := th.MessageIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
}

func TestResolveUserNames(t *testing.T) {
	records := []Record{
		{MessageID: "1", UserID: "U1", Username: "raw"},
		{MessageID: "2", UserID: "U2", Username: "U2"},
		{MessageID: "3", UserID: "U3", Username: ""},
		{MessageID: "4"},
	}
	userMap := map[string]string{"U1": "Ana Lima"}
	got := ResolveUserNames(records, userMap)
	want := []string{"Ana Lima", "U2", "U3", "Unknown"}
	for i, rec := range got {
		if rec.Username != want[i] {
			t.Fatalf("record %d username = %q, want %q", i, rec.Username, want[i])
		}
	}
	if records[0].Username != "raw" {
		t.Fatal("ResolveUserNames must not mutate its input")
	}
}

func TestAssembleGroupsRepliesUnderParent(t *testing.T) {
	records := []Record{
		{MessageID: "100.1", Username: "ana", Text: "export fails", Timestamp: "2024-04-01T10:00:00Z"},
		{MessageID: "100.3", ThreadID: "100.1", Username: "bo", Text: "second", Timestamp: "2024-04-01T10:05:00Z"},
		{MessageID: "100.2", ThreadID: "100.1", Username: "cy", Text: "first", Timestamp: "2024-04-01T10:01:00Z"},
		{MessageID: "200.1", Username: "di", Text: "lunch?", Timestamp: "2024-04-01T12:00:00Z"},
		{MessageID: "300.2", ThreadID: "300.1", Username: "ed", Text: "orphan", Timestamp: "2024-04-01T13:00:00Z"},
	}

	got := Assemble(records)

	wantThreads := []Thread{{
		ThreadID:     "100.1",
		MessageCount: 3,
		Messages: []Message{
			{Role: RoleParent, MessageID: "100.1", Timestamp: "2024-04-01T10:00:00Z", User: "ana", Text: "export fails"},
			{Role: RoleReply, MessageID: "100.2", Timestamp: "2024-04-01T10:01:00Z", User: "cy", Text: "first"},
			{Role: RoleReply, MessageID: "100.3", Timestamp: "2024-04-01T10:05:00Z", User: "bo", Text: "second"},
		},
	}}
	if diff := cmp.Diff(wantThreads, got.Threads); diff != "" {
		t.Fatalf("threads mismatch (-want +got):\n%s", diff)
	}
	wantStandalone := []Message{
		{Role: RoleParent, MessageID: "200.1", Timestamp: "2024-04-01T12:00:00Z", User: "di", Text: "lunch?"},
	}
	if diff := cmp.Diff(wantStandalone, got.Standalone); diff != "" {
		t.Fatalf("standalone mismatch (-want +got):\n%s", diff)
	}
	if got.MessageCount() != 4 {
		t.Fatalf("MessageCount() = %d, want 4", got.MessageCount())
	}
}

func TestAssembledAllWrapsStandaloneMessages(t *testing.T) {
	a := Assembled{
		Threads:    []Thread{{ThreadID: "t1", MessageCount: 1, Messages: []Message{{Role: RoleParent, MessageID: "t1"}}}},
		Standalone: []Message{{Role: RoleReply, MessageID: "s1", Text: "hello"}},
	}
	all := a.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 threads, got %d", len(all))
	}
	single := all[1]
	if single.ThreadID != "s1" || single.MessageCount != 1 || single.Messages[0].Role != RoleParent {
		t.Fatalf("unexpected standalone thread: %+v", single)
	}
}

package taskgen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"convoy/internal/services"
	"convoy/internal/services/llm"
	"convoy/internal/store"
	"convoy/internal/taskgen"
	"convoy/internal/testsupport"
)

type scriptedProvider struct {
	mu      sync.Mutex
	replies map[string]string
	fail    map[string]error
	prompts []string
}

// Complete answers with the reply keyed by the first marker found in the
// prompt.
func (p *scriptedProvider) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, req.UserPrompt)
	for marker, err := range p.fail {
		if strings.Contains(req.UserPrompt, marker) {
			return "", err
		}
	}
	for marker, reply := range p.replies {
		if strings.Contains(req.UserPrompt, marker) {
			return reply, nil
		}
	}
	return "[]", nil
}

func fixedFactory(p llm.Provider, seen *[]llm.Config) taskgen.ProviderFactory {
	return func(_ context.Context, _ llm.Kind, cfg llm.Config) (llm.Provider, error) {
		if seen != nil {
			*seen = append(*seen, cfg)
		}
		return p, nil
	}
}

func day(d, hour int) time.Time {
	return time.Date(2024, time.March, d, hour, 0, 0, 0, time.UTC)
}

func seedLoginThreads(t *testing.T, st *store.Store) {
	t.Helper()
	testsupport.SeedMessages(t, st,
		testsupport.Msg("100.1", "", "U1", "Login page returns 500 after the deploy", day(4, 9)),
		testsupport.Msg("100.2", "100.1", "U2", "I can reproduce the login 500 error on staging", day(4, 10)),
		testsupport.Msg("200.1", "", "U2", "The login page fails with 500 again", day(5, 9)),
		testsupport.Msg("200.2", "200.1", "U1", "login 500 happens for admin users only", day(5, 10)),
		testsupport.Msg("300.1", "", "U3", "Lunch at noon?", day(5, 12)),
	)
	if _, err := st.UpsertUsers(context.Background(), []store.User{
		{UserID: "U1", DisplayName: "alice", WorkspaceID: "W1"},
		{UserID: "U2", RealName: "Bob Jones", WorkspaceID: "W1"},
	}); err != nil {
		t.Fatalf("UpsertUsers: %v", err)
	}
}

func loginProvider() *scriptedProvider {
	return &scriptedProvider{
		replies: map[string]string{
			`"threadId": "100.1"`: `[{"task_title":"Fix login 500 error","task_description":"Investigate the login 500 after the deploy","evidence":{"threadId":"100.1","messageIds":["100.1","100.2"]}}]`,
			`"threadId": "200.1"`: "```json\n[{\"task_title\":\"Fix Login 500 Error!\",\"task_description\":\"Login fails with 500 for admin users, reproduce on staging\",\"evidence\":{\"threadId\":\"200.1\",\"messageIds\":[\"200.2\"]}}]\n```",
		},
		fail: map[string]error{
			`"threadId": "300.1"`: &llm.HTTPStatusError{StatusCode: 503, Message: "overloaded"},
		},
	}
}

func TestPrepareArrangesThreads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedLoginThreads(t, st)
	svc := taskgen.New(cfg, st, nil)

	prepared, err := svc.Prepare(context.Background(), taskgen.PrepareRequest{
		ChannelID: "C1", ChannelName: "general", Start: day(4, 0), End: day(5, 0),
	})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	want := taskgen.PrepareStats{TotalThreads: 2, TotalStandalone: 1, TotalMessages: 5}
	if prepared.Stats != want {
		t.Fatalf("stats = %+v, want %+v", prepared.Stats, want)
	}
	if prepared.DateRange != "2024-03-04 to 2024-03-05" {
		t.Fatalf("unexpected date range %q", prepared.DateRange)
	}
	first := prepared.Threads[0]
	if first.Messages[0].User != "alice" || first.Messages[1].User != "Bob Jones" {
		t.Fatalf("expected resolved user names, got %q and %q", first.Messages[0].User, first.Messages[1].User)
	}
	all := prepared.All()
	if len(all) != 3 || all[2].ThreadID != "300.1" || all[2].MessageCount != 1 {
		t.Fatalf("unexpected extraction order: %#v", all)
	}
}

func TestPrepareRejectsMissingInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := taskgen.New(cfg, testsupport.MustOpenStore(t, cfg), nil)
	ctx := context.Background()
	if _, err := svc.Prepare(ctx, taskgen.PrepareRequest{Start: day(1, 0), End: day(2, 0)}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without channel, got %v", err)
	}
	if _, err := svc.Prepare(ctx, taskgen.PrepareRequest{ChannelID: "C1"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without dates, got %v", err)
	}
	if _, err := svc.Prepare(ctx, taskgen.PrepareRequest{ChannelID: "C1", Start: day(3, 0), End: day(2, 0)}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for reversed dates, got %v", err)
	}
}

func TestGenerateMergesAcrossThreadsAndSkipsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedLoginThreads(t, st)
	provider := loginProvider()
	svc := taskgen.New(cfg, st, nil, taskgen.WithProviderFactory(fixedFactory(provider, nil)))

	result, err := svc.Generate(context.Background(), taskgen.GenerateRequest{
		PrepareRequest: taskgen.PrepareRequest{ChannelID: "C1", ChannelName: "general", Start: day(4, 0), End: day(5, 0)},
		Save:           true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
	if result.ThreadsProcessed != 2 || result.ThreadsFailed != 1 || result.MessagesAnalyzed != 5 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.CandidatesExtracted != 2 || len(result.Tasks) != 1 {
		t.Fatalf("expected two candidates merged into one task, got %+v", result)
	}
	var threads []string
	for _, src := range result.Tasks[0].Sources {
		threads = append(threads, src.ThreadID)
	}
	if diff := cmp.Diff([]string{"100.1", "200.1"}, threads); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}

	if len(result.Saved) != 1 {
		t.Fatalf("expected one saved task, got %d", len(result.Saved))
	}
	saved := result.Saved[0]
	if saved.ParentThreadID != "100.1" || saved.ParentThreadLink != "https://acme.slack.com/archives/C1/p1001" {
		t.Fatalf("unexpected saved parent %q link %q", saved.ParentThreadID, saved.ParentThreadLink)
	}
	if saved.Model != cfg.LLM.Model || saved.WorkspaceID != "W1" {
		t.Fatalf("unexpected saved task metadata: %#v", saved)
	}
	if len(provider.prompts) != 3 {
		t.Fatalf("expected one provider call per thread, got %d", len(provider.prompts))
	}
}

func TestGenerateUsesStoredPrompt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedLoginThreads(t, st)
	prompt, err := st.CreatePrompt(context.Background(), store.PromptInput{
		Name: "short", Template: "CUSTOM PROMPT ${threadJson}",
	})
	if err != nil {
		t.Fatalf("CreatePrompt: %v", err)
	}
	provider := &scriptedProvider{}
	svc := taskgen.New(cfg, st, nil, taskgen.WithProviderFactory(fixedFactory(provider, nil)))

	result, err := svc.Generate(context.Background(), taskgen.GenerateRequest{
		PrepareRequest: taskgen.PrepareRequest{ChannelID: "C1", Start: day(5, 0), End: day(5, 0)},
		PromptID:       prompt.ID,
		Strategy:       "threadId-one-task",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Strategy != "threadId-one-task" || len(result.Tasks) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, p := range provider.prompts {
		if !strings.HasPrefix(p, "CUSTOM PROMPT ") {
			t.Fatalf("expected stored prompt to be used, got %q", p)
		}
	}

	if _, err := svc.Generate(context.Background(), taskgen.GenerateRequest{
		PrepareRequest: taskgen.PrepareRequest{ChannelID: "C1", Start: day(5, 0), End: day(5, 0)},
		Strategy:       "by-vibes",
	}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown strategy, got %v", err)
	}
}

func TestExtractorOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var seen []llm.Config
	svc := taskgen.New(cfg, testsupport.MustOpenStore(t, cfg), nil,
		taskgen.WithProviderFactory(fixedFactory(&scriptedProvider{}, &seen)))
	ctx := context.Background()

	if _, err := svc.Extractor(ctx, taskgen.ProviderOverride{}); err != nil {
		t.Fatalf("Extractor default: %v", err)
	}
	if _, err := svc.Extractor(ctx, taskgen.ProviderOverride{Provider: "ollama", OllamaURL: "gpu-box:11434/"}); err != nil {
		t.Fatalf("Extractor ollama: %v", err)
	}
	if len(seen) != 2 || seen[1].BaseURL != "http://gpu-box:11434" {
		t.Fatalf("unexpected provider configs: %#v", seen)
	}
	if _, err := svc.Extractor(ctx, taskgen.ProviderOverride{Provider: "openai"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unconfigured hosted provider, got %v", err)
	}
	if _, err := svc.Extractor(ctx, taskgen.ProviderOverride{Provider: "gpt-cloud"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown provider, got %v", err)
	}
}

func TestSyncStoresUsersAndMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth.test":
			w.Write([]byte(`{"ok":true,"team_id":"T9","team":"Acme","url":"https://acme.slack.com/"}`))
		case "/users.list":
			w.Write([]byte(`{"ok":true,"members":[{"id":"U1","name":"alice","profile":{"display_name":"Ali"}}]}`))
		case "/conversations.history":
			w.Write([]byte(`{"ok":true,"messages":[{"ts":"1709629200.000100","user":"U1","text":"Ship the release","reply_count":1}]}`))
		case "/conversations.replies":
			w.Write([]byte(`{"ok":true,"messages":[
				{"ts":"1709629200.000100","user":"U1","text":"Ship the release"},
				{"ts":"1709629300.000100","user":"U7","text":"On it","subtype":"thread_broadcast"}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithSlackAPIRoot(server.URL))
	st := testsupport.MustOpenStore(t, cfg)
	svc := taskgen.New(cfg, st, nil)
	ctx := context.Background()

	got, err := svc.Sync(ctx, taskgen.SyncRequest{ChannelID: "C1", ChannelName: "general", Start: day(5, 0), End: day(5, 0)})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	want := taskgen.SyncResult{WorkspaceID: "T9", Users: 1, Messages: 2, Replies: 1}
	if got != want {
		t.Fatalf("Sync = %+v, want %+v", got, want)
	}

	prepared, err := svc.Prepare(ctx, taskgen.PrepareRequest{ChannelID: "C1", Start: day(5, 0), End: day(5, 0)})
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(prepared.Threads) != 1 {
		t.Fatalf("expected one thread, got %#v", prepared)
	}
	msgs := prepared.Threads[0].Messages
	if msgs[0].User != "Ali" || msgs[1].User != "U7" {
		t.Fatalf("unexpected users %q %q", msgs[0].User, msgs[1].User)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Messages != 2 || stats.Users != 1 || stats.Tasks != 0 || stats.DatabasePath == "" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMergeOptionsUsesConfiguredDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Extraction.MergeStrategy = "title-normalize+fuzzy"
	cfg.Extraction.FuzzyThreshold = 0.7
	svc := taskgen.New(cfg, testsupport.MustOpenStore(t, cfg), nil)
	opts, err := svc.MergeOptions("")
	if err != nil {
		t.Fatalf("MergeOptions: %v", err)
	}
	if opts.Strategy != "title-normalize+fuzzy" || opts.FuzzyThreshold != 0.7 {
		t.Fatalf("unexpected merge options %+v", opts)
	}
}

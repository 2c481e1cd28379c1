package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"convoy/internal/api"
	"convoy/internal/services/llm"
	"convoy/internal/store"
	"convoy/internal/taskgen"
	"convoy/internal/testsupport"
)

type stubProvider struct {
	reply string
}

func (p stubProvider) Complete(context.Context, llm.CompletionRequest) (string, error) {
	return p.reply, nil
}

func stubFactory(reply string) taskgen.ProviderFactory {
	return func(context.Context, llm.Kind, llm.Config) (llm.Provider, error) {
		return stubProvider{reply: reply}, nil
	}
}

type harness struct {
	server *api.Server
	store  *store.Store
}

func newHarness(t *testing.T, reply string, opts ...api.Option) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	svc := taskgen.New(cfg, st, nil, taskgen.WithProviderFactory(stubFactory(reply)))
	srv, err := api.New(svc, nil, opts...)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	return harness{server: srv, store: st}
}

func (h harness) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, payload
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, payload map[string]any, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
	success := want < http.StatusBadRequest
	if payload["success"] != success {
		t.Fatalf("success = %v, want %v", payload["success"], success)
	}
	if !success {
		if msg, _ := payload["error"].(string); msg == "" {
			t.Fatalf("expected an error message, got %v", payload)
		}
	}
}

func TestHealthAndRequestID(t *testing.T) {
	h := newHarness(t, "[]")
	rec, payload := h.do(t, http.MethodGet, "/api/health", "")
	expectStatus(t, rec, payload, http.StatusOK)
	if payload["status"] != "ok" {
		t.Fatalf("unexpected health payload %v", payload)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestMergeEndpoint(t *testing.T) {
	h := newHarness(t, "[]")

	rec, payload := h.do(t, http.MethodPost, "/api/tasks/merge", `{"candidates":"not a list"}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)
	rec, payload = h.do(t, http.MethodPost, "/api/tasks/merge", `{}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)
	rec, payload = h.do(t, http.MethodPost, "/api/tasks/merge", `{"candidates":[],"strategy":"by-vibes"}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)

	rec, payload = h.do(t, http.MethodPost, "/api/tasks/merge", `{"candidates":[
		{"task_title":"Fix login bug","task_description":"short","evidence":{"threadId":"A","messageIds":["1"]}},
		{"task_title":"fix login bug!","task_description":"a longer description","evidence":{"threadId":"B","messageIds":["2"]}},
		"junk"
	]}`)
	expectStatus(t, rec, payload, http.StatusOK)
	if payload["strategy"] != "title-normalize" || payload["count"] != float64(1) {
		t.Fatalf("unexpected merge payload %v", payload)
	}
	merged := payload["tasks"].([]any)[0].(map[string]any)
	if merged["task_description"] != "a longer description" {
		t.Fatalf("expected the longer description to win, got %v", merged)
	}
	if sources := merged["sources"].([]any); len(sources) != 2 {
		t.Fatalf("expected two sources, got %v", sources)
	}
}

func TestExtractThreadEndpoint(t *testing.T) {
	reply := `[{"task_title":"Fix CSV export","task_description":"The export drops the last row","evidence":{"threadId":"T1","messageIds":["m1"]}}]`
	h := newHarness(t, reply)

	rec, payload := h.do(t, http.MethodPost, "/api/tasks/extract-thread", `{"model":"m"}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)

	body := `{"thread":{"threadId":"T1","messages":[
		{"role":"parent","messageId":"m1","user":"alice","text":"The CSV export drops the last row"},
		{"role":"reply","messageId":"m2","user":"bob","text":"confirmed on the invoices export"}
	]}}`
	rec, payload = h.do(t, http.MethodPost, "/api/tasks/extract-thread", body)
	expectStatus(t, rec, payload, http.StatusOK)
	if payload["threadId"] != "T1" {
		t.Fatalf("unexpected thread id in %v", payload)
	}
	tasks := payload["tasks"].([]any)
	if len(tasks) != 1 || tasks[0].(map[string]any)["task_title"] != "Fix CSV export" {
		t.Fatalf("unexpected tasks %v", tasks)
	}

	rec, payload = h.do(t, http.MethodPost, "/api/tasks/extract-thread",
		`{"thread":{"threadId":"T1","messages":[]},"promptTemplate":"no placeholder here"}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)
}

func TestTaskCRUD(t *testing.T) {
	h := newHarness(t, "[]")

	rec, payload := h.do(t, http.MethodPost, "/api/tasks", `{"channelId":"C1","channelName":"general","taskTitle":"   "}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)

	rec, payload = h.do(t, http.MethodPost, "/api/tasks",
		`{"channelId":"C1","channelName":"general","model":"m","taskTitle":"Ship it","taskDescription":"soon","parentThreadId":"1700000000.123456"}`)
	expectStatus(t, rec, payload, http.StatusCreated)
	created := payload["task"].(map[string]any)
	if created["parent_thread_slack_link"] != "https://acme.slack.com/archives/C1/p1700000000123456" {
		t.Fatalf("unexpected permalink %v", created["parent_thread_slack_link"])
	}
	if created["kanban_column"] != store.ColumnTodo {
		t.Fatalf("unexpected column %v", created["kanban_column"])
	}

	rec, payload = h.do(t, http.MethodPut, "/api/tasks/1", `{"taskTitle":"Ship it today"}`)
	expectStatus(t, rec, payload, http.StatusOK)
	updated := payload["task"].(map[string]any)
	if updated["task_title"] != "Ship it today" || updated["task_description"] != "soon" {
		t.Fatalf("unexpected update %v", updated)
	}
	rec, payload = h.do(t, http.MethodPut, "/api/tasks/1", `{}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)
	rec, payload = h.do(t, http.MethodPut, "/api/tasks/abc", `{"taskTitle":"x"}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)
	rec, payload = h.do(t, http.MethodPut, "/api/tasks/99", `{"taskTitle":"x"}`)
	expectStatus(t, rec, payload, http.StatusNotFound)

	rec, payload = h.do(t, http.MethodGet, "/api/tasks?channelId=C1", "")
	expectStatus(t, rec, payload, http.StatusOK)
	if payload["count"] != float64(1) {
		t.Fatalf("unexpected list %v", payload)
	}
	rec, payload = h.do(t, http.MethodGet, "/api/tasks?limit=-1", "")
	expectStatus(t, rec, payload, http.StatusBadRequest)

	rec, payload = h.do(t, http.MethodDelete, "/api/tasks/1", "")
	expectStatus(t, rec, payload, http.StatusOK)
	rec, payload = h.do(t, http.MethodDelete, "/api/tasks/1", "")
	expectStatus(t, rec, payload, http.StatusNotFound)
}

func TestPromptEndpoints(t *testing.T) {
	h := newHarness(t, "[]")
	system, _, err := h.store.EnsureDefaultPrompt(context.Background())
	if err != nil {
		t.Fatalf("EnsureDefaultPrompt: %v", err)
	}

	rec, payload := h.do(t, http.MethodPost, "/api/prompts", `{"promptTemplate":"${threadJson}"}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)

	rec, payload = h.do(t, http.MethodPost, "/api/prompts",
		`{"name":"terse","promptTemplate":"List tasks in ${threadJson}","createdBy":"U1"}`)
	expectStatus(t, rec, payload, http.StatusCreated)
	id := int64(payload["prompt"].(map[string]any)["id"].(float64))

	target := "/api/prompts/" + jsonID(id)
	rec, payload = h.do(t, http.MethodPut, target+"/default", "")
	expectStatus(t, rec, payload, http.StatusOK)
	if payload["prompt"].(map[string]any)["is_default"] != true {
		t.Fatalf("expected prompt to become default, got %v", payload)
	}

	systemTarget := "/api/prompts/" + jsonID(system.ID)
	rec, payload = h.do(t, http.MethodPut, systemTarget, `{"name":"hijack","promptTemplate":"${threadJson}"}`)
	expectStatus(t, rec, payload, http.StatusConflict)
	rec, payload = h.do(t, http.MethodDelete, systemTarget, "")
	expectStatus(t, rec, payload, http.StatusConflict)

	rec, payload = h.do(t, http.MethodGet, "/api/prompts?kind=user", "")
	expectStatus(t, rec, payload, http.StatusOK)
	var names []string
	for _, p := range payload["prompts"].([]any) {
		names = append(names, p.(map[string]any)["name"].(string))
	}
	if diff := cmp.Diff([]string{"terse"}, names); diff != "" {
		t.Fatalf("user prompts mismatch (-want +got):\n%s", diff)
	}
	rec, payload = h.do(t, http.MethodGet, "/api/prompts?kind=bogus", "")
	expectStatus(t, rec, payload, http.StatusBadRequest)

	rec, payload = h.do(t, http.MethodDelete, target, "")
	expectStatus(t, rec, payload, http.StatusOK)
	rec, payload = h.do(t, http.MethodGet, target, "")
	expectStatus(t, rec, payload, http.StatusNotFound)
}

func TestGenerateEndpointSavesTasks(t *testing.T) {
	reply := `[{"task_title":"Fix login 500 error","task_description":"Login page returns 500 after the deploy","evidence":{"threadId":"100.1","messageIds":["100.1"]}}]`
	h := newHarness(t, reply)
	at := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)
	testsupport.SeedMessages(t, h.store,
		testsupport.Msg("100.1", "", "U1", "Login page returns 500 after the deploy", at),
		testsupport.Msg("100.2", "100.1", "U2", "login 500 confirmed", at.Add(time.Hour)),
	)

	rec, payload := h.do(t, http.MethodPost, "/api/tasks/generate", `{"channelId":"C1","startDate":"2024-03-04"}`)
	expectStatus(t, rec, payload, http.StatusBadRequest)

	rec, payload = h.do(t, http.MethodPost, "/api/tasks/generate",
		`{"channelId":"C1","channelName":"general","startDate":"2024-03-04","endDate":"2024-03-04","save":true}`)
	expectStatus(t, rec, payload, http.StatusOK)
	if payload["threadsProcessed"] != float64(1) || len(payload["tasks"].([]any)) != 1 {
		t.Fatalf("unexpected generate payload %v", payload)
	}
	if saved := payload["saved"].([]any); len(saved) != 1 {
		t.Fatalf("expected one saved task, got %v", saved)
	}

	rec, payload = h.do(t, http.MethodGet, "/api/stats", "")
	expectStatus(t, rec, payload, http.StatusOK)
	stats := payload["stats"].(map[string]any)
	if stats["messages"] != float64(2) || stats["tasks"] != float64(1) {
		t.Fatalf("unexpected stats %v", stats)
	}

	rec, payload = h.do(t, http.MethodPost, "/api/tasks/prepare",
		`{"channelId":"C1","startDate":"2024-03-04","endDate":"2024-03-04"}`)
	expectStatus(t, rec, payload, http.StatusOK)
	if stats := payload["threadStats"].(map[string]any); stats["totalMessages"] != float64(2) {
		t.Fatalf("unexpected prepare stats %v", stats)
	}
}

func TestOllamaModelsEndpoint(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"models":[{"name":"llama3:8b"},{"model":"qwen2.5"}]}`))
	}))
	defer ollama.Close()
	h := newHarness(t, "[]", api.WithOllamaClient(ollama.Client()))

	rec, payload := h.do(t, http.MethodGet, "/api/ollama/models", "")
	expectStatus(t, rec, payload, http.StatusBadRequest)

	rec, payload = h.do(t, http.MethodGet, "/api/ollama/models?ollamaUrl="+ollama.URL, "")
	expectStatus(t, rec, payload, http.StatusOK)
	if payload["count"] != float64(2) {
		t.Fatalf("unexpected models payload %v", payload)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	h := newHarness(t, "[]")
	rec, payload := h.do(t, http.MethodGet, "/api/nope", "")
	expectStatus(t, rec, payload, http.StatusNotFound)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

// Copyright (c) 2025 Hyperion Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperionx/hyperionx/internal/groq"
	"github.com/hyperionx/hyperionx/internal/keypool"
	"github.com/hyperionx/hyperionx/internal/router"
	"github.com/hyperionx/hyperionx/internal/search"
)

// fakeSearcher records requests and returns canned results.
type fakeSearcher struct {
	requests []search.Request
	results  []search.Result
	err      error
}

func (f *fakeSearcher) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	f.requests = append(f.requests, req)
	return f.results, f.err
}

// mockModel serves both the router's blocking calls and the answer stream.
// Blocking calls are told apart by their system prompt.
func mockModel(t *testing.T, answer string) (*httptest.Server, *[]groq.ChatRequest) {
	t.Helper()
	var streamed []groq.ChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req groq.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad model request: %v", err)
		}

		if req.Stream {
			streamed = append(streamed, req)
			w.WriteHeader(http.StatusOK)
			// Stream the answer in two fragments.
			half := len(answer) / 2
			for _, part := range []string{answer[:half], answer[half:]} {
				b, _ := json.Marshal(map[string]interface{}{
					"choices": []map[string]interface{}{
						{"delta": map[string]string{"content": part}},
					},
				})
				fmt.Fprintf(w, "data: %s\n\n", b)
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		system := ""
		if len(req.Messages) > 0 {
			system = req.Messages[0].Content
		}
		var content string
		if strings.Contains(system, "should_search") {
			content = `{"should_search": false, "query": ""}`
		} else {
			content = `{"query": "Bundeskanzler Deutschland 2026"}`
		}
		w.WriteHeader(http.StatusOK)
		b, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{
				{
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
		w.Write(b)
	}))
	return server, &streamed
}

// newTestEngine wires an engine against a mock model server.
func newTestEngine(serverURL string, searcher search.Searcher, keys ...string) (*Engine, *keypool.Pool) {
	if len(keys) == 0 {
		keys = []string{"gsk-test-1"}
	}
	pool := keypool.New(keys, keypool.DefaultCooldown)
	llm := groq.NewClient().WithBaseURL(serverURL)
	rt := router.New(llm, pool)
	return NewEngine(llm, pool, rt, searcher, nil), pool
}

// collect drains a turn's events.
func collect(t *testing.T, turn *Turn) (events []Event, done Event) {
	t.Helper()
	for ev := range turn.Events {
		events = append(events, ev)
		if ev.Kind == KindDone {
			done = ev
		}
	}
	if done.Kind != KindDone {
		t.Fatal("turn ended without a done event")
	}
	return events, done
}

func trustedResults() []search.Result {
	content := strings.Repeat("x", 600)
	return []search.Result{
		{Title: "Regierung", URL: "https://www.bundesregierung.de/aktuelles", Content: content},
		{Title: "Analyse", URL: "https://example.com/analyse", Content: content},
	}
}

// TestGroundedTurn runs a forced-search question end to end: advanced-depth
// search, streamed answer, linkified citation, grounded final message.
func TestGroundedTurn(t *testing.T) {
	server, streamed := mockModel(t, "Der Bundeskanzler ist Beispielname [1].")
	defer server.Close()

	searcher := &fakeSearcher{results: trustedResults()}
	engine, _ := newTestEngine(server.URL, searcher)

	turn := engine.Ask(context.Background(), "Wer ist aktuell Bundeskanzler?", nil)
	events, done := collect(t, turn)

	if events[0].Kind != KindStatus || events[0].Status != StatusRouting {
		t.Errorf("first event = %+v, want routing status", events[0])
	}

	if len(searcher.requests) != 1 {
		t.Fatalf("searcher called %d times, want 1", len(searcher.requests))
	}
	if searcher.requests[0].Depth != search.DepthAdvanced {
		t.Errorf("forced turn depth = %q, want advanced", searcher.requests[0].Depth)
	}
	wantQuery := "Bundeskanzler Deutschland 2026 (" + router.OfficialHint + ")"
	if searcher.requests[0].Query != wantQuery {
		t.Errorf("search query = %q, want rewritten query with official-site hint", searcher.requests[0].Query)
	}

	var sourcesSeen bool
	var fragments strings.Builder
	for _, ev := range events {
		switch ev.Kind {
		case KindSources:
			sourcesSeen = true
			if len(ev.Sources) != 2 {
				t.Errorf("sources event carries %d results, want 2", len(ev.Sources))
			}
		case KindFragment:
			if !sourcesSeen {
				t.Error("fragment emitted before sources were resolved")
			}
			fragments.WriteString(ev.Fragment)
		}
	}
	if fragments.String() != "Der Bundeskanzler ist Beispielname [1]." {
		t.Errorf("streamed fragments = %q", fragments.String())
	}

	if done.Err != nil {
		t.Errorf("done.Err = %v", done.Err)
	}
	msg := done.Message
	if !msg.Grounded || msg.Topic != "politics" {
		t.Errorf("message grounding = %+v", msg)
	}
	if msg.Query != wantQuery {
		t.Errorf("message query = %q, want the executed search query", msg.Query)
	}
	wantLink := fmt.Sprintf("[[1]](#src-%s-1)", msg.ID)
	if !strings.Contains(msg.Content, wantLink) {
		t.Errorf("content %q missing citation link %q", msg.Content, wantLink)
	}
	if len(msg.Sources) != 2 {
		t.Errorf("message carries %d sources, want 2", len(msg.Sources))
	}

	// The answer model must have seen the sources block.
	if len(*streamed) != 1 {
		t.Fatalf("streamed %d completions, want 1", len(*streamed))
	}
	system := (*streamed)[0].Messages[0].Content
	if !strings.Contains(system, "SOURCES:") || !strings.Contains(system, "[1] Regierung") {
		t.Errorf("stream system prompt missing sources block:\n%s", system)
	}
	if (*streamed)[0].Temperature != AnswerTemperature {
		t.Errorf("temperature = %v, want %v", (*streamed)[0].Temperature, AnswerTemperature)
	}
	if (*streamed)[0].MaxTokens != AnswerMaxTokens {
		t.Errorf("max_tokens = %v, want %v", (*streamed)[0].MaxTokens, AnswerMaxTokens)
	}
}

// TestUngroundedTurn verifies a classifier "no" skips search entirely and
// uses the ungrounded prompt.
func TestUngroundedTurn(t *testing.T) {
	server, streamed := mockModel(t, "Subsidiarität bedeutet Zuständigkeit der kleinsten Einheit.")
	defer server.Close()

	searcher := &fakeSearcher{}
	engine, _ := newTestEngine(server.URL, searcher)

	turn := engine.Ask(context.Background(), "Was bedeutet Subsidiarität?", nil)
	_, done := collect(t, turn)

	if len(searcher.requests) != 0 {
		t.Errorf("searcher called %d times on an ungrounded turn", len(searcher.requests))
	}
	if done.Message.Grounded || len(done.Message.Sources) != 0 {
		t.Errorf("message should be ungrounded: %+v", done.Message)
	}

	system := (*streamed)[0].Messages[0].Content
	if strings.Contains(system, "SOURCES:") {
		t.Error("ungrounded turn prompt contains a sources block")
	}
	if !strings.Contains(system, "No web search") {
		t.Error("ungrounded prompt variant not used")
	}
}

// TestSearchFailureDegradesToUngrounded verifies a dead search provider
// still produces an answer.
func TestSearchFailureDegradesToUngrounded(t *testing.T) {
	server, _ := mockModel(t, "Antwort ohne Quellen.")
	defer server.Close()

	searcher := &fakeSearcher{err: errors.New("all search credentials failed")}
	engine, _ := newTestEngine(server.URL, searcher)

	turn := engine.Ask(context.Background(), "Wie hoch ist die Inflation?", nil)
	_, done := collect(t, turn)

	if done.Err != nil {
		t.Errorf("done.Err = %v, search failure must not fail the turn", done.Err)
	}
	if done.Message.Grounded {
		t.Error("message marked grounded despite failed search")
	}
	if done.Message.Content != "Antwort ohne Quellen." {
		t.Errorf("content = %q", done.Message.Content)
	}
}

// TestNoCredentials verifies an empty model pool produces the configuration
// error message instead of hanging.
func TestNoCredentials(t *testing.T) {
	engine, _ := newTestEngine("http://unused.invalid", &fakeSearcher{} /* no keys: */)
	engine.llmPool = keypool.New(nil, 0)
	rtPool := keypool.New(nil, 0)
	engine.router = router.New(groq.NewClient(), rtPool)

	turn := engine.Ask(context.Background(), "Hallo", nil)
	_, done := collect(t, turn)

	if !errors.Is(done.Err, keypool.ErrNoKeys) {
		t.Errorf("done.Err = %v, want ErrNoKeys", done.Err)
	}
	if done.Message.Content != NoCredentialsFragment {
		t.Errorf("content = %q", done.Message.Content)
	}
}

// TestModelFailureAppendsErrorFragment verifies a failing model yields the
// error notice and cools the key down.
func TestModelFailureAppendsErrorFragment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit"}}`))
	}))
	defer server.Close()

	engine, pool := newTestEngine(server.URL, &fakeSearcher{})

	// "Begriff" query has no forced keywords; the classifier also fails,
	// so the turn degrades to an ungrounded answer attempt.
	turn := engine.Ask(context.Background(), "Erkläre den Begriff", nil)
	_, done := collect(t, turn)

	if done.Err == nil {
		t.Fatal("done.Err = nil, want stream error")
	}
	if !strings.Contains(done.Message.Content, "⚠️") {
		t.Errorf("content missing error fragment: %q", done.Message.Content)
	}
	cooling := false
	for _, st := range pool.Snapshot() {
		if st.CoolingDown {
			cooling = true
		}
	}
	if !cooling {
		t.Error("failed key not cooling down")
	}
}

// TestAbandonedTurnReleasesKey verifies that canceling a turn and walking
// away from its event channel does not strand the turn goroutine: the model
// credential must return to the pool once the stream unwinds.
func TestAbandonedTurnReleasesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req groq.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)

		if !req.Stream {
			b, _ := json.Marshal(map[string]interface{}{
				"choices": []map[string]interface{}{
					{
						"message":       map[string]string{"role": "assistant", "content": `{"should_search": false, "query": ""}`},
						"finish_reason": "stop",
					},
				},
			})
			w.WriteHeader(http.StatusOK)
			w.Write(b)
			return
		}

		// Stream fragments until the client hangs up.
		flusher, _ := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		for i := 0; ; i++ {
			b, _ := json.Marshal(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"delta": map[string]string{"content": fmt.Sprintf("wort%d ", i)}},
				},
			})
			if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			select {
			case <-r.Context().Done():
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}))
	defer server.Close()

	engine, pool := newTestEngine(server.URL, &fakeSearcher{})

	ctx, cancel := context.WithCancel(context.Background())
	turn := engine.Ask(ctx, "Erkläre den Begriff", nil)

	for ev := range turn.Events {
		if ev.Kind == KindFragment {
			break
		}
	}
	cancel()
	// No further reads: the consumer walked away mid-stream.

	deadline := time.Now().Add(2 * time.Second)
	for {
		idle := true
		for _, st := range pool.Snapshot() {
			if st.Inflight > 0 {
				idle = false
			}
		}
		if idle {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("credential still in flight after abandoning the turn")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestBuildMessagesHistoryWindow verifies the answer model sees at most six
// transcript messages.
func TestBuildMessagesHistoryWindow(t *testing.T) {
	engine, _ := newTestEngine("http://unused.invalid", &fakeSearcher{})
	engine.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }

	var history []Message
	for i := 0; i < 10; i++ {
		history = append(history, NewUserMessage(fmt.Sprintf("m%d", i)))
	}

	messages := engine.buildMessages("frage", history, nil)
	// 1 system + 6 history + 1 user question.
	if len(messages) != 8 {
		t.Fatalf("built %d messages, want 8", len(messages))
	}
	if messages[1].Content != "m4" {
		t.Errorf("history window starts at %q, want m4", messages[1].Content)
	}
	if messages[7].Content != "frage" {
		t.Errorf("last message = %q, want the question", messages[7].Content)
	}
}

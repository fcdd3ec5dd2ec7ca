package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moonstoneCase = `{
  "case_id": "case-moonstone",
  "crime": "Theft of the Moonstone",
  "victim": "Rachel Verinder",
  "location": "Yorkshire country house",
  "npcs": [
    {"id": "npc_1", "name": "Franklin Blake", "role": "suitor", "personality": "restless", "motive": "debts",
     "alibi": "asleep"},
    {"id": "npc_2", "name": "Rosanna Spearman", "role": "housemaid", "personality": "secretive",
     "motive": "love", "alibi": "quicksand"}
  ],
  "clues": [
    {"id": "clue_1", "description": "smeared paint on the door", "relates_to": ["npc_1"],
     "location_hint": "Rachel's sitting room"},
    {"id": "clue_2", "description": "a missing nightgown", "relates_to": ["npc_2", "npc_9"],
     "location_hint": "Rosanna's box"}
  ],
  "solution": "Franklin Blake took the diamond while under the influence of opium."
}`

// waitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func waitForReady(ctx context.Context, endpoint string) error {
	timeout := 1 * time.Second
	client := http.Client{}
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			endpoint,
			nil,
		); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = client.Do(req); err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(250 * time.Millisecond)
		}
	}
}

// fakeOpenAI serves the chat completion endpoint of an OpenAI-compatible API with canned answers per model.
type fakeOpenAI struct {
	server *httptest.Server
	// answers maps a model identifier to its answer. Streamed answers are keyed by the identifier suffixed with
	// "+stream".
	answers map[string]string

	mu       sync.Mutex
	requests []string
}

func newFakeOpenAI(t *testing.T, answers map[string]string) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{answers: answers}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", f.chatCompletions)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// Requests lists the models requested so far.
func (f *fakeOpenAI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeOpenAI) chatCompletions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req.Model)
	f.mu.Unlock()

	key := req.Model
	if req.Stream {
		key += "+stream"
	}
	answer, ok := f.answers[key]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"unknown model","type":"server_error"}}`)
		return
	}

	if !req.Stream {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   req.Model,
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": answer},
				"finish_reason": "stop",
			}},
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	for _, word := range strings.SplitAfter(answer, " ") {
		chunk, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion.chunk",
			"created": 0,
			"model":   req.Model,
			"choices": []any{map[string]any{"index": 0, "delta": map[string]string{"content": word}}},
		})
		_, _ = fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	_, _ = io.WriteString(w, "data: [DONE]\n\n")
}

// modelsFile writes a registry pointing every model to the fake API.
func (f *fakeOpenAI) modelsFile(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	for _, role := range []string{"creative", "cheap", "full"} {
		fmt.Fprintf(&b, "%s:\n  provider: openai\n  model: fake-%s\n  base_url: %s/v1\n", role, role, f.server.URL)
	}
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

// lookupEnv returns an environment for run that uses the fake API and an in-memory database.
func (f *fakeOpenAI) lookupEnv(t *testing.T) func(string) (string, bool) {
	t.Helper()
	env := map[string]string{
		"OPENAI_API_KEY":       "test-key",
		"CASEFILE_ADDR":        "localhost:0",
		"CASEFILE_SQLITE_URL":  ":memory:",
		"CASEFILE_PPROF_PORT":  ":0",
		"CASEFILE_MODELS_FILE": f.modelsFile(t),
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

type testServer struct {
	url    string
	client http.Client
}

// startTestServer starts the test server, waits for it to be ready, and return the server URL for testing.
func startTestServer(t *testing.T, w io.Writer, lookupEnv func(string) (string, bool)) testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// We need to grab the dynamically allocated port from the log output.
	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == "Addr" {
				addrCh <- a.Value.String()
			}
			return a
		},
	})))

	// Start the server and wait for it to be ready.
	go func() {
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel()
			assert.NoError(t, err)
		}
	}()
	select {
	case <-ctx.Done():
		t.Fatal("server failed to start")
		return testServer{} //nolint:exhaustruct // This is unreachable.
	case addr := <-addrCh:
		serverURL := fmt.Sprintf("http://%s", addr)
		if err := waitForReady(ctx, fmt.Sprintf("%s/api/healthy", serverURL)); err != nil {
			require.NoError(t, err)
		}
		return testServer{
			url:    serverURL,
			client: http.Client{Timeout: 10 * time.Second},
		}
	}
}

// Do sends a request with an optional JSON body and decodes the JSON response into v unless v is nil.
func (s *testServer) Do(t *testing.T, method, urlPath string, body string, v any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.url+urlPath, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

type event struct {
	name string
	data string
}

// Stream reads server-sent events until the "done" event.
func (s *testServer) Stream(t *testing.T, urlPath string) []event {
	t.Helper()
	resp, err := s.client.Get(s.url + urlPath)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return readEvents(t, resp.Body)
}

func readEvents(t *testing.T, r io.Reader) []event {
	t.Helper()
	var (
		events  []event
		current event
		data    []string
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		case line == "":
			current.data = strings.Join(data, "\n")
			events = append(events, current)
			if current.name == "done" {
				return events
			}
			current, data = event{}, nil
		}
	}
	require.NoError(t, scanner.Err())
	t.Fatal("stream ended without done event")
	return nil
}

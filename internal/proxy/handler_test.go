package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/gptwork/internal/config"
	"github.com/efebarandurmaz/gptwork/internal/llm"
	"github.com/efebarandurmaz/gptwork/pkg/api"
)

// fakeProvider records every call and answers from fn.
type fakeProvider struct {
	mu      sync.Mutex
	prompts []*llm.Prompt
	opts    []*llm.RequestOptions
	fn      func(ctx context.Context, p *llm.Prompt) (*llm.Response, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, p *llm.Prompt, o *llm.RequestOptions) (*llm.Response, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.opts = append(f.opts, o)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, p)
	}
	return &llm.Response{Content: "ok", InputTokens: 3, OutputTokens: 2}, nil
}

func (f *fakeProvider) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func newTestHandler(t *testing.T, p llm.Provider) *Handler {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewHandler(p, OptionsFromConfig(config.Default()), nil, log)
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, api.ChatPath, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, r)
	return w
}

func decodeAnswer(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp api.CompletionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Answer
}

func TestChat_ForwardsTwoMessageExchange(t *testing.T) {
	p := &fakeProvider{}
	h := newTestHandler(t, p)

	w := post(h, `{"instruction":"Summarize","input":"long text","model":"gpt-4o"}`)
	assert.Equal(t, "ok", decodeAnswer(t, w))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	require.Equal(t, 1, p.calls())
	assert.Equal(t, "Summarize", p.prompts[0].SystemPrompt)
	require.Len(t, p.prompts[0].Messages, 1)
	assert.Equal(t, llm.RoleUser, p.prompts[0].Messages[0].Role)
	assert.Equal(t, "long text", p.prompts[0].Messages[0].Content)
	assert.Equal(t, "gpt-4o", p.opts[0].Model)
}

func TestChat_Defaults(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		wantInstruction string
		wantInput       string
		wantModel       string
	}{
		{"empty body", ``, api.DefaultInstruction, "", api.DefaultModel},
		{"empty object", `{}`, api.DefaultInstruction, "", api.DefaultModel},
		{"missing instruction", `{"input":"hi","model":"gpt-4o"}`, api.DefaultInstruction, "hi", "gpt-4o"},
		{"empty instruction", `{"instruction":"","input":"hi"}`, api.DefaultInstruction, "hi", api.DefaultModel},
		{"missing input", `{"instruction":"Translate"}`, "Translate", "", api.DefaultModel},
		{"null body", `null`, api.DefaultInstruction, "", api.DefaultModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{}
			w := post(newTestHandler(t, p), tt.body)
			decodeAnswer(t, w)

			require.Equal(t, 1, p.calls())
			assert.Equal(t, tt.wantInstruction, p.prompts[0].SystemPrompt)
			assert.Equal(t, tt.wantInput, p.prompts[0].UserText())
			assert.Equal(t, tt.wantModel, p.opts[0].Model)
		})
	}
}

func TestChat_EchoRoundTrip(t *testing.T) {
	h := newTestHandler(t, llm.EchoProvider{})
	assert.Equal(t, "hello", decodeAnswer(t, post(h, `{"instruction":"Repeat","input":"hello"}`)))
}

func TestChat_EmptyAnswerIsValid(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, *llm.Prompt) (*llm.Response, error) {
		return &llm.Response{}, nil
	}}
	w := post(newTestHandler(t, p), `{"input":"x"}`)
	assert.Equal(t, "", decodeAnswer(t, w))
	assert.JSONEq(t, `{"answer":""}`, w.Body.String())
}

func TestChat_NoCaching(t *testing.T) {
	p := &fakeProvider{}
	h := newTestHandler(t, p)

	body := `{"instruction":"a","input":"b"}`
	decodeAnswer(t, post(h, body))
	decodeAnswer(t, post(h, body))
	assert.Equal(t, 2, p.calls())
}

func TestChat_IgnoresExtraFields(t *testing.T) {
	p := &fakeProvider{}
	w := post(newTestHandler(t, p), `{"input":"hi","apiKey":"sk-caller","temperature":2}`)
	decodeAnswer(t, w)
	assert.NotContains(t, w.Body.String(), "sk-caller")
}

func TestChat_InvalidJSON(t *testing.T) {
	p := &fakeProvider{}
	h := newTestHandler(t, p)

	for _, body := range []string{`{not json`, `{"input": 5}`, `[1,2]`} {
		w := post(h, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Zero(t, p.calls())
}

func TestChat_BodyTooLarge(t *testing.T) {
	p := &fakeProvider{}
	log, _ := test.NewNullLogger()
	h := NewHandler(p, Options{MaxBodyBytes: 64}, nil, log)

	w := post(h, `{"input":"`+strings.Repeat("x", 200)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, p.calls())
}

func TestChat_MethodNotAllowed(t *testing.T) {
	p := &fakeProvider{}
	h := newTestHandler(t, p)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, api.ChatPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Header().Get("Allow"), "POST")
	assert.Zero(t, p.calls())
}

func TestChat_ProviderFailureIsPlainText(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, *llm.Prompt) (*llm.Response, error) {
		return nil, &llm.ProviderError{Provider: "fake", StatusCode: 429, Err: errors.New("rate limited")}
	}}
	w := post(newTestHandler(t, p), `{"input":"x"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "rate limited", strings.TrimSpace(w.Body.String()))
	assert.Equal(t, 1, p.calls(), "no retries")
}

func TestChat_UntypedFailureIsBadGateway(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, *llm.Prompt) (*llm.Response, error) {
		return nil, errors.New("connection reset")
	}}
	w := post(newTestHandler(t, p), `{"input":"x"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "connection reset", strings.TrimSpace(w.Body.String()))
}

func TestChat_ProviderTimeout(t *testing.T) {
	slow := &fakeProvider{fn: func(ctx context.Context, _ *llm.Prompt) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	log, _ := test.NewNullLogger()
	h := NewHandler(llm.NewTimeoutProvider(slow, 20*time.Millisecond), Options{}, nil, log)

	w := post(h, `{"input":"x"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "upstream request timed out", strings.TrimSpace(w.Body.String()))
	assert.Equal(t, float64(1), h.Metrics().ChatTimeoutsTotal.Value())
}

func TestPing(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{})

	for _, r := range []*http.Request{
		httptest.NewRequest(http.MethodGet, api.PingPath, nil),
		httptest.NewRequest(http.MethodPost, api.PingPath, strings.NewReader(`{"anything":true}`)),
		httptest.NewRequest(http.MethodPost, api.PingPath, strings.NewReader(`not json`)),
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	}
	assert.Equal(t, float64(3), h.Metrics().PingRequestsTotal.Value())
}

func TestCORS(t *testing.T) {
	p := &fakeProvider{}
	h := newTestHandler(t, p)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, api.ChatPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Zero(t, p.calls(), "preflight never reaches the provider")

	w = post(h, `{"input":"x"}`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, &fakeProvider{})
	decodeAnswer(t, post(h, `{"input":"x"}`))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "gptwork_chat_requests_total 1")
	assert.Contains(t, string(body), "gptwork_llm_tokens_total 5")
}

func TestRequestLogOmitsAnswer(t *testing.T) {
	p := &fakeProvider{fn: func(context.Context, *llm.Prompt) (*llm.Response, error) {
		return &llm.Response{Content: "secret answer text"}, nil
	}}
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	h := NewHandler(p, Options{}, nil, log)
	decodeAnswer(t, post(h, `{"input":"private input","model":"gpt-4o"}`))

	out := buf.String()
	assert.Contains(t, out, `"path":"/chat"`)
	assert.Contains(t, out, `"model":"gpt-4o"`)
	assert.NotContains(t, out, "secret answer text")
	assert.NotContains(t, out, "private input")
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	h := newTestHandler(t, llm.EchoProvider{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := strings.Repeat("x", i+1)
			w := post(h, `{"input":"`+input+`"}`)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"answer":"`+input+`"}`, w.Body.String())
		}(i)
	}
	wg.Wait()
}

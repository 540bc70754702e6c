package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/gptwork/pkg/api"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		input       string
		wantField   string
		wantMsg     string
	}{
		{"both empty reports instruction", "", "", "instruction", MsgMissingInstruction},
		{"whitespace instruction", "  \n\t", "text", "instruction", MsgMissingInstruction},
		{"empty input", "summarize", "", "input", MsgMissingInput},
		{"whitespace input", "summarize", "   ", "input", MsgMissingInput},
		{"valid", "summarize", "text", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.instruction, tt.input)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestRun_ValidationSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Run(context.Background(), api.CompletionRequest{Instruction: "x", Input: "  "})
	require.Error(t, err)
	assert.Equal(t, MsgMissingInput, err.Error())
	assert.Zero(t, calls.Load())
}

func TestComplete_Success(t *testing.T) {
	var got api.CompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, api.ChatPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(api.CompletionResponse{Answer: "Bonjour"})
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	answer, err := c.Run(context.Background(), api.CompletionRequest{
		Instruction: "Translate to French",
		Input:       "Hello",
		Model:       "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", answer)
	assert.Equal(t, "Translate to French", got.Instruction)
	assert.Equal(t, "Hello", got.Input)
	assert.Equal(t, "gpt-4o", got.Model)
}

func TestComplete_MissingAnswerIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	answer, err := New(srv.URL).Complete(context.Background(), api.CompletionRequest{Input: "x"})
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestComplete_InvalidJSONOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Complete(context.Background(), api.CompletionRequest{Input: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestComplete_ErrorBodyVerbatim(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", status)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Complete(context.Background(), api.CompletionRequest{Input: "x"})
			var pe *ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, status, pe.StatusCode)
			assert.Equal(t, "rate limited", err.Error())
		})
	}
}

func TestComplete_EmptyErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Complete(context.Background(), api.CompletionRequest{Input: "x"})
	require.Error(t, err)
	assert.Equal(t, "HTTP 500", err.Error())
}

func TestComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).Complete(context.Background(), api.CompletionRequest{Input: "x"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.NotEmpty(t, err.Error())
	assert.NotNil(t, errors.Unwrap(err))
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).Complete(context.Background(), api.CompletionRequest{Input: "x"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
}

func TestComplete_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream request timed out", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Complete(context.Background(), api.CompletionRequest{Input: "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.PingPath, r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	assert.NoError(t, New(srv.URL).Ping(context.Background()))
}

func TestPing_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	assert.ErrorIs(t, New(srv.URL).Ping(context.Background()), ErrNotOK)
}

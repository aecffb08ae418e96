// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "sk-or-test-abcdefghijklmnopqrstuvwxyz0123456789"

func chatJSON(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":    "test-id",
		"model": "test-model",
		"choices": []map[string]interface{}{{
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	})
	return string(b)
}

func newTestOpenRouter(url string) *OpenRouterClient {
	c := NewOpenRouterClient(testKey).WithBaseURL(url)
	c.backoff = time.Millisecond
	return c
}

// =============================================================================
// OPENROUTER
// =============================================================================

func TestOpenRouter_Generate(t *testing.T) {
	var got ChatRequest
	var auth, title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		title = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatJSON("hello back")))
	}))
	defer server.Close()

	text, err := newTestOpenRouter(server.URL+"/").Generate(context.Background(), "openrouter/auto", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", text)
	assert.Equal(t, "openrouter/auto", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, "Bearer "+testKey, auth)
	assert.Equal(t, "rigrun-route", title)
}

func TestOpenRouter_NotConfigured(t *testing.T) {
	_, err := NewOpenRouterClient("  ").Generate(context.Background(), "m", "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenRouter_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestOpenRouter(server.URL).Generate(context.Background(), "m", "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenRouter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"auth with body", http.StatusUnauthorized, `{"error":{"code":"401","message":"bad key"}}`, ErrAuthFailed},
		{"auth bare", http.StatusUnauthorized, ``, ErrAuthFailed},
		{"credits", http.StatusPaymentRequired, `{"error":{"message":"top up"}}`, ErrInsufficientCredits},
		{"model", http.StatusNotFound, ``, ErrModelNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestOpenRouter(server.URL).Generate(context.Background(), "m", "p")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
		})
	}
}

func TestOpenRouter_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":{"code":"upstream","message":"try later"}}`))
			return
		}
		w.Write([]byte(chatJSON("third time")))
	}))
	defer server.Close()

	text, err := newTestOpenRouter(server.URL).Generate(context.Background(), "m", "p")
	require.NoError(t, err)
	assert.Equal(t, "third time", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenRouter_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestOpenRouter(server.URL).WithMaxRetries(2).Generate(context.Background(), "m", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "max retries exceeded")
}

func TestOpenRouter_ServerErrorType(t *testing.T) {
	err := handleErrorResponse(http.StatusServiceUnavailable, []byte("overloaded"))
	var orErr *OpenRouterError
	require.True(t, errors.As(err, &orErr))
	assert.Equal(t, http.StatusServiceUnavailable, orErr.Status)
	assert.Equal(t, "OpenRouter error (HTTP 503): overloaded", orErr.Error())
}

func TestOpenRouter_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestOpenRouter(server.URL).WithTimeout(50 * time.Millisecond)
	_, err := c.Generate(context.Background(), "m", "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestOpenRouter_ConcurrentModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(chatJSON("echo " + req.Model)))
	}))
	defer server.Close()

	c := newTestOpenRouter(server.URL)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(model string) {
			defer wg.Done()
			text, err := c.Generate(context.Background(), model, "p")
			assert.NoError(t, err)
			assert.Equal(t, "echo "+model, text)
		}(string(rune('a' + i%5)))
	}
	wg.Wait()
}

func TestOpenRouter_APIKeyMasked(t *testing.T) {
	assert.Equal(t, "sk-or-...6789", NewOpenRouterClient(testKey).APIKeyMasked())
	assert.Equal(t, "****", NewOpenRouterClient("short").APIKeyMasked())
}

// =============================================================================
// SDK PROVIDERS
// =============================================================================

func TestSDKProviders_RequireKey(t *testing.T) {
	_, err := NewAnthropicProvider(Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewOpenAIProvider(Options{APIKey: " "})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewGeminiProvider(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnthropicProvider_Generate(t *testing.T) {
	var gotKey string
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		gotKey = r.Header.Get("X-Api-Key")
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "bonjour"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(Options{APIKey: "ak-test", BaseURL: server.URL + "/", MaxRetries: -1})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	text, err := p.Generate(context.Background(), "claude-sonnet-4-20250514", "hello")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", text)
	assert.Equal(t, "ak-test", gotKey)
	assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hola"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Options{APIKey: "oa-test", BaseURL: server.URL + "/", MaxRetries: -1})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	text, err := p.Generate(context.Background(), "gpt-4o", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hola", text)
	assert.Equal(t, "Bearer oa-test", gotAuth)
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Options{APIKey: "oa-test", BaseURL: server.URL + "/", MaxRetries: -1})
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "gpt-4o", "hello")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqClientRequiresAPIKey(t *testing.T) {
	_, err := NewGroqLLMClient("", "", "")
	require.Error(t, err)
}

func TestGroqClientComplete(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "llama-3.3-70b-versatile",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "Stay hydrated."},
			}},
			"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49},
		})
	}))
	defer srv.Close()

	client, err := NewGroqLLMClient("gsk_test", srv.URL, "llama-3.3-70b-versatile")
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), LLMRequest{
		System:      []string{systemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "User Query: hello"}},
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	})
	require.NoError(t, err)
	assert.Equal(t, "Stay hydrated.", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, int32(42), resp.Usage.InputTokens)
	assert.Equal(t, int32(7), resp.Usage.OutputTokens)

	assert.Equal(t, "llama-3.3-70b-versatile", gotBody["model"])
	assert.InDelta(t, completionTemperature, gotBody["temperature"].(float64), 0.001)
	assert.EqualValues(t, completionMaxTokens, gotBody["max_tokens"].(float64))

	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, systemPrompt, first["content"])
	second := messages[1].(map[string]any)
	assert.Equal(t, "user", second["role"])
}

func TestGroqClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"over capacity"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewGroqLLMClient("gsk_test", srv.URL, "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}

func TestGroqClientEmptyChoicesIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-2","choices":[],"usage":{"prompt_tokens":42}}`))
	}))
	defer srv.Close()

	client, err := NewGroqLLMClient("gsk_test", srv.URL, "")
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
	assert.Equal(t, int32(42), resp.Usage.InputTokens)
}

func TestGroqClientPreservesWhitespaceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-3",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "  ## Summary\n\n- ok  "},
			}},
		})
	}))
	defer srv.Close()

	client, err := NewGroqLLMClient("gsk_test", srv.URL, "")
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "  ## Summary\n\n- ok  ", resp.Text)
}

func TestCompleterEmptyChoicesYieldsNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-4","choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewGroqLLMClient("gsk_test", srv.URL, "")
	require.NoError(t, err)
	completer := NewCompleter(client, "llama-3.3-70b-versatile", 0, nil)

	assert.Equal(t, MsgNoResponse, completer.Complete(context.Background(), "User Query: hello"))
}

func TestGroqClientRequiresMessages(t *testing.T) {
	client, err := NewGroqLLMClient("gsk_test", "http://localhost:0", "")
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), LLMRequest{})
	require.Error(t, err)
}

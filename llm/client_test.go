package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanJSON(tt.in))
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", Snippet("abcdef", 3))
	assert.Equal(t, "ab", Snippet("ab", 10))
	assert.Equal(t, "h", Snippet("héllo", 2))
	assert.Equal(t, "日", Snippet("日本語", 4))
	assert.Equal(t, "", Snippet("日本語", 2))
	assert.True(t, utf8.ValidString(Snippet("scène à l'aube", 4)))
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("https://api.groq.com/openai/v1", "", time.Second)
	assert.Error(t, err)
}

func TestCompleteAgainstCompatibleServer(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "llama-3.3-70b-versatile",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", "test-key", 5*time.Second)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{
		Model:  "llama-3.3-70b-versatile",
		System: "system text",
		User:   "user text",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "llama-3.3-70b-versatile", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-2","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "test-key", 5*time.Second)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), Request{Model: "m", System: "s", User: "u"})
	assert.ErrorContains(t, err, "no choices")
}

func TestCompleteRequiresModel(t *testing.T) {
	c, err := New("http://127.0.0.1:1", "k", time.Second)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), Request{System: "s", User: "u"})
	assert.Error(t, err)
}

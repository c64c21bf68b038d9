package generativeAI

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travelmate/config"
)

func TestAnthropicClient_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts system prompt", func(t *testing.T) {
		var captured map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
			assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "msg_01",
				"type": "message",
				"role": "assistant",
				"model": "claude-test",
				"content": [{"type": "text", "text": "Visit the Colosseum."}],
				"stop_reason": "end_turn",
				"usage": {"input_tokens": 10, "output_tokens": 5}
			}`))
		}))
		defer srv.Close()

		client, err := NewAnthropicClient(config.ProviderConfig{APIKey: "test-key", Model: "claude-test", BaseURL: srv.URL}, 0, srv.Client())
		require.NoError(t, err)

		text, err := client.Complete(ctx, []Message{
			SystemMessage("You are a guide."),
			UserMessage("What to see in Rome?"),
		}, 0.4)
		require.NoError(t, err)
		assert.Equal(t, "Visit the Colosseum.", text)

		assert.Equal(t, "claude-test", captured["model"])
		assert.EqualValues(t, defaultMaxTokens, captured["max_tokens"])
		assert.InDelta(t, 0.4, captured["temperature"], 1e-6)

		system := captured["system"].([]interface{})
		require.Len(t, system, 1)
		assert.Equal(t, "You are a guide.", system[0].(map[string]interface{})["text"])

		msgs := captured["messages"].([]interface{})
		require.Len(t, msgs, 1)
		assert.Equal(t, "user", msgs[0].(map[string]interface{})["role"])
	})

	t.Run("does not retry on failure", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"overloaded"}}`))
		}))
		defer srv.Close()

		client, err := NewAnthropicClient(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL}, 256, srv.Client())
		require.NoError(t, err)

		_, err = client.Complete(ctx, []Message{UserMessage("hi")}, 0.5)
		assert.Error(t, err)
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("system only is rejected locally", func(t *testing.T) {
		client, err := NewAnthropicClient(config.ProviderConfig{APIKey: "k"}, 0, http.DefaultClient)
		require.NoError(t, err)

		_, err = client.Complete(ctx, []Message{SystemMessage("only system")}, 0.5)
		assert.Error(t, err)
	})
}

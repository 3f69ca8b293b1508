package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

func TestGroqSummarize_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "좋아하는 색은?")

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"요약"}}]}`))
	}))
	defer ts.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "test-key", BaseURL: ts.URL, Model: "test-model"})

	summary, err := client.Summarize(context.Background(), []entities.ScriptEntry{{
		QuestionID: 1,
		Question:   "좋아하는 색은?",
		Answers:    []entities.ScriptAnswer{{UserID: 10, Answer: "분홍색"}},
	}})

	require.NoError(t, err)
	assert.Equal(t, "요약", summary)
}

func TestGroqChat_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := NewGroqClient(&config.GroqConfig{APIKey: "bad", BaseURL: ts.URL})

	_, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

func newTestModelServer(t *testing.T, h http.HandlerFunc) *ModelServerClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return NewModelServerClient(&config.AnalysisConfig{
		ModelServerURL: ts.URL,
		ModelTimeout:   5 * time.Second,
	}, zap.NewNop())
}

func TestModelServer_Topics(t *testing.T) {
	client := newTestModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/topics", r.URL.Path)
		var req topicsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"사과", "바나나"}, req.Tokens)
		_, _ = w.Write([]byte(`{"topics":[{"id":0}]}`))
	})

	payload, err := client.Topics(context.Background(), []string{"사과", "바나나"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"topics":[{"id":0}]}`, string(payload))
}

func TestModelServer_TopicsNoData(t *testing.T) {
	client := newTestModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"no_data"}`))
	})

	_, err := client.Topics(context.Background(), []string{"사과"})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = client.Topics(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestModelServer_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"scores":[0.9,-0.4]}`))
	})

	scores, err := client.SentenceSentiment(context.Background(), []string{"좋아요", "싫어요"})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, -0.4}, scores)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestModelServer_MisalignedReply(t *testing.T) {
	client := newTestModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"vectors":[[1,2]]}`))
	})

	_, err := client.Embed(context.Background(), []string{"a", "b"})

	assert.ErrorContains(t, err, "1 vectors for 2 inputs")
}

func TestModelServer_TokenSentimentAndWordcloud(t *testing.T) {
	client := newTestModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/sentiment/tokens":
			_, _ = w.Write([]byte(`{"scores":{"사과":0.5}}`))
		case "/v1/wordcloud":
			var req wordcloudRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, map[string]int{"사과": 2}, req.Frequencies)
			assert.Equal(t, 800, req.Width)
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNG"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	scores, err := client.TokenSentiment(context.Background(), []string{"사과"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"사과": 0.5}, scores)

	png, err := client.RenderWordcloud(context.Background(), map[string]int{"사과": 2}, 800, 400)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png)
}

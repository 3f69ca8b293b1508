package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

// ModelServerClient calls the analysis model server: topic modeling,
// sentiment scoring, embeddings and word-cloud rendering.
type ModelServerClient struct {
	baseURL    string
	client     *http.Client
	maxElapsed time.Duration
	logger     *zap.Logger
}

// NewModelServerClient creates a model server client from the analysis config
func NewModelServerClient(cfg *config.AnalysisConfig, logger *zap.Logger) *ModelServerClient {
	timeout := cfg.ModelTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ModelServerClient{
		baseURL:    strings.TrimRight(cfg.ModelServerURL, "/"),
		client:     &http.Client{Timeout: timeout},
		maxElapsed: timeout,
		logger:     logger,
	}
}

type topicsRequest struct {
	Tokens []string `json:"tokens"`
}

type sentencesRequest struct {
	Sentences []string `json:"sentences"`
}

type sentencesResponse struct {
	Scores []float64 `json:"scores"`
}

type tokenScoresResponse struct {
	Scores map[string]float64 `json:"scores"`
}

type embeddingsRequest struct {
	Inputs []string `json:"inputs"`
}

type embeddingsResponse struct {
	Vectors [][]float64 `json:"vectors"`
}

type wordcloudRequest struct {
	Frequencies map[string]int `json:"frequencies"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
}

// Topics returns the topic model's visualization payload for tokens.
// A 422 reply means the model found nothing to analyze and yields ErrNoData.
func (c *ModelServerClient) Topics(ctx context.Context, tokens []string) ([]byte, error) {
	if len(tokens) == 0 {
		return nil, ErrNoData
	}
	var payload json.RawMessage
	if err := c.postJSON(ctx, "/v1/topics", topicsRequest{Tokens: tokens}, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// SentenceSentiment scores each sentence; the result is index-aligned with sentences
func (c *ModelServerClient) SentenceSentiment(ctx context.Context, sentences []string) ([]float64, error) {
	var resp sentencesResponse
	if err := c.postJSON(ctx, "/v1/sentiment/sentences", sentencesRequest{Sentences: sentences}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Scores) != len(sentences) {
		return nil, fmt.Errorf("sentiment returned %d scores for %d sentences", len(resp.Scores), len(sentences))
	}
	return resp.Scores, nil
}

// TokenSentiment scores unique tokens
func (c *ModelServerClient) TokenSentiment(ctx context.Context, tokens []string) (map[string]float64, error) {
	var resp tokenScoresResponse
	if err := c.postJSON(ctx, "/v1/sentiment/tokens", topicsRequest{Tokens: tokens}, &resp); err != nil {
		return nil, err
	}
	if resp.Scores == nil {
		resp.Scores = map[string]float64{}
	}
	return resp.Scores, nil
}

// Embed returns one vector per input, index-aligned
func (c *ModelServerClient) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	var resp embeddingsResponse
	if err := c.postJSON(ctx, "/v1/embeddings", embeddingsRequest{Inputs: inputs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Vectors) != len(inputs) {
		return nil, fmt.Errorf("embeddings returned %d vectors for %d inputs", len(resp.Vectors), len(inputs))
	}
	return resp.Vectors, nil
}

// RenderWordcloud returns a PNG word cloud of frequencies
func (c *ModelServerClient) RenderWordcloud(ctx context.Context, frequencies map[string]int, width, height int) ([]byte, error) {
	var png []byte
	err := c.do(ctx, "/v1/wordcloud", wordcloudRequest{Frequencies: frequencies, Width: width, Height: height}, func(body io.Reader) error {
		data, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		png = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(png) == 0 {
		return nil, fmt.Errorf("wordcloud returned an empty image")
	}
	return png, nil
}

func (c *ModelServerClient) postJSON(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, path, in, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(out)
	})
}

// do posts in as JSON to path and hands a 2xx body to decode. Network errors,
// 429 and 5xx replies are retried; other failures are permanent.
func (c *ModelServerClient) do(ctx context.Context, path string, in interface{}, decode func(io.Reader) error) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	endpoint := c.baseURL + path

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnprocessableEntity:
			return backoff.Permanent(fmt.Errorf("%w: %v", ErrNoData, readStatusError(path, resp)))
		case resp.StatusCode >= 400:
			statusErr := readStatusError(path, resp)
			if retryable(resp.StatusCode) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		if err := decode(resp.Body); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", path, err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		if c.logger != nil {
			c.logger.Warn("⚠️ Model server call failed, retrying",
				zap.String("endpoint", path),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
	}

	return backoff.RetryNotify(op, newBackOff(ctx, c.maxElapsed), notify)
}

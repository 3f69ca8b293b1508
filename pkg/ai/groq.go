package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

const defaultGroqModel = "llama-3.1-70b-versatile"

// GroqClient is a minimal client for Groq chat completions, used to summarize scripts
type GroqClient struct {
	apiKey     string
	baseURL    string
	model      string
	client     *http.Client
	maxElapsed time.Duration
}

// NewGroqClient creates a Groq client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	var apiKey, model string
	if cfg != nil {
		apiKey = cfg.APIKey
		model = cfg.Model
	}
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if model == "" {
		model = defaultGroqModel
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("GROQ_API_URL")
		if base == "" {
			base = "https://api.groq.com"
		}
	}

	return &GroqClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(base, "/"),
		model:      model,
		client:     &http.Client{Timeout: 60 * time.Second},
		maxElapsed: 30 * time.Second,
	}
}

// ChatMessage is one chat turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const summaryPrompt = `You are summarizing a focus-group session. Each question is followed by the participants' answers.
Summarize, per question, the main opinions, points of agreement and disagreement, and notable quotes. Answer in the language of the answers.`

// Summarize sends a meeting script to Groq and returns the summary text
func (g *GroqClient) Summarize(ctx context.Context, script []entities.ScriptEntry) (string, error) {
	scriptJSON, err := json.Marshal(script)
	if err != nil {
		return "", err
	}

	return g.Chat(ctx, []ChatMessage{
		{Role: "system", Content: summaryPrompt},
		{Role: "user", Content: string(scriptJSON)},
	})
}

// Chat runs one chat completion, retrying transient failures
func (g *GroqClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	b, err := json.Marshal(ChatRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		return "", err
	}

	endpoint := g.baseURL + "/openai/v1/chat/completions"
	var content string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			statusErr := readStatusError("groq", resp)
			if retryable(resp.StatusCode) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		var cr ChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode groq response: %w", err))
		}
		if len(cr.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("empty response from groq"))
		}
		content = cr.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(op, newBackOff(ctx, g.maxElapsed)); err != nil {
		return "", err
	}
	return content, nil
}

package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

const defaultLanguageCode = "ko"

// AssemblyAIClient transcribes recorded answers with the AssemblyAI SDK
type AssemblyAIClient struct {
	client   *aai.Client
	language string
}

// NewAssemblyAIClient creates an AssemblyAI client using the provided config.
// If cfg is nil, falls back to environment variables.
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig) *AssemblyAIClient {
	var apiKey, baseURL, language string
	if cfg != nil {
		apiKey = cfg.APIKey
		baseURL = cfg.BaseURL
		language = cfg.LanguageCode
	}
	if apiKey == "" {
		apiKey = os.Getenv("ASSEMBLYAI_API_KEY")
	}
	if language == "" {
		language = defaultLanguageCode
	}

	opts := []aai.ClientOption{aai.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, aai.WithBaseURL(baseURL))
	}

	return &AssemblyAIClient{
		client:   aai.NewClientWithOptions(opts...),
		language: language,
	}
}

// Transcribe uploads audio and waits for its transcript text
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", errors.New("empty audio")
	}

	params := &aai.TranscriptOptionalParams{
		LanguageCode: aai.TranscriptLanguageCode(c.language),
	}

	transcript, err := c.client.Transcripts.TranscribeFromReader(ctx, bytes.NewReader(audio), params)
	if err != nil {
		return "", fmt.Errorf("assemblyai transcription failed: %w", err)
	}
	return transcriptText(transcript)
}

// transcriptText extracts the text of a finished transcript
func transcriptText(t aai.Transcript) (string, error) {
	switch t.Status {
	case aai.TranscriptStatusCompleted:
		return aai.ToString(t.Text), nil
	case aai.TranscriptStatusError:
		msg := "unknown error"
		if t.Error != nil {
			msg = *t.Error
		}
		return "", fmt.Errorf("assemblyai error: %s", msg)
	default:
		return "", fmt.Errorf("assemblyai transcript %s not finished (status %s)", aai.ToString(t.ID), t.Status)
	}
}

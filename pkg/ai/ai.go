// Package ai holds the clients of the external models: speech-to-text,
// summarization and the analysis model server.
package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// ErrNoData is returned when a model reports there is nothing to analyze.
// It matches entities.ErrNoData.
var ErrNoData = fmt.Errorf("model reported no data: %w", entities.ErrNoData)

// StatusError is a non-2xx reply from a model endpoint
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// readStatusError drains at most 1KiB of an error body
func readStatusError(endpoint string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(body)}
}

// retryable reports whether a status code is worth another attempt
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// newBackOff returns the retry policy shared by the model clients
func newBackOff(ctx context.Context, maxElapsed time.Duration) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxElapsed
	return backoff.WithContext(bo, ctx)
}

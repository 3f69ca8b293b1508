// Package report delivers rendered artifacts to the external report service.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/focus-group-analyzer/pkg/config"
)

// Client posts word-cloud images to the report endpoint
type Client struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewClient returns a client, or nil when no report endpoint is configured
func NewClient(cfg *config.ReportConfig, logger *zap.Logger) *Client {
	if cfg == nil || cfg.WordcloudURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:     cfg.WordcloudURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// PostWordcloud uploads png as the wordcloudFile field along with meetingId.
// Transient failures are retried until the configured timeout elapses.
func (c *Client) PostWordcloud(ctx context.Context, meetingID int64, fileName string, png []byte) error {
	if c == nil {
		return nil
	}

	body, contentType, err := wordcloudForm(meetingID, fileName, png)
	if err != nil {
		return err
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("report endpoint returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("report endpoint returned status %d", resp.StatusCode))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.timeout
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Info("📤 Word cloud delivered to report endpoint",
			zap.Int64("meeting_id", meetingID),
			zap.String("file_name", fileName),
		)
	}
	return nil
}

func wordcloudForm(meetingID int64, fileName string, png []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("meetingId", strconv.FormatInt(meetingID, 10)); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("wordcloudFile", fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(png); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
